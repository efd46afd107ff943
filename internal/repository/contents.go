package repository

import (
	"context"
	"time"

	"github.com/BerylCAtieno/docvault-api/internal/models"
)

func (r *repository) HasContent(ctx context.Context, documentID string) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM document_contents WHERE document_id = $1`, documentID)
	return count > 0, err
}

// ListContents returns unit rows before chunk rows for each page, chunks in
// chunk_index order.
func (r *repository) ListContents(ctx context.Context, documentID string) ([]models.DocumentContent, error) {
	var contents []models.DocumentContent

	query := `
		SELECT id, document_id, page_number, chunk_index, content_text, chunk_text, created_at
		FROM document_contents
		WHERE document_id = $1
		ORDER BY COALESCE(page_number, 0), chunk_index IS NOT NULL, COALESCE(chunk_index, 0)
	`

	err := r.db.SelectContext(ctx, &contents, query, documentID)
	return contents, err
}

// ReplaceContents deletes every content row of the document and inserts the
// given rows in one transaction.
func (r *repository) ReplaceContents(ctx context.Context, documentID string, contents []models.DocumentContent) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM document_contents WHERE document_id = $1`, documentID); err != nil {
		return err
	}

	query := `
		INSERT INTO document_contents (id, document_id, page_number, chunk_index, content_text, chunk_text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	now := time.Now().UTC()
	for i := range contents {
		c := &contents[i]
		c.DocumentID = documentID
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}

		if _, err := tx.ExecContext(ctx, query,
			c.ID,
			c.DocumentID,
			c.PageNumber,
			c.ChunkIndex,
			c.ContentText,
			c.ChunkText,
			c.CreatedAt,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *repository) CreateVectorRecords(ctx context.Context, records []models.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO vector_records (id, document_id, content_id, vector_id, model, vector_status, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	now := time.Now().UTC()
	for i := range records {
		rec := &records[i]
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}

		if _, err := tx.ExecContext(ctx, query,
			rec.ID,
			rec.DocumentID,
			rec.ContentID,
			rec.VectorID,
			rec.Model,
			rec.Status,
			rec.ErrorMessage,
			rec.CreatedAt,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *repository) ListVectorRecords(ctx context.Context, documentID string) ([]models.VectorRecord, error) {
	var records []models.VectorRecord

	query := `
		SELECT id, document_id, content_id, vector_id, model, vector_status, error_message, created_at
		FROM vector_records
		WHERE document_id = $1
		ORDER BY created_at, id
	`

	err := r.db.SelectContext(ctx, &records, query, documentID)
	return records, err
}
