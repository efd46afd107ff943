package vectorstore

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// PGVectorIndex stores points in a Postgres table with a pgvector column.
type PGVectorIndex struct {
	pool  *pgxpool.Pool
	table string
}

func NewPGVectorIndex(ctx context.Context, connStr, table string, dimensions int) (*PGVectorIndex, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid pgvector table name %q", table)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	idx := &PGVectorIndex{pool: pool, table: table}
	if err := idx.createTable(ctx, dimensions); err != nil {
		pool.Close()
		return nil, err
	}

	return idx, nil
}

func (p *PGVectorIndex) createTable(ctx context.Context, dimensions int) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id          TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			chunk_id    TEXT NOT NULL,
			content     TEXT NOT NULL,
			embedding   vector(%d) NOT NULL
		)`, p.table, dimensions),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_document_idx ON %s (document_id)`, p.table, p.table),
	}

	for _, stmt := range statements {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to prepare pgvector table: %w", err)
		}
	}

	return nil
}

func (p *PGVectorIndex) Upsert(ctx context.Context, points []Point) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, document_id, chunk_id, content, embedding)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET document_id = EXCLUDED.document_id, chunk_id = EXCLUDED.chunk_id,
		    content = EXCLUDED.content, embedding = EXCLUDED.embedding
	`, p.table)

	batch := &pgx.Batch{}
	for _, pt := range points {
		batch.Queue(query, pt.ID, pt.DocumentID, pt.ChunkID, pt.Text, pgvector.NewVector(pt.Vector))
	}

	br := p.pool.SendBatch(ctx, batch)
	for range points {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("failed to upsert vector: %w", err)
		}
	}

	return br.Close()
}

func (p *PGVectorIndex) Search(ctx context.Context, vector []float32, limit int) ([]Match, error) {
	query := fmt.Sprintf(`
		SELECT id, document_id, chunk_id, content, 1 - (embedding <=> $1) AS score
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2
	`, p.table)

	rows, err := p.pool.Query(ctx, query, pgvector.NewVector(vector), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search vectors: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		var score float64
		if err := rows.Scan(&m.ID, &m.DocumentID, &m.ChunkID, &m.Text, &score); err != nil {
			return nil, err
		}
		m.Score = float32(score)
		matches = append(matches, m)
	}

	return matches, rows.Err()
}

func (p *PGVectorIndex) DeleteDocument(ctx context.Context, documentID string) error {
	_, err := p.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE document_id = $1`, p.table), documentID)
	if err != nil {
		return fmt.Errorf("failed to delete document vectors: %w", err)
	}
	return nil
}

func (p *PGVectorIndex) Close() error {
	p.pool.Close()
	return nil
}
