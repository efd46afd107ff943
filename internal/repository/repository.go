package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BerylCAtieno/docvault-api/internal/models"
	"github.com/jmoiron/sqlx"
)

var (
	ErrDuplicateName = errors.New("a node with this name already exists in the target folder")
	ErrInvalidParent = errors.New("parent must be an existing folder")
	ErrCycle         = errors.New("a node cannot be moved into itself or one of its descendants")
	ErrNotFound      = errors.New("node not found")
)

// NodeRepository covers the document tree.
type NodeRepository interface {
	CreateNode(ctx context.Context, node *models.DocumentNode) error
	GetByID(ctx context.Context, id string) (*models.DocumentNode, error)
	ListChildren(ctx context.Context, parentID *string) ([]models.DocumentNode, error)
	ListAll(ctx context.Context) ([]models.DocumentNode, error)
	FindUnvectorizedFiles(ctx context.Context) ([]models.DocumentNode, error)
	FindFolderByName(ctx context.Context, name string, exact bool) (*models.DocumentNode, error)
	FindSibling(ctx context.Context, name string, parentID *string, nodeType models.NodeType) (*models.DocumentNode, error)
	UpdateNode(ctx context.Context, node *models.DocumentNode) error
	UpdateVectorState(ctx context.Context, node *models.DocumentNode) error
	SoftDelete(ctx context.Context, id string) ([]string, error)
}

// ContentRepository covers extracted content and vector bookkeeping.
type ContentRepository interface {
	HasContent(ctx context.Context, documentID string) (bool, error)
	ListContents(ctx context.Context, documentID string) ([]models.DocumentContent, error)
	ReplaceContents(ctx context.Context, documentID string, contents []models.DocumentContent) error
	CreateVectorRecords(ctx context.Context, records []models.VectorRecord) error
	ListVectorRecords(ctx context.Context, documentID string) ([]models.VectorRecord, error)
}

type Repository interface {
	NodeRepository
	ContentRepository
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const nodeColumns = `id, name, type, parent_id, file_path, file_type, file_size, mime_type, description,
	is_deleted, is_vectorized, vector_status, vectorized_at, minio_path, created_at, updated_at`

func (r *repository) CreateNode(ctx context.Context, node *models.DocumentNode) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := checkParent(ctx, tx, node.ParentID); err != nil {
		return err
	}
	if err := checkNameFree(ctx, tx, node.Name, node.ParentID, ""); err != nil {
		return err
	}

	now := time.Now().UTC()
	if node.CreatedAt.IsZero() {
		node.CreatedAt = now
	}
	node.UpdatedAt = now
	if node.VectorStatus == "" {
		node.VectorStatus = models.VectorStatusNotStarted
	}

	query := `
		INSERT INTO document_nodes (` + nodeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err = tx.ExecContext(ctx, query,
		node.ID,
		node.Name,
		node.Type,
		node.ParentID,
		node.FilePath,
		node.FileType,
		node.FileSize,
		node.MimeType,
		node.Description,
		node.IsDeleted,
		node.IsVectorized,
		node.VectorStatus,
		node.VectorizedAt,
		node.MinioPath,
		node.CreatedAt,
		node.UpdatedAt,
	)
	if err != nil {
		return mapConstraintError(err)
	}

	return tx.Commit()
}

func (r *repository) GetByID(ctx context.Context, id string) (*models.DocumentNode, error) {
	return getNode(ctx, r.db, id)
}

func (r *repository) ListChildren(ctx context.Context, parentID *string) ([]models.DocumentNode, error) {
	var nodes []models.DocumentNode

	query := `
		SELECT ` + nodeColumns + `
		FROM document_nodes
		WHERE COALESCE(parent_id, '') = $1 AND is_deleted = 0
		ORDER BY type DESC, name
	`

	err := r.db.SelectContext(ctx, &nodes, query, parentKey(parentID))
	return nodes, err
}

func (r *repository) ListAll(ctx context.Context) ([]models.DocumentNode, error) {
	var nodes []models.DocumentNode

	query := `
		SELECT ` + nodeColumns + `
		FROM document_nodes
		WHERE is_deleted = 0
		ORDER BY type DESC, name
	`

	err := r.db.SelectContext(ctx, &nodes, query)
	return nodes, err
}

// FindUnvectorizedFiles lists live files that have not been vectorized, in a
// stable order. Failed and stuck documents are included.
func (r *repository) FindUnvectorizedFiles(ctx context.Context) ([]models.DocumentNode, error) {
	var nodes []models.DocumentNode

	query := `
		SELECT ` + nodeColumns + `
		FROM document_nodes
		WHERE type = 'file' AND is_deleted = 0 AND is_vectorized = 0
		ORDER BY created_at, id
	`

	err := r.db.SelectContext(ctx, &nodes, query)
	return nodes, err
}

// FindFolderByName matches a live folder by exact name, or by substring when
// exact is false. The oldest match wins.
func (r *repository) FindFolderByName(ctx context.Context, name string, exact bool) (*models.DocumentNode, error) {
	var node models.DocumentNode

	condition := "name = $1"
	if !exact {
		condition = "instr(name, $1) > 0"
	}

	query := `
		SELECT ` + nodeColumns + `
		FROM document_nodes
		WHERE type = 'folder' AND is_deleted = 0 AND ` + condition + `
		ORDER BY created_at, id
		LIMIT 1
	`

	err := r.db.GetContext(ctx, &node, query, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &node, nil
}

func (r *repository) FindSibling(ctx context.Context, name string, parentID *string, nodeType models.NodeType) (*models.DocumentNode, error) {
	var node models.DocumentNode

	query := `
		SELECT ` + nodeColumns + `
		FROM document_nodes
		WHERE name = $1 AND COALESCE(parent_id, '') = $2 AND type = $3 AND is_deleted = 0
		LIMIT 1
	`

	err := r.db.GetContext(ctx, &node, query, name, parentKey(parentID), nodeType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &node, nil
}

// UpdateNode persists name, parent and description changes after checking
// the tree invariants.
func (r *repository) UpdateNode(ctx context.Context, node *models.DocumentNode) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := checkParent(ctx, tx, node.ParentID); err != nil {
		return err
	}
	if err := checkNoCycle(ctx, tx, node.ID, node.ParentID); err != nil {
		return err
	}
	if err := checkNameFree(ctx, tx, node.Name, node.ParentID, node.ID); err != nil {
		return err
	}

	node.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE document_nodes
		SET name = $2, parent_id = $3, description = $4, updated_at = $5
		WHERE id = $1 AND is_deleted = 0
	`

	res, err := tx.ExecContext(ctx, query, node.ID, node.Name, node.ParentID, node.Description, node.UpdatedAt)
	if err != nil {
		return mapConstraintError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

func (r *repository) UpdateVectorState(ctx context.Context, node *models.DocumentNode) error {
	node.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE document_nodes
		SET is_vectorized = $2, vector_status = $3, vectorized_at = $4, minio_path = $5, updated_at = $6
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		node.ID,
		node.IsVectorized,
		node.VectorStatus,
		node.VectorizedAt,
		node.MinioPath,
		node.UpdatedAt,
	)

	return err
}

// SoftDelete marks the node and its whole subtree deleted and returns the
// affected ids.
func (r *repository) SoftDelete(ctx context.Context, id string) ([]string, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var ids []string
	query := `
		WITH RECURSIVE subtree(id) AS (
			SELECT id FROM document_nodes WHERE id = $1 AND is_deleted = 0
			UNION ALL
			SELECT n.id FROM document_nodes n JOIN subtree s ON n.parent_id = s.id WHERE n.is_deleted = 0
		)
		SELECT id FROM subtree
	`
	if err := tx.SelectContext(ctx, &ids, query, id); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, ErrNotFound
	}

	now := time.Now().UTC()
	for _, nodeID := range ids {
		if _, err := tx.ExecContext(ctx,
			`UPDATE document_nodes SET is_deleted = 1, updated_at = $2 WHERE id = $1`, nodeID, now); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return ids, nil
}

func getNode(ctx context.Context, q sqlx.QueryerContext, id string) (*models.DocumentNode, error) {
	var node models.DocumentNode

	query := `
		SELECT ` + nodeColumns + `
		FROM document_nodes
		WHERE id = $1 AND is_deleted = 0
	`

	err := sqlx.GetContext(ctx, q, &node, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &node, nil
}

func checkParent(ctx context.Context, q sqlx.QueryerContext, parentID *string) error {
	if parentID == nil {
		return nil
	}

	parent, err := getNode(ctx, q, *parentID)
	if err != nil {
		return err
	}
	if parent == nil || !parent.IsFolder() {
		return ErrInvalidParent
	}

	return nil
}

func checkNoCycle(ctx context.Context, q sqlx.QueryerContext, id string, parentID *string) error {
	seen := make(map[string]bool)
	for current := parentID; current != nil; {
		if *current == id {
			return ErrCycle
		}
		if seen[*current] {
			return fmt.Errorf("tree already contains a cycle at %s", *current)
		}
		seen[*current] = true

		node, err := getNode(ctx, q, *current)
		if err != nil {
			return err
		}
		if node == nil {
			return nil
		}
		current = node.ParentID
	}

	return nil
}

func checkNameFree(ctx context.Context, q sqlx.QueryerContext, name string, parentID *string, exceptID string) error {
	var count int

	query := `
		SELECT COUNT(*) FROM document_nodes
		WHERE name = $1 AND COALESCE(parent_id, '') = $2 AND is_deleted = 0 AND id != $3
	`

	if err := sqlx.GetContext(ctx, q, &count, query, name, parentKey(parentID), exceptID); err != nil {
		return err
	}
	if count > 0 {
		return ErrDuplicateName
	}

	return nil
}

func parentKey(parentID *string) string {
	if parentID == nil {
		return ""
	}
	return *parentID
}

func mapConstraintError(err error) error {
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrDuplicateName
	}
	return err
}
