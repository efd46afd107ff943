package models

import (
	"time"
)

type NodeType string

const (
	NodeTypeFile   NodeType = "file"
	NodeTypeFolder NodeType = "folder"
)

type VectorStatus string

const (
	VectorStatusNotStarted VectorStatus = "not_started"
	VectorStatusProcessing VectorStatus = "processing"
	VectorStatusCompleted  VectorStatus = "completed"
	VectorStatusFailed     VectorStatus = "failed"
)

// DocumentNode is a file or folder in the document tree. A nil ParentID
// places the node at the root.
type DocumentNode struct {
	ID           string       `json:"id" db:"id"`
	Name         string       `json:"name" db:"name"`
	Type         NodeType     `json:"type" db:"type"`
	ParentID     *string      `json:"parent_id" db:"parent_id"`
	FilePath     string       `json:"file_path,omitempty" db:"file_path"`
	FileType     string       `json:"file_type,omitempty" db:"file_type"`
	FileSize     int64        `json:"file_size" db:"file_size"`
	MimeType     string       `json:"mime_type,omitempty" db:"mime_type"`
	Description  string       `json:"description,omitempty" db:"description"`
	IsDeleted    bool         `json:"is_deleted" db:"is_deleted"`
	IsVectorized bool         `json:"is_vectorized" db:"is_vectorized"`
	VectorStatus VectorStatus `json:"vector_status" db:"vector_status"`
	VectorizedAt *time.Time   `json:"vectorized_at,omitempty" db:"vectorized_at"`
	MinioPath    *string      `json:"minio_path,omitempty" db:"minio_path"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" db:"updated_at"`
}

func (n *DocumentNode) IsFolder() bool {
	return n.Type == NodeTypeFolder
}

// DocumentContent is one extracted unit (a page, a sheet or the whole text)
// when ChunkIndex is nil, or one chunk of such a unit otherwise.
type DocumentContent struct {
	ID          string    `json:"id" db:"id"`
	DocumentID  string    `json:"document_id" db:"document_id"`
	PageNumber  *int      `json:"page_number,omitempty" db:"page_number"`
	ChunkIndex  *int      `json:"chunk_index,omitempty" db:"chunk_index"`
	ContentText string    `json:"content_text,omitempty" db:"content_text"`
	ChunkText   string    `json:"chunk_text,omitempty" db:"chunk_text"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

func (c *DocumentContent) IsChunk() bool {
	return c.ChunkIndex != nil
}

// VectorRecord links a chunk row to its entry in the vector backend.
type VectorRecord struct {
	ID           string       `json:"id" db:"id"`
	DocumentID   string       `json:"document_id" db:"document_id"`
	ContentID    string       `json:"content_id" db:"content_id"`
	VectorID     *string      `json:"vector_id,omitempty" db:"vector_id"`
	Model        string       `json:"model" db:"model"`
	Status       VectorStatus `json:"vector_status" db:"vector_status"`
	ErrorMessage *string      `json:"error_message,omitempty" db:"error_message"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
}

// TreeNode is a node with its nested children, used for the tree view.
type TreeNode struct {
	DocumentNode
	Children []*TreeNode `json:"children,omitempty"`
}

type UploadRequest struct {
	File        []byte
	Filename    string
	ContentType string
	ParentID    *string
	Description string
}

type CreateFolderRequest struct {
	Name     string  `json:"name" validate:"required,max=255"`
	ParentID *string `json:"parent_id"`
}

// UpdateNodeRequest changes only the fields that are set. An empty ParentID
// moves the node to the root.
type UpdateNodeRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=255"`
	ParentID    *string `json:"parent_id"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

type SearchRequest struct {
	Query string `json:"query" validate:"required,max=1000"`
	TopK  int    `json:"top_k" validate:"omitempty,gte=1,lte=50"`
}

type SearchHit struct {
	DocumentID   string  `json:"document_id"`
	DocumentName string  `json:"document_name"`
	ChunkID      string  `json:"chunk_id"`
	Text         string  `json:"text"`
	Score        float32 `json:"score"`
}

type SearchResponse struct {
	Query          string      `json:"query"`
	OptimizedQuery string      `json:"optimized_query"`
	Hits           []SearchHit `json:"hits"`
	Answer         string      `json:"answer,omitempty"`
}
