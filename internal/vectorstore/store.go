package vectorstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/BerylCAtieno/docvault-api/internal/embedding"
)

// Point is one embedded chunk as stored in a backend.
type Point struct {
	ID         string
	DocumentID string
	ChunkID    string
	Text       string
	Vector     []float32
}

type Match struct {
	ID         string  `json:"id"`
	DocumentID string  `json:"document_id"`
	ChunkID    string  `json:"chunk_id"`
	Text       string  `json:"text"`
	Score      float32 `json:"score"`
}

// Index is a similarity-search backend.
type Index interface {
	Upsert(ctx context.Context, points []Point) error
	Search(ctx context.Context, vector []float32, limit int) ([]Match, error)
	DeleteDocument(ctx context.Context, documentID string) error
	Close() error
}

// Chunk is an embedding input. EmbedText, when set, replaces Text as the
// embedding input while Text is what gets stored.
type Chunk struct {
	ID        string
	Text      string
	EmbedText string
}

// Batch holds embedded chunks ready for Insert.
type Batch struct {
	DocumentID string
	Model      string
	Points     []Point
}

var ErrNoVectors = errors.New("embedder returned no vectors")

// Store pairs an embedder with an index.
type Store struct {
	embedder embedding.Embedder
	index    Index
}

func New(embedder embedding.Embedder, index Index) *Store {
	return &Store{embedder: embedder, index: index}
}

func (s *Store) Model() string {
	return s.embedder.Model()
}

// EmbedChunks embeds every chunk of a document. A missing or empty vector for
// any chunk fails the whole batch.
func (s *Store) EmbedChunks(ctx context.Context, documentID string, chunks []Chunk) (*Batch, error) {
	if len(chunks) == 0 {
		return nil, ErrNoVectors
	}

	inputs := make([]string, len(chunks))
	for i, c := range chunks {
		inputs[i] = c.Text
		if c.EmbedText != "" {
			inputs[i] = c.EmbedText
		}
	}

	vectors, err := s.embedder.Embed(ctx, inputs)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, ErrNoVectors
	}

	batch := &Batch{DocumentID: documentID, Model: s.embedder.Model(), Points: make([]Point, len(chunks))}
	for i, c := range chunks {
		if len(vectors[i]) == 0 {
			return nil, ErrNoVectors
		}
		batch.Points[i] = Point{
			ID:         c.ID,
			DocumentID: documentID,
			ChunkID:    c.ID,
			Text:       c.Text,
			Vector:     vectors[i],
		}
	}

	return batch, nil
}

func (s *Store) Insert(ctx context.Context, batch *Batch) error {
	if batch == nil || len(batch.Points) == 0 {
		return ErrNoVectors
	}
	return s.index.Upsert(ctx, batch.Points)
}

func (s *Store) Search(ctx context.Context, query string, limit int) ([]Match, error) {
	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return nil, ErrNoVectors
	}

	return s.index.Search(ctx, vectors[0], limit)
}

func (s *Store) DeleteDocument(ctx context.Context, documentID string) error {
	return s.index.DeleteDocument(ctx, documentID)
}

func (s *Store) Close() error {
	return s.index.Close()
}
