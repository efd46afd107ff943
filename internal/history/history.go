package history

import (
	"context"
	"sync"

	"github.com/BerylCAtieno/docvault-api/internal/models"
)

// Recorder keeps the most recent dispatch results, newest first.
type Recorder interface {
	Record(ctx context.Context, result *models.DispatchResult) error
	List(ctx context.Context, limit int) ([]models.DispatchResult, error)
}

// MemoryRecorder is a bounded in-process history.
type MemoryRecorder struct {
	mu      sync.Mutex
	size    int
	entries []models.DispatchResult
}

func NewMemoryRecorder(size int) *MemoryRecorder {
	if size <= 0 {
		size = 100
	}
	return &MemoryRecorder{size: size}
}

func (m *MemoryRecorder) Record(ctx context.Context, result *models.DispatchResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = append([]models.DispatchResult{*result}, m.entries...)
	if len(m.entries) > m.size {
		m.entries = m.entries[:m.size]
	}
	return nil
}

func (m *MemoryRecorder) List(ctx context.Context, limit int) ([]models.DispatchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.DispatchResult, n)
	copy(out, m.entries[:n])
	return out, nil
}
