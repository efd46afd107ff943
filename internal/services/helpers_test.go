package services

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BerylCAtieno/docvault-api/internal/config"
	"github.com/BerylCAtieno/docvault-api/internal/db"
	"github.com/BerylCAtieno/docvault-api/internal/extractor"
	"github.com/BerylCAtieno/docvault-api/internal/models"
	"github.com/BerylCAtieno/docvault-api/internal/repository"
	"github.com/BerylCAtieno/docvault-api/internal/utils"
	"github.com/BerylCAtieno/docvault-api/internal/vectorstore"
)

func newTestRepository(t *testing.T) repository.Repository {
	t.Helper()

	database, err := db.NewSQLiteDB(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := db.RunMigrations(database); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return repository.NewRepository(database)
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		UploadDir:       t.TempDir(),
		ChunkSize:       60,
		ChunkOverlap:    10,
		RunStopTimeout:  2 * time.Second,
		DocumentTimeout: 5 * time.Second,
	}
}

var baseTime = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

// addFile creates a file node; order fixes its position in the run listing.
func addFile(t *testing.T, repo repository.Repository, name string, order int) *models.DocumentNode {
	t.Helper()

	node := &models.DocumentNode{
		ID:        utils.GenerateID(),
		Name:      name,
		Type:      models.NodeTypeFile,
		FilePath:  "/data/uploads/" + name,
		FileType:  strings.TrimPrefix(filepath.Ext(name), "."),
		CreatedAt: baseTime.Add(time.Duration(order) * time.Second),
	}
	if err := repo.CreateNode(context.Background(), node); err != nil {
		t.Fatalf("CreateNode(%s) returned error: %v", name, err)
	}
	return node
}

func addFolder(t *testing.T, repo repository.Repository, name string, parentID *string) *models.DocumentNode {
	t.Helper()

	node := &models.DocumentNode{
		ID:       utils.GenerateID(),
		Name:     name,
		Type:     models.NodeTypeFolder,
		ParentID: parentID,
	}
	if err := repo.CreateNode(context.Background(), node); err != nil {
		t.Fatalf("CreateNode(%s) returned error: %v", name, err)
	}
	return node
}

func mustGet(t *testing.T, repo repository.Repository, id string) *models.DocumentNode {
	t.Helper()

	node, err := repo.GetByID(context.Background(), id)
	if err != nil || node == nil {
		t.Fatalf("GetByID(%s) = %v, %v", id, node, err)
	}
	return node
}

func waitForRun(t *testing.T, v *Vectorizer) models.RunStatus {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := v.Wait(ctx); err != nil {
		t.Fatalf("run did not finish: %v", err)
	}
	return v.Status()
}

// fakeExtractor serves canned units for .pdf and .txt paths.
type fakeExtractor struct {
	mu    sync.Mutex
	units map[string][]extractor.Unit
	errs  map[string]error
	calls int

	started chan string
	release chan struct{}
	delay   time.Duration

	active    int32
	maxActive int32
}

func newFakeExtractor() *fakeExtractor {
	return &fakeExtractor{
		units: make(map[string][]extractor.Unit),
		errs:  make(map[string]error),
	}
}

func (f *fakeExtractor) Supports(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".pdf" || ext == ".txt"
}

func (f *fakeExtractor) Extract(ctx context.Context, path string) (*extractor.Result, error) {
	n := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)
	for {
		cur := atomic.LoadInt32(&f.maxActive)
		if n <= cur || atomic.CompareAndSwapInt32(&f.maxActive, cur, n) {
			break
		}
	}

	if f.started != nil {
		f.started <- path
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	if err := f.errs[path]; err != nil {
		return nil, err
	}
	if units, ok := f.units[path]; ok {
		return &extractor.Result{Units: units}, nil
	}
	return &extractor.Result{Units: []extractor.Unit{{Text: "Plain text body of " + filepath.Base(path)}}}, nil
}

func (f *fakeExtractor) Chunk(text string, size, overlap int) []string {
	return extractor.Chunk(text, size, overlap)
}

func (f *fakeExtractor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeVectors fails embedding for documents listed in fail.
type fakeVectors struct {
	mu       sync.Mutex
	fail     map[string]bool
	inputs   map[string][]vectorstore.Chunk
	inserted map[string]int
}

func newFakeVectors() *fakeVectors {
	return &fakeVectors{
		fail:     make(map[string]bool),
		inputs:   make(map[string][]vectorstore.Chunk),
		inserted: make(map[string]int),
	}
}

func (f *fakeVectors) Model() string { return "fake-embed" }

func (f *fakeVectors) EmbedChunks(ctx context.Context, documentID string, chunks []vectorstore.Chunk) (*vectorstore.Batch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.inputs[documentID] = append([]vectorstore.Chunk(nil), chunks...)
	if f.fail[documentID] {
		return nil, vectorstore.ErrNoVectors
	}

	batch := &vectorstore.Batch{DocumentID: documentID, Model: "fake-embed"}
	for _, c := range chunks {
		batch.Points = append(batch.Points, vectorstore.Point{
			ID: c.ID, DocumentID: documentID, ChunkID: c.ID, Text: c.Text, Vector: []float32{1, 0},
		})
	}
	return batch, nil
}

func (f *fakeVectors) Insert(ctx context.Context, batch *vectorstore.Batch) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.inserted[batch.DocumentID] += len(batch.Points)
	return nil
}

func (f *fakeVectors) setFail(id string, fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[id] = fail
}

// fakeBlobs records archival uploads.
type fakeBlobs struct {
	mu        sync.Mutex
	available bool
	err       error
	keys      []string
}

func (f *fakeBlobs) Available() bool { return f.available }

func (f *fakeBlobs) UploadFile(ctx context.Context, localPath, key, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, key)
	return nil
}

