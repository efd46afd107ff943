package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/BerylCAtieno/docvault-api/internal/config"
	"github.com/BerylCAtieno/docvault-api/internal/extractor"
	"github.com/BerylCAtieno/docvault-api/internal/models"
	"github.com/BerylCAtieno/docvault-api/internal/repository"
	"github.com/BerylCAtieno/docvault-api/internal/storage"
	"github.com/BerylCAtieno/docvault-api/internal/utils"
	"github.com/BerylCAtieno/docvault-api/internal/vectorstore"
)

// TextExtractor pulls text out of stored files and splits it into chunks.
type TextExtractor interface {
	Supports(path string) bool
	Extract(ctx context.Context, path string) (*extractor.Result, error)
	Chunk(text string, size, overlap int) []string
}

// VectorWriter embeds chunks and writes them to the vector backend.
type VectorWriter interface {
	Model() string
	EmbedChunks(ctx context.Context, documentID string, chunks []vectorstore.Chunk) (*vectorstore.Batch, error)
	Insert(ctx context.Context, batch *vectorstore.Batch) error
}

var errNoChunks = errors.New("chunking produced no chunks")

// Vectorizer runs background vectorization of pending documents. At most one
// run is active per Vectorizer; a new Start cancels and replaces the current
// one.
type Vectorizer struct {
	repo      repository.Repository
	extractor TextExtractor
	blobs     storage.BlobStore
	vectors   VectorWriter
	logger    *utils.Logger

	chunkSize    int
	chunkOverlap int
	stopTimeout  time.Duration
	docTimeout   time.Duration

	baseCtx context.Context
	abort   context.CancelFunc

	startMu sync.Mutex

	mu      sync.RWMutex
	status  models.RunStatus
	gen     uint64
	done    chan struct{}
	stopRun context.CancelFunc
}

// NewVectorizer builds the orchestrator. blobs may be nil when archival
// storage is not configured.
func NewVectorizer(repo repository.Repository, ext TextExtractor, blobs storage.BlobStore, vectors VectorWriter, cfg *config.Config, logger *utils.Logger) *Vectorizer {
	ctx, cancel := context.WithCancel(context.Background())

	v := &Vectorizer{
		repo:         repo,
		extractor:    ext,
		blobs:        blobs,
		vectors:      vectors,
		logger:       logger.With("component", "vectorizer"),
		chunkSize:    cfg.ChunkSize,
		chunkOverlap: cfg.ChunkOverlap,
		stopTimeout:  cfg.RunStopTimeout,
		docTimeout:   cfg.DocumentTimeout,
		baseCtx:      ctx,
		abort:        cancel,
	}

	if v.chunkSize <= 0 {
		v.chunkSize = extractor.DefaultChunkSize
	}
	if v.chunkOverlap < 0 || v.chunkOverlap >= v.chunkSize {
		v.chunkOverlap = 0
	}
	if v.stopTimeout <= 0 {
		v.stopTimeout = 5 * time.Second
	}
	if v.docTimeout <= 0 {
		v.docTimeout = 10 * time.Minute
	}

	return v
}

// Start launches a run in the background and returns once it is scheduled. A
// run that is still active is canceled first and given stopTimeout to wind
// down; after that its in-flight document is aborted.
func (v *Vectorizer) Start() {
	v.startMu.Lock()
	defer v.startMu.Unlock()

	v.mu.Lock()
	running := v.status.IsRunning
	previous, stopPrevious := v.done, v.stopRun
	if running {
		v.status.Canceled = true
	}
	v.mu.Unlock()

	if running && previous != nil && !v.waitStopped(previous) {
		v.logger.Warn("Previous vectorization run did not stop in time, aborting its current document")
		if stopPrevious != nil {
			stopPrevious()
		}
		if !v.waitStopped(previous) {
			v.logger.Error("Previous vectorization run ignored abort, replacing it")
		}
	}

	now := time.Now().UTC()
	done := make(chan struct{})
	ctx, stop := context.WithCancel(v.baseCtx)

	v.mu.Lock()
	v.gen++
	gen := v.gen
	v.status = models.RunStatus{IsRunning: true, StartTime: &now}
	v.done = done
	v.stopRun = stop
	v.mu.Unlock()

	go v.run(ctx, stop, gen, done)
}

func (v *Vectorizer) waitStopped(done <-chan struct{}) bool {
	select {
	case <-done:
		return true
	case <-time.After(v.stopTimeout):
		return false
	}
}

// Cancel asks the active run to stop before its next document. It reports
// whether a run was active.
func (v *Vectorizer) Cancel() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.status.IsRunning {
		return false
	}

	v.status.Canceled = true
	v.logger.Info("Vectorization cancel requested")
	return true
}

// Status returns a consistent snapshot of the current or last run.
func (v *Vectorizer) Status() models.RunStatus {
	v.mu.RLock()
	defer v.mu.RUnlock()

	s := v.status
	if s.CurrentDoc != nil {
		doc := *s.CurrentDoc
		s.CurrentDoc = &doc
	}
	if s.StartTime != nil {
		t := *s.StartTime
		s.StartTime = &t
	}
	s.ProgressPercentage = s.Progress()

	return s
}

// Wait blocks until the latest run has exited or ctx is done.
func (v *Vectorizer) Wait(ctx context.Context) error {
	v.mu.RLock()
	done := v.done
	v.mu.RUnlock()

	if done == nil {
		return nil
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown cancels the active run and waits for it. When ctx expires first,
// in-flight document work is aborted.
func (v *Vectorizer) Shutdown(ctx context.Context) error {
	v.Cancel()

	err := v.Wait(ctx)
	if err != nil {
		v.abort()
	}
	return err
}

func (v *Vectorizer) update(gen uint64, fn func(s *models.RunStatus)) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.gen != gen {
		return
	}
	fn(&v.status)
}

func (v *Vectorizer) shouldStop(gen uint64) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return v.gen != gen || v.status.Canceled
}

func (v *Vectorizer) setStep(gen uint64, doc *models.DocumentNode, step string) {
	v.update(gen, func(s *models.RunStatus) {
		s.CurrentDoc = &models.CurrentDocument{ID: doc.ID, Name: doc.Name, Step: step}
	})
}

func (v *Vectorizer) run(ctx context.Context, stop context.CancelFunc, gen uint64, done chan struct{}) {
	defer close(done)
	defer stop()
	defer v.update(gen, func(s *models.RunStatus) {
		s.IsRunning = false
		s.CurrentDoc = nil
	})
	defer func() {
		if r := recover(); r != nil {
			v.logger.Error("Vectorization run aborted", "panic", r)
		}
	}()

	docs, err := v.pendingDocuments(ctx)
	if err != nil {
		v.logger.Error("Failed to list documents for vectorization", "error", err)
		return
	}

	v.update(gen, func(s *models.RunStatus) { s.TotalDocs = len(docs) })
	if len(docs) == 0 {
		v.logger.Info("No documents need vectorization")
		return
	}

	v.logger.Info("Vectorization run started", "documents", len(docs))

	for i := range docs {
		if v.shouldStop(gen) {
			v.logger.Info("Vectorization run canceled", "remaining", len(docs)-i)
			return
		}

		ok := v.processDocument(ctx, gen, &docs[i])
		v.update(gen, func(s *models.RunStatus) {
			if ok {
				s.ProcessedDocs++
			} else {
				s.FailedDocs++
			}
		})
	}

	status := v.Status()
	v.logger.Info("Vectorization run finished",
		"processed", status.ProcessedDocs,
		"failed", status.FailedDocs)
}

// pendingDocuments lists unvectorized files that have an extractor. Other
// files are left out of the run without being marked.
func (v *Vectorizer) pendingDocuments(ctx context.Context) ([]models.DocumentNode, error) {
	all, err := v.repo.FindUnvectorizedFiles(ctx)
	if err != nil {
		return nil, err
	}

	docs := make([]models.DocumentNode, 0, len(all))
	for _, doc := range all {
		if v.extractor.Supports(doc.FilePath) {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (v *Vectorizer) processDocument(ctx context.Context, gen uint64, doc *models.DocumentNode) (ok bool) {
	docCtx, cancel := context.WithTimeout(ctx, v.docTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			v.logger.Error("Panic while vectorizing document", "id", doc.ID, "name", doc.Name, "panic", r)
			v.markFailed(ctx, doc)
			ok = false
		}
	}()

	if err := v.vectorize(docCtx, gen, doc); err != nil {
		v.logger.Warn("Document vectorization failed", "id", doc.ID, "name", doc.Name, "error", err)
		v.markFailed(ctx, doc)
		return false
	}

	v.logger.Info("Document vectorized", "id", doc.ID, "name", doc.Name)
	return true
}

func (v *Vectorizer) vectorize(ctx context.Context, gen uint64, doc *models.DocumentNode) error {
	v.setStep(gen, doc, models.StepExtracting)

	doc.VectorStatus = models.VectorStatusProcessing
	if err := v.repo.UpdateVectorState(ctx, doc); err != nil {
		return fmt.Errorf("failed to mark document processing: %w", err)
	}

	chunks, err := v.loadChunks(ctx, gen, doc)
	if err != nil {
		return err
	}

	v.archive(ctx, gen, doc)

	v.setStep(gen, doc, models.StepEmbedding)

	inputs := make([]vectorstore.Chunk, len(chunks))
	for i, c := range chunks {
		inputs[i] = vectorstore.Chunk{
			ID:        c.ID,
			Text:      c.ChunkText,
			EmbedText: enhanceChunk(doc.Description, c.ChunkText),
		}
	}

	batch, embedErr := v.vectors.EmbedChunks(ctx, doc.ID, inputs)
	if embedErr == nil {
		embedErr = v.vectors.Insert(ctx, batch)
	}

	v.setStep(gen, doc, models.StepSaving)

	if err := v.repo.CreateVectorRecords(ctx, v.vectorRecords(doc, chunks, embedErr)); err != nil {
		v.logger.Warn("Failed to save vector records", "id", doc.ID, "error", err)
	}
	if embedErr != nil {
		return fmt.Errorf("failed to store vectors: %w", embedErr)
	}

	now := time.Now().UTC()
	doc.IsVectorized = true
	doc.VectorStatus = models.VectorStatusCompleted
	doc.VectorizedAt = &now

	if err := v.repo.UpdateVectorState(ctx, doc); err != nil {
		return fmt.Errorf("failed to save vector state: %w", err)
	}

	return nil
}

// loadChunks returns the chunk rows of a document, extracting and chunking
// only what is not stored yet.
func (v *Vectorizer) loadChunks(ctx context.Context, gen uint64, doc *models.DocumentNode) ([]models.DocumentContent, error) {
	hasContent, err := v.repo.HasContent(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check stored content: %w", err)
	}

	var units []models.DocumentContent

	if hasContent {
		stored, err := v.repo.ListContents(ctx, doc.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load stored content: %w", err)
		}

		var chunks []models.DocumentContent
		for _, c := range stored {
			if c.IsChunk() {
				chunks = append(chunks, c)
			} else {
				units = append(units, c)
			}
		}
		if len(chunks) > 0 {
			return chunks, nil
		}
	} else {
		result, err := v.extractor.Extract(ctx, doc.FilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to extract text: %w", err)
		}

		for _, u := range result.Units {
			units = append(units, models.DocumentContent{
				ID:          utils.GenerateID(),
				DocumentID:  doc.ID,
				PageNumber:  u.PageNumber,
				ContentText: u.Text,
			})
		}
	}

	v.setStep(gen, doc, models.StepChunking)

	var chunks []models.DocumentContent
	for _, u := range units {
		for _, text := range v.extractor.Chunk(u.ContentText, v.chunkSize, v.chunkOverlap) {
			index := len(chunks)
			chunks = append(chunks, models.DocumentContent{
				ID:         utils.GenerateID(),
				DocumentID: doc.ID,
				PageNumber: u.PageNumber,
				ChunkIndex: &index,
				ChunkText:  text,
			})
		}
	}
	if len(chunks) == 0 {
		return nil, errNoChunks
	}

	rows := make([]models.DocumentContent, 0, len(units)+len(chunks))
	rows = append(rows, units...)
	rows = append(rows, chunks...)

	if err := v.repo.ReplaceContents(ctx, doc.ID, rows); err != nil {
		return nil, fmt.Errorf("failed to save content: %w", err)
	}

	return chunks, nil
}

// archive uploads the original file once. Failures are logged and do not
// stop vectorization.
func (v *Vectorizer) archive(ctx context.Context, gen uint64, doc *models.DocumentNode) {
	if v.blobs == nil || !v.blobs.Available() || doc.MinioPath != nil {
		return
	}

	v.setStep(gen, doc, models.StepArchiving)

	key := storage.ArchiveKey(doc.Name, time.Now())
	if err := v.blobs.UploadFile(ctx, doc.FilePath, key, doc.MimeType); err != nil {
		v.logger.Warn("Failed to archive document", "id", doc.ID, "key", key, "error", err)
		return
	}

	doc.MinioPath = &key
}

func (v *Vectorizer) vectorRecords(doc *models.DocumentNode, chunks []models.DocumentContent, embedErr error) []models.VectorRecord {
	records := make([]models.VectorRecord, len(chunks))
	for i, c := range chunks {
		rec := models.VectorRecord{
			ID:         utils.GenerateID(),
			DocumentID: doc.ID,
			ContentID:  c.ID,
			Model:      v.vectors.Model(),
			Status:     models.VectorStatusCompleted,
		}
		if embedErr != nil {
			msg := embedErr.Error()
			rec.Status = models.VectorStatusFailed
			rec.ErrorMessage = &msg
		} else {
			vectorID := c.ID
			rec.VectorID = &vectorID
		}
		records[i] = rec
	}
	return records
}

// markFailed still runs when the run was aborted, so the document does not
// stay in processing.
func (v *Vectorizer) markFailed(ctx context.Context, doc *models.DocumentNode) {
	doc.IsVectorized = false
	doc.VectorStatus = models.VectorStatusFailed

	if err := v.repo.UpdateVectorState(context.WithoutCancel(ctx), doc); err != nil {
		v.logger.Error("Failed to mark document failed", "id", doc.ID, "error", err)
	}
}

// enhanceChunk prefixes the document description to a chunk's embedding
// input. It returns "" when there is no description.
func enhanceChunk(description, chunk string) string {
	description = strings.TrimSpace(description)
	if description == "" {
		return ""
	}
	return fmt.Sprintf("description: %s\n\ncontent: %s", description, chunk)
}
