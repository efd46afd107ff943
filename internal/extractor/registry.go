package extractor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Unit is one independently stored piece of extracted text. PageNumber is set
// for paginated formats (PDF pages, spreadsheet sheets).
type Unit struct {
	PageNumber *int
	Text       string
}

type Result struct {
	Units    []Unit
	Metadata map[string]any
}

// Text joins every unit, separated by blank lines.
func (r *Result) Text() string {
	parts := make([]string, 0, len(r.Units))
	for _, u := range r.Units {
		parts = append(parts, u.Text)
	}
	return strings.Join(parts, "\n\n")
}

type Extractor interface {
	Extract(ctx context.Context, path string) (*Result, error)
}

// BytesExtractor adapts a function over file contents to Extractor.
type BytesExtractor func(data []byte) ([]Unit, error)

func (f BytesExtractor) Extract(ctx context.Context, path string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}

	units, err := f(data)
	if err != nil {
		return nil, err
	}

	return &Result{
		Units:    units,
		Metadata: map[string]any{"units": len(units), "bytes": len(data)},
	}, nil
}

// Registry maps lowercase file extensions to extractors.
type Registry struct {
	byExt map[string]Extractor
}

func NewRegistry() *Registry {
	r := &Registry{byExt: make(map[string]Extractor)}

	r.Register(".pdf", BytesExtractor(ExtractPDFPages))
	r.Register(".docx", BytesExtractor(singleUnit(ExtractDOCX)))
	r.Register(".xlsx", BytesExtractor(ExtractXLSXSheets))
	for _, ext := range []string{".txt", ".md", ".csv", ".json", ".log"} {
		r.Register(ext, BytesExtractor(singleUnit(ExtractTXT)))
	}

	return r
}

func (r *Registry) Register(ext string, e Extractor) {
	r.byExt[normalizeExt(ext)] = e
}

// Supports reports whether an extractor is registered for the path's extension.
func (r *Registry) Supports(path string) bool {
	if path == "" {
		return false
	}
	_, ok := r.byExt[normalizeExt(filepath.Ext(path))]
	return ok
}

func (r *Registry) Extract(ctx context.Context, path string) (*Result, error) {
	ext := normalizeExt(filepath.Ext(path))
	e, ok := r.byExt[ext]
	if !ok {
		return nil, fmt.Errorf("no extractor registered for %q", ext)
	}

	result, err := e.Extract(ctx, path)
	if err != nil {
		return nil, err
	}
	if len(result.Units) == 0 {
		return nil, fmt.Errorf("no text could be extracted from %s", filepath.Base(path))
	}

	return result, nil
}

func (r *Registry) Chunk(text string, size, overlap int) []string {
	return Chunk(text, size, overlap)
}

func singleUnit(fn func([]byte) (string, error)) func([]byte) ([]Unit, error) {
	return func(data []byte) ([]Unit, error) {
		text, err := fn(data)
		if err != nil {
			return nil, err
		}
		return []Unit{{Text: text}}, nil
	}
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
