package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BerylCAtieno/docvault-api/internal/utils"
)

func cosine(a, b []float32) float32 {
	var dot float32
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot
}

func TestHashEmbedderDeterministicAndSimilar(t *testing.T) {
	h := NewHashEmbedder(128)

	vecs, err := h.Embed(context.Background(), []string{
		"invoice payment due",
		"invoice payment due",
		"Payment of the invoice",
		"holiday photos beach",
	})
	if err != nil {
		t.Fatalf("Embed returned error: %v", err)
	}

	if cosine(vecs[0], vecs[1]) < 0.999 {
		t.Errorf("identical texts should produce identical vectors")
	}
	if cosine(vecs[0], vecs[2]) <= cosine(vecs[0], vecs[3]) {
		t.Errorf("related text should score higher than unrelated text")
	}
	if len(vecs[0]) != 128 {
		t.Errorf("dimension = %d, want 128", len(vecs[0]))
	}
}

func TestHashEmbedderChinese(t *testing.T) {
	h := NewHashEmbedder(64)
	vecs, _ := h.Embed(context.Background(), []string{"财务发票", "发票报销", "旅游照片"})

	if cosine(vecs[0], vecs[1]) <= cosine(vecs[0], vecs[2]) {
		t.Errorf("texts sharing characters should be closer")
	}
}

func TestOpenAIEmbedderOrdersByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing auth header")
		}

		var req embeddingRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "test-model" || len(req.Input) != 2 {
			t.Errorf("unexpected request: %+v", req)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"index":1,"embedding":[0,1]},{"index":0,"embedding":[1,0]}]}`))
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(OpenAIConfig{
		BaseURL:    srv.URL + "/v1/",
		APIKey:     "secret",
		Model:      "test-model",
		Dimensions: 2,
	}, utils.NewDiscardLogger())

	vecs, err := e.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed returned error: %v", err)
	}
	if vecs[0][0] != 1 || vecs[1][1] != 1 {
		t.Errorf("vectors not ordered by index: %v", vecs)
	}
}

func TestOpenAIEmbedderRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"data":[{"index":0,"embedding":[0.5]}]}`))
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(OpenAIConfig{
		BaseURL:    srv.URL,
		Model:      "m",
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
	}, utils.NewDiscardLogger())

	vecs, err := e.Embed(context.Background(), []string{"x"})
	if err != nil {
		t.Fatalf("Embed returned error: %v", err)
	}
	if len(vecs) != 1 || atomic.LoadInt32(&calls) != 3 {
		t.Errorf("calls = %d, vectors = %v", calls, vecs)
	}
}

func TestOpenAIEmbedderDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(OpenAIConfig{BaseURL: srv.URL, Model: "m", RetryDelay: time.Millisecond}, utils.NewDiscardLogger())

	if _, err := e.Embed(context.Background(), []string{"x"}); err == nil {
		t.Fatalf("expected an error")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
