package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/BerylCAtieno/docvault-api/internal/utils"
	"github.com/pkoukk/tiktoken-go"
)

type OpenAIConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
	// MaxTokens bounds each input; longer inputs are truncated.
	MaxTokens  int
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration
}

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint (OpenAI,
// Ollama, vLLM and similar).
type OpenAIEmbedder struct {
	cfg    OpenAIConfig
	client *http.Client
	logger *utils.Logger

	encOnce sync.Once
	enc     *tiktoken.Tiktoken
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewOpenAIEmbedder(cfg OpenAIConfig, logger *utils.Logger) *OpenAIEmbedder {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2048
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &OpenAIEmbedder{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

func (e *OpenAIEmbedder) Model() string   { return e.cfg.Model }
func (e *OpenAIEmbedder) Dimensions() int { return e.cfg.Dimensions }

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	input := make([]string, len(texts))
	for i, t := range texts {
		input[i] = e.truncate(t)
	}

	body, err := json.Marshal(embeddingRequest{Model: e.cfg.Model, Input: input})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < e.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := e.cfg.RetryDelay * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		vectors, retry, err := e.do(ctx, body, len(texts))
		if err == nil {
			return vectors, nil
		}
		lastErr = err
		if !retry {
			break
		}
		e.logger.Warn("Embedding request failed, retrying", "attempt", attempt+1, "error", err)
	}

	return nil, lastErr
}

func (e *OpenAIEmbedder) do(ctx context.Context, body []byte, want int) ([][]float32, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.BaseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		retry := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retry, fmt.Errorf("embedding API returned status %d", resp.StatusCode)
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if parsed.Error != nil {
		return nil, false, fmt.Errorf("embedding API error: %s", parsed.Error.Message)
	}
	if len(parsed.Data) != want {
		return nil, false, fmt.Errorf("embedding API returned %d vectors for %d inputs", len(parsed.Data), want)
	}

	vectors := make([][]float32, want)
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= want {
			return nil, false, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		if e.cfg.Dimensions > 0 && len(d.Embedding) != e.cfg.Dimensions {
			return nil, false, fmt.Errorf("unexpected embedding dimension: got %d, expected %d", len(d.Embedding), e.cfg.Dimensions)
		}
		vectors[d.Index] = d.Embedding
	}

	return vectors, false, nil
}

// truncate cuts text to MaxTokens using the cl100k tokenizer. Text that is
// short in bytes cannot exceed the budget and skips tokenization.
func (e *OpenAIEmbedder) truncate(text string) string {
	if len(text) <= e.cfg.MaxTokens {
		return text
	}

	e.encOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			e.logger.Warn("Tokenizer unavailable, truncating by characters", "error", err)
			return
		}
		e.enc = enc
	})

	if e.enc == nil {
		runes := []rune(text)
		// roughly two runes per token for mixed Chinese and English text
		if limit := e.cfg.MaxTokens * 2; len(runes) > limit {
			return string(runes[:limit])
		}
		return text
	}

	tokens := e.enc.Encode(text, nil, nil)
	if len(tokens) <= e.cfg.MaxTokens {
		return text
	}
	return e.enc.Decode(tokens[:e.cfg.MaxTokens])
}
