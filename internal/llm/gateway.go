package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/BerylCAtieno/docvault-api/internal/utils"
)

// Gateway is the text-generation capability used by search and the intent
// dispatcher.
type Gateway interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, params Params) (string, error)
	ClassifyIntent(ctx context.Context, command string) (string, error)
}

type Params struct {
	Temperature float64
	MaxTokens   int
	JSON        bool
}

var ErrEmptyResponse = errors.New("no choices in response")

type OpenRouterGateway struct {
	apiKey     string
	model      string
	baseURL    string
	logger     *utils.Logger
	client     *http.Client
	maxRetries int
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewOpenRouterGateway(apiKey, model, baseURL string, logger *utils.Logger) *OpenRouterGateway {
	return &OpenRouterGateway{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		maxRetries: 2,
	}
}

func (g *OpenRouterGateway) Generate(ctx context.Context, systemPrompt, userPrompt string, params Params) (string, error) {
	messages := make([]Message, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, Message{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, Message{Role: "user", Content: userPrompt})

	reqBody := chatRequest{
		Model:       g.model,
		Messages:    messages,
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
	}
	if params.JSON {
		reqBody.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}

		content, retry, err := g.send(ctx, jsonData)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if !retry {
			break
		}
	}

	return "", lastErr
}

func (g *OpenRouterGateway) send(ctx context.Context, payload []byte) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", false, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Title", "docvault")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", ctx.Err() == nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		g.logger.Error("OpenRouter API error", "status", resp.StatusCode, "body", string(body))
		retry := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return "", retry, fmt.Errorf("OpenRouter API returned status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", false, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if parsed.Error != nil {
		return "", false, fmt.Errorf("OpenRouter API error: %s", parsed.Error.Message)
	}

	if len(parsed.Choices) == 0 {
		return "", false, ErrEmptyResponse
	}

	return parsed.Choices[0].Message.Content, false, nil
}

const intentSystemPrompt = `You classify commands for a document management system. Respond ONLY with a JSON object (no markdown) of the form:
{
  "intent_type": "mcp_action" | "vector_search" | "folder_analysis",
  "confidence": number between 0 and 1,
  "action_type": "create_file" | "create_folder" | "search_documents" | "analyze_folder" | "other",
  "parameters": {
    "file_name": "file name with extension, or empty",
    "folder_name": "folder to create, or empty",
    "parent_folder": "existing folder to create inside, or empty",
    "content": "literal file content if given, or empty",
    "search_keywords": "keywords for a search, or empty",
    "analysis_type": "kind of folder analysis, or empty"
  },
  "reasoning": "one short sentence"
}
Use "mcp_action" only for creating files or folders. Leave a parameter empty when the command does not state it.`

// ClassifyIntent asks the model for the strict-JSON intent classification and
// returns the raw reply.
func (g *OpenRouterGateway) ClassifyIntent(ctx context.Context, command string) (string, error) {
	return g.Generate(ctx, intentSystemPrompt, command, Params{Temperature: 0, MaxTokens: 400, JSON: true})
}
