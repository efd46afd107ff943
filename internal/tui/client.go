package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/BerylCAtieno/docvault-api/internal/models"
)

// RunClient talks to the vectorization endpoints of a running server.
type RunClient interface {
	Status(ctx context.Context) (models.RunStatus, error)
	Start(ctx context.Context) error
	Cancel(ctx context.Context) (bool, error)
}

type APIClient struct {
	baseURL string
	http    *http.Client
}

// NewAPIClient takes the server address, e.g. http://localhost:8080.
func NewAPIClient(addr string) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(addr, "/") + "/api/v1/vectorization",
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *APIClient) Status(ctx context.Context) (models.RunStatus, error) {
	var status models.RunStatus
	err := c.do(ctx, http.MethodGet, "/status", http.StatusOK, &status)
	return status, err
}

func (c *APIClient) Start(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/start", http.StatusAccepted, nil)
}

func (c *APIClient) Cancel(ctx context.Context) (bool, error) {
	var out struct {
		Canceled bool `json:"canceled"`
	}
	err := c.do(ctx, http.MethodPost, "/cancel", http.StatusOK, &out)
	return out.Canceled, err
}

func (c *APIClient) do(ctx context.Context, method, path string, want int, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
