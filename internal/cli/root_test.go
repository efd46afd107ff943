package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/BerylCAtieno/docvault-api/internal/models"
	"github.com/BerylCAtieno/docvault-api/internal/tui"
)

type stubClient struct {
	status   models.RunStatus
	canceled bool
	err      error
	started  int
}

func (s *stubClient) Status(ctx context.Context) (models.RunStatus, error) { return s.status, s.err }
func (s *stubClient) Cancel(ctx context.Context) (bool, error)            { return s.canceled, s.err }

func (s *stubClient) Start(ctx context.Context) error {
	s.started++
	return s.err
}

// execute runs vectorctl with args and returns its output and the address the
// client was built for.
func execute(t *testing.T, client *stubClient, args ...string) (string, string, error) {
	t.Helper()

	var addr string
	root := newRootCommand(func(a string) tui.RunClient {
		addr = a
		return client
	})

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := root.Execute()
	return out.String(), addr, err
}

func TestStatusCommand(t *testing.T) {
	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	client := &stubClient{status: models.RunStatus{
		IsRunning:          true,
		TotalDocs:          4,
		ProcessedDocs:      2,
		FailedDocs:         1,
		ProgressPercentage: 75,
		CurrentDoc:         &models.CurrentDocument{Name: "report.pdf", Step: models.StepEmbedding},
		StartTime:          &start,
	}}

	out, addr, err := execute(t, client, "status", "--addr", "http://docvault:9000")
	if err != nil {
		t.Fatalf("status returned error: %v", err)
	}
	if addr != "http://docvault:9000" {
		t.Errorf("client built for %q", addr)
	}
	for _, want := range []string{"running", "75%", "2 processed", "1 failed", "4 total", "report.pdf (embedding)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestStatusCommandJSON(t *testing.T) {
	client := &stubClient{status: models.RunStatus{TotalDocs: 3, ProcessedDocs: 3, ProgressPercentage: 100}}

	out, _, err := execute(t, client, "status", "--json")
	if err != nil {
		t.Fatalf("status returned error: %v", err)
	}

	var got models.RunStatus
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if got.TotalDocs != 3 || got.ProcessedDocs != 3 || got.ProgressPercentage != 100 {
		t.Errorf("status = %+v", got)
	}
}

func TestCancelCommand(t *testing.T) {
	tests := []struct {
		canceled bool
		want     string
	}{
		{true, "cancel requested"},
		{false, "no active run"},
	}

	for _, tt := range tests {
		out, _, err := execute(t, &stubClient{canceled: tt.canceled}, "cancel")
		if err != nil {
			t.Fatalf("cancel returned error: %v", err)
		}
		if !strings.Contains(out, tt.want) {
			t.Errorf("cancel output = %q, want %q", out, tt.want)
		}
	}
}

func TestStartCommand(t *testing.T) {
	client := &stubClient{}

	out, _, err := execute(t, client, "start")
	if err != nil {
		t.Fatalf("start returned error: %v", err)
	}
	if client.started != 1 {
		t.Errorf("Start called %d times, want 1", client.started)
	}
	if !strings.Contains(out, "vectorization started") {
		t.Errorf("start output = %q", out)
	}
}

func TestCommandErrors(t *testing.T) {
	client := &stubClient{err: errors.New("connection refused")}

	for _, args := range [][]string{{"status"}, {"start"}, {"cancel"}} {
		if _, _, err := execute(t, client, args...); err == nil || !strings.Contains(err.Error(), "connection refused") {
			t.Errorf("%v: err = %v, want the client error", args, err)
		}
	}
}

func TestRejectsExtraArgs(t *testing.T) {
	if _, _, err := execute(t, &stubClient{}, "status", "extra"); err == nil {
		t.Errorf("expected an error for an unexpected argument")
	}
}
