package assistant_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"codearena/internal/assistant"
	appErr "codearena/pkg/errors"
)

type captured struct {
	path   string
	body   map[string]interface{}
	called int
}

func newOllama(t *testing.T, status int, payload string) (*httptest.Server, *captured) {
	t.Helper()
	got := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.called++
		got.path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got.body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(payload))
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func TestAskSendsGenerateRequest(t *testing.T) {
	t.Parallel()
	srv, got := newOllama(t, http.StatusOK, `{"model":"mistral","response":"Use a hash map.","done":true}`)
	client := assistant.NewClient(assistant.Config{BaseURL: srv.URL}, srv.Client())

	reply, err := client.Ask(context.Background(), "How do I solve two sum?")
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if reply != "Use a hash map." {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if got.path != "/api/generate" {
		t.Fatalf("unexpected path: %s", got.path)
	}
	if got.body["model"] != "mistral" || got.body["prompt"] != "How do I solve two sum?" || got.body["stream"] != false {
		t.Fatalf("unexpected body: %v", got.body)
	}
}

func TestAskValidatesMessage(t *testing.T) {
	t.Parallel()
	srv, got := newOllama(t, http.StatusOK, `{}`)
	client := assistant.NewClient(assistant.Config{BaseURL: srv.URL, MaxPromptBytes: 8}, srv.Client())
	if _, err := client.Ask(context.Background(), "  "); !appErr.Is(err, appErr.InvalidParams) {
		t.Fatalf("expected InvalidParams, got %v", err)
	}
	if _, err := client.Ask(context.Background(), strings.Repeat("x", 9)); !appErr.Is(err, appErr.RequestTooLarge) {
		t.Fatalf("expected RequestTooLarge, got %v", err)
	}
	if got.called != 0 {
		t.Fatalf("upstream must not be called for rejected messages")
	}
}

func TestAskUpstreamFailure(t *testing.T) {
	t.Parallel()
	srv, _ := newOllama(t, http.StatusNotFound, `{"error":"model 'mistral' not found"}`)
	client := assistant.NewClient(assistant.Config{BaseURL: srv.URL}, srv.Client())
	_, err := client.Ask(context.Background(), "hi")
	if !appErr.Is(err, appErr.AssistantFailed) {
		t.Fatalf("expected AssistantFailed, got %v", err)
	}
	e := appErr.GetError(err)
	if e.Error() != "Ollama error" || e.Details["reason"] != "model 'mistral' not found" {
		t.Fatalf("unexpected error: %v %v", e, e.Details)
	}
	if e.Code.HTTPStatus() != http.StatusBadGateway {
		t.Fatalf("assistant failures must be 502")
	}
}

func TestAskUnreachable(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	client := assistant.NewClient(assistant.Config{BaseURL: url}, nil)
	if _, err := client.Ask(context.Background(), "hi"); !appErr.Is(err, appErr.AssistantFailed) {
		t.Fatalf("expected AssistantFailed, got %v", err)
	}
}

func TestAskTimeout(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)
	client := assistant.NewClient(assistant.Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, srv.Client())
	start := time.Now()
	if _, err := client.Ask(context.Background(), "hi"); !appErr.Is(err, appErr.Timeout) {
		t.Fatalf("expected Timeout, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("assistant timeout not applied")
	}
}
