package remote_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"codearena/internal/remote"
	appErr "codearena/pkg/errors"
)

type captured struct {
	path   string
	key    string
	host   string
	body   map[string]interface{}
	called int
}

func newUpstream(t *testing.T, status int, payload string) (*httptest.Server, *captured) {
	t.Helper()
	got := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.called++
		got.path = r.URL.RequestURI()
		got.key = r.Header.Get("X-RapidAPI-Key")
		got.host = r.Header.Get("X-RapidAPI-Host")
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&got.body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(payload))
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func TestLanguageTable(t *testing.T) {
	t.Parallel()
	cases := map[string]int{
		"javascript": 63, "Python": 71, "cpp": 54, "c": 50, "java": 62,
		"go": 60, "rust": 73, "typescript": 74, "brainfuck": 63, "": 63,
	}
	for name, want := range cases {
		if got := remote.LanguageID(name); got != want {
			t.Fatalf("LanguageID(%q) = %d, want %d", name, got, want)
		}
	}
	if remote.KnownLanguage("cobol") || !remote.KnownLanguage("GO") {
		t.Fatalf("unexpected KnownLanguage result")
	}
}

func TestExecuteSendsSubmission(t *testing.T) {
	t.Parallel()
	srv, got := newUpstream(t, http.StatusOK, `{"stdout":"hi\n","stderr":null,"status":{"id":3,"description":"Accepted"}}`)
	client := remote.NewClient(remote.Config{BaseURL: srv.URL, APIKey: "key", APIHost: "judge0.test"}, srv.Client())

	res, err := client.Execute(context.Background(), remote.Request{Language: "python", SourceCode: "print('hi')"})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if res.Output != "hi\n" || res.LanguageID != 71 || res.Status != "Accepted" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if got.path != "/submissions?base64_encoded=false&wait=true" || got.key != "key" || got.host != "judge0.test" {
		t.Fatalf("unexpected request: %+v", got)
	}
	if got.body["language_id"] != float64(71) || got.body["source_code"] != "print('hi')" || got.body["stdin"] != "" {
		t.Fatalf("unexpected body: %v", got.body)
	}
}

func TestExecuteOutputPriority(t *testing.T) {
	t.Parallel()
	cases := []struct {
		payload string
		want    string
	}{
		{`{"stdout":"out","stderr":"err","compile_output":"co","message":"m"}`, "out"},
		{`{"stdout":"","stderr":"err","compile_output":"co","message":"m"}`, "err"},
		{`{"stdout":null,"stderr":null,"compile_output":"co","message":"m"}`, "co"},
		{`{"message":"m"}`, "m"},
		{`{}`, "No output"},
	}
	for _, tc := range cases {
		srv, _ := newUpstream(t, http.StatusOK, tc.payload)
		client := remote.NewClient(remote.Config{BaseURL: srv.URL, APIKey: "key"}, srv.Client())
		res, err := client.Execute(context.Background(), remote.Request{Language: "c", SourceCode: "x"})
		if err != nil {
			t.Fatalf("execute failed: %v", err)
		}
		if res.Output != tc.want {
			t.Fatalf("payload %s: got %q, want %q", tc.payload, res.Output, tc.want)
		}
	}
}

func TestExecuteWithoutKeyIsConfigurationError(t *testing.T) {
	t.Parallel()
	srv, got := newUpstream(t, http.StatusOK, `{}`)
	client := remote.NewClient(remote.Config{BaseURL: srv.URL}, srv.Client())
	_, err := client.Execute(context.Background(), remote.Request{Language: "c", SourceCode: "x"})
	if !appErr.Is(err, appErr.ConfigurationError) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if appErr.GetCode(err).HTTPStatus() != http.StatusInternalServerError {
		t.Fatalf("configuration errors must be 500")
	}
	if got.called != 0 {
		t.Fatalf("upstream must not be called without a key")
	}
	if client.Configured() {
		t.Fatalf("client must report missing key")
	}
}

func TestExecuteValidatesRequest(t *testing.T) {
	t.Parallel()
	client := remote.NewClient(remote.Config{APIKey: "key"}, nil)
	for _, req := range []remote.Request{{SourceCode: "x"}, {Language: "c"}} {
		if _, err := client.Execute(context.Background(), req); !appErr.Is(err, appErr.InvalidParams) {
			t.Fatalf("expected InvalidParams for %+v, got %v", req, err)
		}
	}
}

func TestExecuteUpstreamFailure(t *testing.T) {
	t.Parallel()
	srv, _ := newUpstream(t, http.StatusUnprocessableEntity, `{"message":"language not found"}`)
	client := remote.NewClient(remote.Config{BaseURL: srv.URL, APIKey: "key"}, srv.Client())
	_, err := client.Execute(context.Background(), remote.Request{Language: "c", SourceCode: "x"})
	if !appErr.Is(err, appErr.RemoteExecutionFailed) {
		t.Fatalf("expected RemoteExecutionFailed, got %v", err)
	}
	if msg := appErr.GetError(err).Error(); msg != "Failed to compile code: language not found" {
		t.Fatalf("unexpected message: %q", msg)
	}
}

func TestExecuteTimeout(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)
	client := remote.NewClient(remote.Config{BaseURL: srv.URL, APIKey: "key", Timeout: 50 * time.Millisecond}, srv.Client())
	start := time.Now()
	_, err := client.Execute(context.Background(), remote.Request{Language: "c", SourceCode: "x"})
	if !appErr.Is(err, appErr.Timeout) {
		t.Fatalf("expected Timeout, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("remote timeout not applied")
	}
}

func TestLanguagesProxy(t *testing.T) {
	t.Parallel()
	srv, got := newUpstream(t, http.StatusOK, `[{"id":63,"name":"JavaScript (Node.js 12.14.0)"}]`)
	client := remote.NewClient(remote.Config{BaseURL: srv.URL, APIKey: "key"}, srv.Client())
	langs, err := client.Languages(context.Background())
	if err != nil {
		t.Fatalf("languages failed: %v", err)
	}
	if len(langs) != 1 || langs[0].ID != 63 || got.path != "/languages" {
		t.Fatalf("unexpected languages: %+v path=%s", langs, got.path)
	}
}
