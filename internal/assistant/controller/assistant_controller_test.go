package controller_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"codearena/internal/assistant"
	"codearena/internal/assistant/controller"
	appErr "codearena/pkg/errors"

	"github.com/gin-gonic/gin"
)

func newRouter(t *testing.T, upstream http.HandlerFunc) *gin.Engine {
	t.Helper()
	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)
	client := assistant.NewClient(assistant.Config{BaseURL: srv.URL}, srv.Client())

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/v1/assistant/gpt", controller.NewAssistantController(client).Ask)
	return r
}

func post(r *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/assistant/gpt", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAsk(t *testing.T) {
	r := newRouter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":"Try two pointers."}`))
	})
	w := post(r, `{"message":"hint please"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d %s", w.Code, w.Body.String())
	}
	var resp struct {
		Data struct {
			Response string `json:"response"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if resp.Data.Response != "Try two pointers." {
		t.Fatalf("unexpected reply: %+v", resp.Data)
	}
}

func TestAskMissingMessage(t *testing.T) {
	r := newRouter(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("upstream must not be called")
	})
	for _, body := range []string{`{}`, `{"message":""}`, `nope`} {
		w := post(r, body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %s: unexpected status %d", body, w.Code)
		}
		if !bytes.Contains(w.Body.Bytes(), []byte("Message is required")) {
			t.Fatalf("body %s: unexpected message %s", body, w.Body.String())
		}
	}
}

func TestAskUpstreamError(t *testing.T) {
	r := newRouter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"out of memory"}`))
	})
	w := post(r, `{"message":"hi"}`)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("unexpected status: %d", w.Code)
	}
	var resp struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Code != int(appErr.AssistantFailed) || resp.Message != "Ollama error" {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
}
