// Package assistant forwards free-form prompts to a local Ollama model.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	appErr "codearena/pkg/errors"
	"codearena/pkg/utils/logger"

	"github.com/zeromicro/go-zero/core/breaker"
	"go.uber.org/zap"
)

const (
	defaultBaseURL        = "http://localhost:11434"
	defaultModel          = "mistral"
	defaultTimeout        = 60 * time.Second
	defaultMaxPromptBytes = 16 << 10
	maxBodyBytes          = 4 << 20
)

// Config configures the Ollama client.
type Config struct {
	BaseURL string        `yaml:"baseURL"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
	// MaxPromptBytes bounds the message forwarded upstream.
	MaxPromptBytes int `yaml:"maxPromptBytes"`
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

// Client calls Ollama's generate endpoint through a circuit breaker.
type Client struct {
	baseURL        string
	model          string
	timeout        time.Duration
	maxPromptBytes int
	http           *http.Client
	brk            breaker.Breaker
}

// NewClient creates a client. httpClient may be nil.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxPrompt := cfg.MaxPromptBytes
	if maxPrompt <= 0 {
		maxPrompt = defaultMaxPromptBytes
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:        baseURL,
		model:          model,
		timeout:        timeout,
		maxPromptBytes: maxPrompt,
		http:           httpClient,
		brk:            breaker.NewBreaker(breaker.WithName("ollama")),
	}
}

// Ask sends message as a single non-streaming prompt and returns the
// model's reply.
func (c *Client) Ask(ctx context.Context, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", appErr.New(appErr.InvalidParams).WithMessage("Message is required")
	}
	if len(message) > c.maxPromptBytes {
		return "", appErr.Newf(appErr.RequestTooLarge, "message exceeds %d bytes", c.maxPromptBytes)
	}
	body, err := json.Marshal(generateRequest{Model: c.model, Prompt: message})
	if err != nil {
		return "", appErr.Wrap(err, appErr.InternalServerError)
	}

	var out generateResponse
	start := time.Now()
	err = c.brk.DoWithAcceptable(func() error {
		return c.generate(ctx, body, &out)
	}, acceptable)
	logger.Info(ctx, "assistant prompt finished",
		zap.String("model", c.model),
		zap.Int("prompt_bytes", len(message)),
		zap.Duration("elapsed", time.Since(start)),
		zap.Bool("failed", err != nil),
	)
	if errors.Is(err, breaker.ErrServiceUnavailable) {
		return "", appErr.Wrapf(err, appErr.ServiceUnavailable, "assistant is temporarily unavailable")
	}
	if err != nil {
		return "", err
	}
	return out.Response, nil
}

func (c *Client) generate(ctx context.Context, body []byte, out *generateResponse) error {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return appErr.Wrapf(err, appErr.InternalServerError, "build assistant request failed")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return appErr.Wrapf(err, appErr.Timeout, "assistant timed out after %s", c.timeout)
		}
		return appErr.Wrapf(err, appErr.AssistantFailed, "Ollama error")
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return appErr.Wrapf(err, appErr.AssistantFailed, "Ollama error")
	}
	if err := json.Unmarshal(data, out); err != nil {
		return appErr.Wrapf(err, appErr.AssistantFailed, "Ollama error").WithDetail("status", resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 || out.Error != "" {
		reason := out.Error
		if reason == "" {
			reason = http.StatusText(resp.StatusCode)
		}
		return appErr.New(appErr.AssistantFailed).
			WithDetail("status", resp.StatusCode).
			WithDetail("reason", reason)
	}
	return nil
}

// acceptable keeps caller-side problems and unknown models from opening the breaker.
func acceptable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	e := appErr.GetError(err)
	switch e.Code {
	case appErr.AssistantFailed:
		status, _ := e.Details["status"].(int)
		return status == http.StatusNotFound
	case appErr.Timeout:
		return false
	}
	return true
}
