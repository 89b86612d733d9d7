// Package remote delegates non-native languages to a Judge0 execution service.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	appErr "codearena/pkg/errors"
	"codearena/pkg/utils/logger"

	"github.com/zeromicro/go-zero/core/breaker"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://judge0-ce.p.rapidapi.com"
	defaultTimeout = 15 * time.Second
	noOutput       = "No output"
	maxBodyBytes   = 4 << 20
)

// Config configures the Judge0 client.
type Config struct {
	BaseURL string `yaml:"baseURL"`
	APIKey  string `yaml:"apiKey"`
	// APIHost is sent as X-RapidAPI-Host. Defaults to the host of BaseURL.
	APIHost string        `yaml:"apiHost"`
	Timeout time.Duration `yaml:"timeout"`
}

// Request is one remote execution.
type Request struct {
	Language   string
	SourceCode string
	Stdin      string
}

// Result is the single textual output of a remote execution.
type Result struct {
	Output     string `json:"output"`
	LanguageID int    `json:"language_id"`
	Status     string `json:"status,omitempty"`
}

// Language is an entry of the upstream language list.
type Language struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type submission struct {
	LanguageID int    `json:"language_id"`
	SourceCode string `json:"source_code"`
	Stdin      string `json:"stdin"`
}

type submissionResult struct {
	Stdout        *string `json:"stdout"`
	Stderr        *string `json:"stderr"`
	CompileOutput *string `json:"compile_output"`
	Message       *string `json:"message"`
	Status        *struct {
		ID          int    `json:"id"`
		Description string `json:"description"`
	} `json:"status"`
}

// Client talks to Judge0 through a circuit breaker.
type Client struct {
	baseURL string
	apiKey  string
	apiHost string
	timeout time.Duration
	http    *http.Client
	brk     breaker.Breaker
}

// NewClient creates a client. httpClient may be nil.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	apiHost := cfg.APIHost
	if apiHost == "" {
		if u, err := url.Parse(baseURL); err == nil {
			apiHost = u.Host
		}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(cfg.APIKey),
		apiHost: apiHost,
		timeout: timeout,
		http:    httpClient,
		brk:     breaker.NewBreaker(breaker.WithName("judge0")),
	}
}

// Configured reports whether the service credential is present.
func (c *Client) Configured() bool { return c.apiKey != "" }

// Execute runs req remotely and maps the response to one output string:
// the first non-empty of stdout, stderr, compile output and message.
func (c *Client) Execute(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Language) == "" || req.SourceCode == "" {
		return Result{}, appErr.New(appErr.InvalidParams).WithMessage("Missing language or source_code")
	}
	if err := c.checkConfigured(); err != nil {
		return Result{}, err
	}

	languageID := LanguageID(req.Language)
	body, err := json.Marshal(submission{LanguageID: languageID, SourceCode: req.SourceCode, Stdin: req.Stdin})
	if err != nil {
		return Result{}, appErr.Wrap(err, appErr.InternalServerError)
	}

	var out submissionResult
	start := time.Now()
	err = c.do(ctx, http.MethodPost, "/submissions?base64_encoded=false&wait=true", body, &out)
	logger.Info(ctx, "remote execution finished",
		zap.String("language", req.Language),
		zap.Int("language_id", languageID),
		zap.Duration("elapsed", time.Since(start)),
		zap.Bool("failed", err != nil),
	)
	if err != nil {
		return Result{}, err
	}

	res := Result{Output: firstNonEmpty(out.Stdout, out.Stderr, out.CompileOutput, out.Message), LanguageID: languageID}
	if out.Status != nil {
		res.Status = out.Status.Description
	}
	return res, nil
}

// Languages returns the upstream language list.
func (c *Client) Languages(ctx context.Context) ([]Language, error) {
	if err := c.checkConfigured(); err != nil {
		return nil, err
	}
	var out []Language
	if err := c.do(ctx, http.MethodGet, "/languages", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) checkConfigured() error {
	if c.apiKey == "" {
		return appErr.New(appErr.ConfigurationError).
			WithMessage("Server configuration error").
			WithDetail("reason", "JUDGE0_API_KEY is not set")
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	err := c.brk.DoWithAcceptable(func() error {
		return c.roundTrip(ctx, method, path, body, out)
	}, acceptable)
	if errors.Is(err, breaker.ErrServiceUnavailable) {
		return appErr.Wrapf(err, appErr.ServiceUnavailable, "remote execution service is temporarily unavailable")
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body []byte, out interface{}) error {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(reqCtx, method, c.baseURL+path, reader)
	if err != nil {
		return appErr.Wrapf(err, appErr.InternalServerError, "build remote request failed")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-RapidAPI-Key", c.apiKey)
	if c.apiHost != "" {
		req.Header.Set("X-RapidAPI-Host", c.apiHost)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return appErr.Wrapf(err, appErr.Timeout, "remote execution timed out after %s", c.timeout)
		}
		return appErr.Wrapf(err, appErr.RemoteExecutionFailed, "remote execution request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return appErr.Wrapf(err, appErr.RemoteExecutionFailed, "read remote response failed")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return appErr.Newf(appErr.RemoteExecutionFailed, "Failed to compile code: %s", upstreamMessage(resp.StatusCode, data)).
			WithDetail("status", resp.StatusCode)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return appErr.Wrapf(err, appErr.RemoteExecutionFailed, "decode remote response failed")
	}
	return nil
}

// acceptable keeps client-side problems from opening the breaker.
func acceptable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	e := appErr.GetError(err)
	if e.Code != appErr.RemoteExecutionFailed {
		return e.Code != appErr.Timeout
	}
	status, _ := e.Details["status"].(int)
	return status >= 400 && status < 500 && status != http.StatusTooManyRequests
}

func upstreamMessage(status int, body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return fmt.Sprintf("upstream status %d", status)
}

func firstNonEmpty(values ...*string) string {
	for _, v := range values {
		if v != nil && *v != "" {
			return *v
		}
	}
	return noOutput
}
