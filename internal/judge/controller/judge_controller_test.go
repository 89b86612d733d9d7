package controller_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"codearena/internal/judge/controller"
	"codearena/internal/judge/model"
	appErr "codearena/pkg/errors"

	"github.com/gin-gonic/gin"
)

type fakeSubmitter struct {
	gotID     string
	gotSource string
	report    model.SubmissionReport
	err       error
}

func (f *fakeSubmitter) SubmitByID(ctx context.Context, challengeID, source string) (model.SubmissionReport, error) {
	f.gotID = challengeID
	f.gotSource = source
	return f.report, f.err
}

func newRouter(sub controller.Submitter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := controller.NewJudgeController(sub, 64)
	r.POST("/api/v1/judge/submissions", h.Submit)
	return r
}

func post(r *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/judge/submissions", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSubmitReturnsReport(t *testing.T) {
	sub := &fakeSubmitter{report: model.SubmissionReport{SubmissionID: "s1", ChallengeID: "1", AllPassed: true, Results: []model.TestResult{}}}
	w := post(newRouter(sub), `{"challenge_id":" 1 ","source_code":"function f(){}"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", w.Code, w.Body.String())
	}
	if sub.gotID != "1" || sub.gotSource != "function f(){}" {
		t.Fatalf("unexpected call: %+v", sub)
	}
	var resp struct {
		Code int                    `json:"code"`
		Data model.SubmissionReport `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if resp.Code != int(appErr.Success) || resp.Data.SubmissionID != "s1" || !resp.Data.AllPassed {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestSubmitValidation(t *testing.T) {
	r := newRouter(&fakeSubmitter{})
	cases := []struct {
		body   string
		status int
	}{
		{`not json`, http.StatusBadRequest},
		{`{"source_code":"x"}`, http.StatusBadRequest},
		{`{"challenge_id":"1"}`, http.StatusBadRequest},
		{`{"challenge_id":"1","source_code":"` + string(bytes.Repeat([]byte("a"), 65)) + `"}`, http.StatusRequestEntityTooLarge},
	}
	for _, tc := range cases {
		if w := post(r, tc.body); w.Code != tc.status {
			t.Fatalf("body %q: got status %d, want %d", tc.body, w.Code, tc.status)
		}
	}
}

func TestSubmitMapsServiceErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{appErr.New(appErr.ChallengeNotFound), http.StatusNotFound},
		{appErr.New(appErr.JudgeQueueFull), http.StatusServiceUnavailable},
		{appErr.New(appErr.TestCaseInvalid), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := post(newRouter(&fakeSubmitter{err: tc.err}), `{"challenge_id":"1","source_code":"x"}`)
		if w.Code != tc.status {
			t.Fatalf("%v: got status %d, want %d", tc.err, w.Code, tc.status)
		}
	}
}
