package repl

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"codearena/internal/challenge/catalog"
	"codearena/internal/cli/backend"
	"codearena/internal/cli/command"
	"codearena/internal/cli/state"
	"codearena/internal/judge/sandbox"
	"codearena/internal/judge/service"
)

func newSession(t *testing.T) (*Session, *bytes.Buffer, string) {
	t.Helper()
	c, err := catalog.Default()
	if err != nil {
		t.Fatalf("load catalog failed: %v", err)
	}
	svc, err := service.NewService(service.Config{Runner: sandbox.New(sandbox.DefaultConfig()), Challenges: c})
	if err != nil {
		t.Fatalf("new service failed: %v", err)
	}
	out := &bytes.Buffer{}
	dir := t.TempDir()
	env := &command.Env{Backend: backend.NewLocal(c, svc), Out: out, State: &state.State{}}
	return New(command.Registry(), env, nil, filepath.Join(dir, "state.json")), out, dir
}

func writeSource(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write source failed: %v", err)
	}
	return path
}

func TestExecuteListAndShow(t *testing.T) {
	s, out, _ := newSession(t)
	ctx := context.Background()
	if _, err := s.Execute(ctx, "list"); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out.String(), "Two Sum") {
		t.Fatalf("list output missing challenge: %s", out.String())
	}
	out.Reset()
	if _, err := s.Execute(ctx, "show 1"); err != nil {
		t.Fatalf("show failed: %v", err)
	}
	if !strings.Contains(out.String(), "hidden") || strings.Contains(out.String(), "[1,5,3,9]") {
		t.Fatalf("show must redact hidden tests: %s", out.String())
	}
}

func TestExecuteSubmitRemembersState(t *testing.T) {
	s, out, dir := newSession(t)
	ctx := context.Background()
	path := writeSource(t, dir, "pal.js", "function isPalindrome(x) { const s = String(x); return s === [...s].reverse().join('') }")

	if _, err := s.Execute(ctx, "submit 2 "+path); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if !strings.Contains(out.String(), "accepted") {
		t.Fatalf("unexpected output: %s", out.String())
	}
	st, err := state.Load(s.statePath)
	if err != nil || st.LastChallenge != "2" || st.LastFile != path {
		t.Fatalf("state not saved: %+v %v", st, err)
	}

	// a bare submit reuses the last challenge and file
	out.Reset()
	if _, err := s.Execute(ctx, "submit"); err != nil {
		t.Fatalf("resubmit failed: %v", err)
	}
	if !strings.Contains(out.String(), "passed, accepted") {
		t.Fatalf("unexpected output: %s", out.String())
	}
}

func TestExecuteSubmitFailingSolution(t *testing.T) {
	s, out, dir := newSession(t)
	path := writeSource(t, dir, "bad.js", "function maxSubArray(nums) { return nums[0] }")
	_, err := s.Execute(context.Background(), "submit id=4 file="+path)
	if err != command.ErrNotAccepted {
		t.Fatalf("expected ErrNotAccepted, got %v", err)
	}
	if !strings.Contains(out.String(), "FAIL") || !strings.Contains(out.String(), "(hidden)") {
		t.Fatalf("unexpected output: %s", out.String())
	}
}

func TestExecuteErrors(t *testing.T) {
	s, _, _ := newSession(t)
	ctx := context.Background()
	cases := []string{"frobnicate", "show", "show 1 2", `submit "unterminated`, "set base http://x"}
	for _, line := range cases {
		if _, err := s.Execute(ctx, line); err == nil {
			t.Fatalf("%q: expected error", line)
		}
	}
	if quit, err := s.Execute(ctx, "exit"); !quit || err != nil {
		t.Fatalf("exit must quit")
	}
}
