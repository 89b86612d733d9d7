package invoker_test

import (
	"context"
	"testing"
	"time"

	"codearena/internal/judge/canonical"
	"codearena/internal/judge/invoker"
	"codearena/internal/judge/sandbox"
	appErr "codearena/pkg/errors"
)

func TestParse(t *testing.T) {
	t.Parallel()
	inv, err := invoker.Parse("  twoSum([2,7,11,15], 9) ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.Function != "twoSum" || inv.Args != "[2,7,11,15], 9" {
		t.Fatalf("unexpected invocation: %+v", inv)
	}

	inv, err = invoker.Parse("noArgs()")
	if err != nil || inv.Function != "noArgs" || inv.Args != "" {
		t.Fatalf("unexpected invocation: %+v err=%v", inv, err)
	}

	for _, bad := range []string{"", "twoSum", "(1)", "1abc(2)", "a.b(1)", "f(1"} {
		if _, err := invoker.Parse(bad); !appErr.Is(err, appErr.TestCaseInvalid) {
			t.Fatalf("expected invalid test case for %q, got %v", bad, err)
		}
	}
}

func TestCheckRejectsBadArguments(t *testing.T) {
	t.Parallel()
	if _, err := invoker.Check("f([1,2)"); !appErr.Is(err, appErr.TestCaseInvalid) {
		t.Fatalf("expected invalid test case, got %v", err)
	}
	if _, err := invoker.Check("f([1,2], {a: 1})"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func invokeOnce(t *testing.T, src, expr string, cfg sandbox.Config) invoker.RawResult {
	t.Helper()
	m, err := sandbox.Loader{}.Load(src)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	inv, err := invoker.Parse(expr)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	var raw invoker.RawResult
	_, err = sandbox.New(cfg).Run(context.Background(), m, func(env *sandbox.Env) error {
		raw = invoker.Invoke(env, inv)
		return nil
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	return raw
}

func TestInvokeReturnsValue(t *testing.T) {
	t.Parallel()
	raw := invokeOnce(t, `function twoSum(nums, target) {
  const seen = new Map();
  for (let i = 0; i < nums.length; i++) {
    if (seen.has(target - nums[i])) return [seen.get(target - nums[i]), i];
    seen.set(nums[i], i);
  }
  return [];
}`, "twoSum([2,7,11,15], 9)", sandbox.Config{})
	if raw.Err != nil {
		t.Fatalf("unexpected error: %v", raw.Err)
	}
	got, _ := canonical.Canonicalize(raw.Value)
	if got != "[0,1]" {
		t.Fatalf("unexpected result: %s", got)
	}
}

func TestInvokeMissingFunction(t *testing.T) {
	t.Parallel()
	raw := invokeOnce(t, "function other() {}", "twoSum([1], 1)", sandbox.Config{})
	if !appErr.Is(raw.Err, appErr.LoadError) {
		t.Fatalf("expected load error, got %v", raw.Err)
	}
}

func TestInvokeThrownException(t *testing.T) {
	t.Parallel()
	raw := invokeOnce(t, `function f() { null.x }`, "f()", sandbox.Config{})
	if !appErr.Is(raw.Err, appErr.RuntimeError) {
		t.Fatalf("expected runtime error, got %v", raw.Err)
	}
}

func TestInvokeUndefinedResult(t *testing.T) {
	t.Parallel()
	raw := invokeOnce(t, "function f(a) {\n  // Your code here\n}", "f(1)", sandbox.Config{})
	if raw.Err != nil {
		t.Fatalf("unexpected error: %v", raw.Err)
	}
	got, _ := canonical.Canonicalize(raw.Value)
	if got != "undefined" {
		t.Fatalf("unexpected result: %s", got)
	}
}

func TestInvokeTimeout(t *testing.T) {
	t.Parallel()
	raw := invokeOnce(t, "function f() { for (;;) {} }", "f()", sandbox.Config{Timeout: 50 * time.Millisecond})
	if !appErr.Is(raw.Err, appErr.TimeoutError) {
		t.Fatalf("expected timeout, got %v", raw.Err)
	}
}

func TestInvokeArgumentsAreFresh(t *testing.T) {
	t.Parallel()
	raw := invokeOnce(t, `function f(list) { list.push(99); return list }`, "f([1, null, 'x'])", sandbox.Config{})
	if raw.Err != nil {
		t.Fatalf("unexpected error: %v", raw.Err)
	}
	got, _ := canonical.Canonicalize(raw.Value)
	if got != `[1,null,"x",99]` {
		t.Fatalf("unexpected result: %s", got)
	}
}
