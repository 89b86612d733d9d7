package comparator_test

import (
	"testing"

	"codearena/internal/judge/comparator"
	appErr "codearena/pkg/errors"
)

func TestCompareExactMatch(t *testing.T) {
	t.Parallel()
	v, err := comparator.Compare([]any{int64(0), int64(1)}, "[0,1]")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.Passed || v.Actual != "[0,1]" {
		t.Fatalf("unexpected verdict: %+v", v)
	}
}

func TestCompareIsOrderSensitive(t *testing.T) {
	t.Parallel()
	v, err := comparator.Compare([]any{int64(1), int64(0)}, "[0,1]")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Passed {
		t.Fatalf("permuted output must not pass")
	}
}

func TestCompareDistinguishesNullAndUndefined(t *testing.T) {
	t.Parallel()
	v, err := comparator.Compare(nil, "undefined")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Passed || v.Actual != "null" {
		t.Fatalf("unexpected verdict: %+v", v)
	}
}

func TestCompareEmptyCollection(t *testing.T) {
	t.Parallel()
	v, err := comparator.Compare([]any{}, "[0,1]")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Passed || v.Actual != "[]" {
		t.Fatalf("unexpected verdict: %+v", v)
	}
}

func TestCompareCycle(t *testing.T) {
	t.Parallel()
	m := map[string]any{}
	m["m"] = m
	if _, err := comparator.Compare(m, "{}"); !appErr.Is(err, appErr.SerializationError) {
		t.Fatalf("expected serialization error, got %v", err)
	}
}
