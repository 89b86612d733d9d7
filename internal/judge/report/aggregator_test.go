package report_test

import (
	"encoding/json"
	"strings"
	"testing"

	"codearena/internal/judge/model"
	"codearena/internal/judge/report"
	appErr "codearena/pkg/errors"
)

func sampleChallenge() model.Challenge {
	return model.Challenge{
		ID:         "1",
		Difficulty: model.DifficultyEasy,
		TestCases: []model.TestCase{
			{Invocation: "f(1)", ExpectedOutput: "1"},
			{Invocation: "f(2)", ExpectedOutput: "2"},
			{Invocation: "f(3)", ExpectedOutput: "3", IsHidden: true},
		},
	}
}

func TestAggregateAllPassed(t *testing.T) {
	t.Parallel()
	rep := report.Aggregate("sub", sampleChallenge(), []report.Outcome{
		{Actual: "1", Passed: true},
		{Actual: "2", Passed: true},
		{Actual: "3", Passed: true},
	})
	if !rep.AllPassed || rep.PassedCount != 3 || rep.TotalCount != 3 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if rep.TerminalError != nil {
		t.Fatalf("unexpected terminal error")
	}
}

func TestAggregateKeepsOrderAndMarksErrors(t *testing.T) {
	t.Parallel()
	rep := report.Aggregate("sub", sampleChallenge(), []report.Outcome{
		{Err: appErr.New(appErr.RuntimeError).WithMessage("TypeError: boom")},
		{Actual: "[]", Passed: false},
		{Actual: "3", Passed: true},
	})
	if rep.AllPassed || rep.PassedCount != 1 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	for i, r := range rep.Results {
		if r.Index != i {
			t.Fatalf("results out of order: %+v", rep.Results)
		}
	}
	first := rep.Results[0]
	if first.ActualOutput != "RuntimeError: TypeError: boom" || first.Error == nil || first.Error.Type != "RuntimeError" {
		t.Fatalf("unexpected error result: %+v", first)
	}
	if rep.Results[1].ActualOutput != "[]" || rep.Results[1].ExpectedOutput != "2" {
		t.Fatalf("unexpected visible result: %+v", rep.Results[1])
	}
}

func TestAggregateRedactsHiddenCases(t *testing.T) {
	t.Parallel()
	rep := report.Aggregate("sub", sampleChallenge(), []report.Outcome{
		{Actual: "1", Passed: true},
		{Actual: "2", Passed: true},
		{Err: appErr.New(appErr.TimeoutError)},
	})
	hidden := rep.Results[2]
	if !hidden.Hidden || hidden.Passed || hidden.ActualOutput != "" || hidden.ExpectedOutput != "" ||
		hidden.Invocation != "" || hidden.Error != nil {
		t.Fatalf("hidden case leaked details: %+v", hidden)
	}
	payload, err := json.Marshal(hidden)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(payload) != `{"index":2,"hidden":true,"passed":false}` {
		t.Fatalf("unexpected hidden payload: %s", payload)
	}
	if rep.AllPassed {
		t.Fatalf("hidden failure must fail the submission")
	}
}

func TestAbortHasNoResults(t *testing.T) {
	t.Parallel()
	rep := report.Abort("sub", sampleChallenge(), appErr.New(appErr.ParseError).WithMessage("Line 1:10 Unexpected token"))
	if rep.AllPassed || rep.TerminalError == nil || rep.TerminalError.Type != "ParseError" {
		t.Fatalf("unexpected report: %+v", rep)
	}
	payload, err := json.Marshal(rep)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if !strings.Contains(string(payload), `"results":[]`) {
		t.Fatalf("results must be an empty list: %s", payload)
	}
}
