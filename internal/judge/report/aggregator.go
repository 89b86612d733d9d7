// Package report assembles submission reports from per-test outcomes.
package report

import (
	"codearena/internal/judge/model"
	appErr "codearena/pkg/errors"
)

// Outcome is the engine-internal result of one test case.
type Outcome struct {
	// Actual is the canonical form of the returned value. Empty when Err is set.
	Actual string
	Passed bool
	Err    error
}

// Aggregate builds the report for a submission whose tests all ran. Results
// follow the challenge's test order and hidden cases keep only their
// pass/fail bit.
func Aggregate(submissionID string, challenge model.Challenge, outcomes []Outcome) model.SubmissionReport {
	rep := model.SubmissionReport{
		SubmissionID: submissionID,
		ChallengeID:  challenge.ID,
		Results:      make([]model.TestResult, 0, len(challenge.TestCases)),
		TotalCount:   len(challenge.TestCases),
		AllPassed:    len(challenge.TestCases) > 0,
	}
	for i, tc := range challenge.TestCases {
		var out Outcome
		if i < len(outcomes) {
			out = outcomes[i]
		} else {
			out = Outcome{Err: appErr.New(appErr.JudgeSystemError).WithMessage("test case was not executed")}
		}
		passed := out.Passed && out.Err == nil

		result := model.TestResult{Index: i, Hidden: tc.IsHidden, Passed: passed}
		if !tc.IsHidden {
			result.Invocation = tc.Invocation
			result.ExpectedOutput = tc.ExpectedOutput
			result.ActualOutput = out.Actual
			if out.Err != nil {
				result.ActualOutput = Marker(out.Err)
				result.Error = Detail(out.Err)
			}
		}
		rep.Results = append(rep.Results, result)

		if passed {
			rep.PassedCount++
		} else {
			rep.AllPassed = false
		}
	}
	return rep
}

// Abort builds the report for a submission that failed before any test ran.
func Abort(submissionID string, challenge model.Challenge, err error) model.SubmissionReport {
	return model.SubmissionReport{
		SubmissionID:  submissionID,
		ChallengeID:   challenge.ID,
		Results:       []model.TestResult{},
		TotalCount:    len(challenge.TestCases),
		TerminalError: Detail(err),
	}
}

// Marker renders err as the actualOutput of a failed test, e.g.
// "RuntimeError: TypeError: x is not a function".
func Marker(err error) string {
	e := appErr.GetError(err)
	return e.Code.Type() + ": " + e.Error()
}

// Detail converts err into its report form.
func Detail(err error) *model.ErrorDetail {
	if err == nil {
		return nil
	}
	e := appErr.GetError(err)
	return &model.ErrorDetail{
		Code:    int(e.Code),
		Type:    e.Code.Type(),
		Message: e.Error(),
	}
}
