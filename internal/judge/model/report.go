package model

// SubmissionReport is the result of judging one submission.
type SubmissionReport struct {
	SubmissionID  string       `json:"submissionId"`
	ChallengeID   string       `json:"challengeId"`
	Results       []TestResult `json:"results"`
	AllPassed     bool         `json:"allPassed"`
	PassedCount   int          `json:"passedCount"`
	TotalCount    int          `json:"totalCount"`
	TerminalError *ErrorDetail `json:"terminalError,omitempty"`
}

// TestResult is the externally visible outcome of one test case. For hidden
// cases only Index, Hidden and Passed are populated.
type TestResult struct {
	Index          int          `json:"index"`
	Hidden         bool         `json:"hidden"`
	Invocation     string       `json:"input,omitempty"`
	ExpectedOutput string       `json:"expectedOutput,omitempty"`
	ActualOutput   string       `json:"actualOutput,omitempty"`
	Passed         bool         `json:"passed"`
	Error          *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail describes a judge error in reports.
type ErrorDetail struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ReportEvent is published after a submission has been judged.
type ReportEvent struct {
	SubmissionID      string `json:"submissionId"`
	ChallengeID       string `json:"challengeId"`
	UserID            string `json:"userId,omitempty"`
	AllPassed         bool   `json:"allPassed"`
	Passed            int    `json:"passed"`
	Total             int    `json:"total"`
	TerminalErrorType string `json:"terminalErrorType,omitempty"`
	CreatedAt         int64  `json:"createdAt"`
}
