package model

import (
	"strings"
	"time"

	"codearena/internal/judge/invoker"
	appErr "codearena/pkg/errors"
)

// Difficulty grades a challenge.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is a known difficulty.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Challenge is a read-only problem definition owned by the content store.
type Challenge struct {
	ID          string     `json:"id" yaml:"id"`
	Title       string     `json:"title" yaml:"title"`
	Difficulty  Difficulty `json:"difficulty" yaml:"difficulty"`
	Category    string     `json:"category" yaml:"category"`
	Description string     `json:"description" yaml:"description"`
	StarterCode string     `json:"starterCode" yaml:"starterCode"`
	TestCases   []TestCase `json:"testCases" yaml:"testCases"`
	Points      int        `json:"points" yaml:"points"`
	CompletedBy int64      `json:"completedBy" yaml:"completedBy"`
	CreatedAt   time.Time  `json:"createdAt" yaml:"createdAt"`
}

// TestCase is one call and its expected canonical result.
type TestCase struct {
	Invocation     string `json:"input" yaml:"input"`
	ExpectedOutput string `json:"expectedOutput" yaml:"expectedOutput"`
	IsHidden       bool   `json:"isHidden,omitempty" yaml:"isHidden"`
}

// Validate checks the invariants the judge relies on.
func (c Challenge) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return appErr.ValidationError("id", "required")
	}
	if !c.Difficulty.Valid() {
		return appErr.ValidationError("difficulty", "must be easy, medium or hard").WithDetail("challenge_id", c.ID)
	}
	if len(c.TestCases) == 0 {
		return appErr.Newf(appErr.TestCaseInvalid, "challenge %s has no test cases", c.ID)
	}
	for i, tc := range c.TestCases {
		if _, err := invoker.Check(tc.Invocation); err != nil {
			return appErr.Wrapf(err, appErr.TestCaseInvalid, "challenge %s test %d: %s", c.ID, i, err.Error())
		}
		if strings.TrimSpace(tc.ExpectedOutput) == "" {
			return appErr.Newf(appErr.TestCaseInvalid, "challenge %s test %d has no expected output", c.ID, i)
		}
	}
	return nil
}

// Clone returns a deep copy so callers cannot mutate shared definitions.
func (c Challenge) Clone() Challenge {
	out := c
	out.TestCases = append([]TestCase(nil), c.TestCases...)
	return out
}
