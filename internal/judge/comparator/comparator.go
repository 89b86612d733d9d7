// Package comparator decides whether an actual result matches a test case.
//
// Matching is exact string equality of canonical forms. Outputs that are
// equivalent only up to ordering, such as a set returned as a permuted
// array, do not match; challenges that accept any order must normalize both
// the expected output and the solution's result themselves.
package comparator

import (
	"codearena/internal/judge/canonical"
)

// Verdict is the result of comparing one actual value.
type Verdict struct {
	Passed bool
	Actual string
}

// Compare canonicalizes actual and compares it with expected.
// The only error is a SerializationError for cyclic values.
func Compare(actual any, expected string) (Verdict, error) {
	got, err := canonical.Canonicalize(actual)
	if err != nil {
		return Verdict{}, err
	}
	return Verdict{Passed: got == expected, Actual: got}, nil
}
