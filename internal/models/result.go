package models

import "strings"

// ResultKind tags the populated variant of a SolveResult
type ResultKind string

const (
	ResultValue      ResultKind = "value"
	ResultAssignment ResultKind = "assignment"
	ResultFailure    ResultKind = "failure"
)

// SolveResult is the outcome of solving a normalized expression.
// Exactly one variant is populated, selected by Kind.
type SolveResult struct {
	Kind ResultKind `json:"kind"`

	// value
	Value   float64 `json:"value,omitempty"`
	Display string  `json:"display,omitempty"`

	// assignment
	Variable string   `json:"variable,omitempty"`
	Roots    []string `json:"roots,omitempty"`

	// failure
	Failure *Failure `json:"failure,omitempty"`
}

// ValueResult wraps a numeric value and its formatted display
func ValueResult(v float64, display string) SolveResult {
	return SolveResult{Kind: ResultValue, Value: v, Display: display}
}

// AssignmentResult wraps the roots found for one variable
func AssignmentResult(variable string, roots []string) SolveResult {
	return SolveResult{Kind: ResultAssignment, Variable: variable, Roots: roots}
}

// FailureResult wraps a classified failure
func FailureResult(kind FailureKind, message string) SolveResult {
	return SolveResult{Kind: ResultFailure, Failure: NewFailure(kind, message)}
}

// String serializes the result: a value as its display form, an
// assignment as "x = r1 or r2", a failure as its message.
func (r SolveResult) String() string {
	switch r.Kind {
	case ResultValue:
		return r.Display
	case ResultAssignment:
		return r.Variable + " = " + strings.Join(r.Roots, " or ")
	case ResultFailure:
		if r.Failure != nil {
			return r.Failure.Message
		}
	}
	return ""
}

// Err returns the failure as an error, or nil for successful results
func (r SolveResult) Err() error {
	if r.Kind == ResultFailure && r.Failure != nil {
		return r.Failure
	}
	return nil
}
