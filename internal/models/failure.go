package models

import (
	"context"
	"errors"
	"fmt"
)

// FailureKind classifies why a pipeline stage gave up
type FailureKind string

const (
	InputError        FailureKind = "input_error"
	ConfigError       FailureKind = "config_error"
	RecognitionError  FailureKind = "recognition_error"
	TimeoutError      FailureKind = "timeout"
	ParseError        FailureKind = "parse_error"
	UnsupportedError  FailureKind = "unsupported"
	EvaluationError   FailureKind = "evaluation_error"
	PresentationError FailureKind = "presentation_error"
)

// Failure is a classified, user-presentable error
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
	Err     error       `json:"-"`
}

// NewFailure creates a failure without an underlying cause
func NewFailure(kind FailureKind, message string) *Failure {
	return &Failure{Kind: kind, Message: message}
}

// WrapFailure creates a failure that keeps the underlying cause
func WrapFailure(kind FailureKind, message string, err error) *Failure {
	return &Failure{Kind: kind, Message: message, Err: err}
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// AsFailure classifies any error. Errors that are not already failures
// become failures of the fallback kind, except context deadlines which
// always map to a timeout.
func AsFailure(err error, fallback FailureKind) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return WrapFailure(TimeoutError, "timeout", err)
	}
	return WrapFailure(fallback, err.Error(), err)
}
