package processor

import (
	"github.com/aleksaelezovic/trigo-eval/pkg/sparql/engine"
	"github.com/pkg/errors"
)

// AsyncEvaluationError wraps a failure of a background evaluation that is
// not a query evaluation error
type AsyncEvaluationError struct {
	cause error
}

func (e *AsyncEvaluationError) Error() string {
	return "unexpected async failure: " + e.cause.Error()
}

func (e *AsyncEvaluationError) Unwrap() error {
	return e.cause
}

// Cause returns the wrapped failure
func (e *AsyncEvaluationError) Cause() error {
	return e.cause
}

// AsyncError is handed to asynchronous callbacks when evaluation fails.
// State is the value the caller passed when submitting the query.
type AsyncError struct {
	Err   error
	State any
}

func (e *AsyncError) Error() string {
	return e.Err.Error()
}

func (e *AsyncError) Unwrap() error {
	return e.Err
}

// normalizeAsync passes query evaluation errors through and wraps anything
// else in an AsyncEvaluationError
func normalizeAsync(err error) error {
	if err == nil || engine.IsEvaluationError(err) {
		return err
	}
	var async *AsyncEvaluationError
	if errors.As(err, &async) {
		return err
	}
	return &AsyncEvaluationError{cause: errors.WithStack(err)}
}
