package engine

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidGroupContext reports a group context switch that breaks the enter/exit protocol,
	// such as a nested aggregate
	ErrInvalidGroupContext = errors.New("invalid group context")

	// ErrNoSuchGroup reports a group lookup when no grouping is active or the id is absent
	ErrNoSuchGroup = errors.New("no such group")

	// ErrUnknownSetID reports a lookup of a binding set id the multiset does not own
	ErrUnknownSetID = errors.New("unknown set id")

	// ErrDuplicateGroupAssignment reports a second assignment of a variable within one group
	ErrDuplicateGroupAssignment = &EvaluationError{Msg: "duplicate group assignment"}
)

// evaluationFailure marks errors caused by the semantics of the query being evaluated
type evaluationFailure interface {
	evaluationFailure()
}

// EvaluationError is a query evaluation failure attributable to the query itself
type EvaluationError struct {
	Msg string
	Err error
}

func (e *EvaluationError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

func (e *EvaluationError) evaluationFailure() {}

// QueryTimeoutError is returned once a query runs longer than its effective timeout
type QueryTimeoutError struct {
	Limit   time.Duration
	Elapsed time.Duration
}

func (e *QueryTimeoutError) Error() string {
	return fmt.Sprintf("query execution time exceeded the timeout of %s (elapsed %s)", e.Limit, e.Elapsed)
}

func (e *QueryTimeoutError) evaluationFailure() {}

// IsEvaluationError reports whether err is a domain query evaluation failure,
// as opposed to a programming error or an unexpected runtime failure
func IsEvaluationError(err error) bool {
	var failure evaluationFailure
	return errors.As(err, &failure)
}

// IsTimeout reports whether err carries a QueryTimeoutError
func IsTimeout(err error) bool {
	var timeout *QueryTimeoutError
	return errors.As(err, &timeout)
}
