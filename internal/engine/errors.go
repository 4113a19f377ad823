package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected by the engine itself, as
// opposed to a halt of the evaluated program.
//
// Runtime errors include:
//   - Quota exceeded: a request asked for more budget than the host allows
//   - Invalid request: the evaluator refused the request outright
//   - Replay mismatch: re-evaluating a record gave a different outcome
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Job is the submission index of the affected job, or -1.
	Job int

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeQuotaExceeded indicates a request exceeded the host budget ceiling.
	ErrCodeQuotaExceeded RuntimeErrorCode = "QUOTA_EXCEEDED"

	// ErrCodeInvalidRequest indicates the evaluator rejected the request.
	ErrCodeInvalidRequest RuntimeErrorCode = "INVALID_REQUEST"

	// ErrCodeReplayMismatch indicates a replayed record did not reproduce.
	ErrCodeReplayMismatch RuntimeErrorCode = "REPLAY_MISMATCH"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Job >= 0 {
		return fmt.Sprintf("%s: %s (job=%d)", e.Code, e.Message, e.Job)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsQuotaError returns true if the error is a quota exceeded error.
// Uses errors.As to handle wrapped errors.
func IsQuotaError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeQuotaExceeded
	}
	return false
}

// IsInvalidRequest returns true if the error is an invalid request error.
func IsInvalidRequest(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeInvalidRequest
	}
	return false
}

// IsReplayMismatch returns true if the error reports a replay mismatch.
func IsReplayMismatch(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeReplayMismatch
	}
	return false
}

// NewQuotaError creates a RuntimeError for a budget above the host ceiling.
func NewQuotaError(job int, resource string, requested, limit int64) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeQuotaExceeded,
		Message: fmt.Sprintf("%s budget %d exceeds host limit %d", resource, requested, limit),
		Job:     job,
		Details: map[string]string{
			"resource":  resource,
			"requested": fmt.Sprintf("%d", requested),
			"limit":     fmt.Sprintf("%d", limit),
		},
	}
}

// NewInvalidRequestError wraps an evaluator rejection.
func NewInvalidRequestError(job int, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeInvalidRequest,
		Message: err.Error(),
		Job:     job,
	}
}

// NewReplayMismatchError reports a record whose replay differed.
func NewReplayMismatchError(m Mismatch) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeReplayMismatch,
		Message: fmt.Sprintf("record %s (seq %d) did not reproduce: %s", m.ID, m.Seq, m.Reason),
		Job:     -1,
		Details: map[string]string{
			"id":       m.ID,
			"seq":      fmt.Sprintf("%d", m.Seq),
			"recorded": m.Recorded,
			"replayed": m.Replayed,
		},
	}
}
