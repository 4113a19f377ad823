// Package halt defines the terminal outcomes of a Smarm evaluation.
//
// Every failure an evaluated program can run into is reported as a *Error
// carrying one Code from a fixed taxonomy. A halt is never observable by
// the program itself: it unwinds the whole evaluation and is handed back to
// the host, which must see the same code on every node given the same
// inputs.
//
// Messages and Details are part of that contract too. They are built only
// from the program's own data and declared limits, never from pointers,
// wall-clock time or map iteration order.
package halt

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Code categorizes a halt.
type Code string

const (
	// CodeMalformedInput indicates canonical decoding failed or a form is
	// structurally invalid.
	CodeMalformedInput Code = "MALFORMED_INPUT"

	// CodeUnsupportedType indicates a tag or value kind outside the fixed table.
	CodeUnsupportedType Code = "UNSUPPORTED_TYPE"

	// CodeUnboundVariable indicates a symbol lookup failed in the full chain,
	// or a recursive binding was read before its initializer completed.
	CodeUnboundVariable Code = "UNBOUND_VARIABLE"

	// CodeArityError indicates a procedure was applied to the wrong number of
	// arguments or to an invalid keyword set.
	CodeArityError Code = "ARITY_ERROR"

	// CodeTypeError indicates a primitive was applied outside its domain.
	CodeTypeError Code = "TYPE_ERROR"

	// CodeSealMismatch indicates an unsealer met a sealed object from another sealer.
	CodeSealMismatch Code = "SEAL_MISMATCH"

	// CodeBudgetExhausted indicates the step or memory counter ran out.
	CodeBudgetExhausted Code = "BUDGET_EXHAUSTED"
)

// Codes lists every code in taxonomy order.
var Codes = []Code{
	CodeMalformedInput,
	CodeUnsupportedType,
	CodeUnboundVariable,
	CodeArityError,
	CodeTypeError,
	CodeSealMismatch,
	CodeBudgetExhausted,
}

// Valid reports whether c belongs to the taxonomy.
func (c Code) Valid() bool {
	for _, known := range Codes {
		if c == known {
			return true
		}
	}
	return false
}

// Error is a halt: a terminal, non-recoverable outcome of one evaluation.
type Error struct {
	// Code identifies the halt category.
	Code Code `json:"code"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// Details contains additional deterministic context (e.g. the resource
	// that ran out, the expected arity).
	Details map[string]string `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	keys := make([]string, 0, len(e.Details))
	for k := range e.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + e.Details[k]
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, strings.Join(parts, ", "))
}

// New creates a halt with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// With returns a copy of e with an extra detail.
func (e *Error) With(key, value string) *Error {
	details := make(map[string]string, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &Error{Code: e.Code, Message: e.Message, Details: details}
}

// CodeOf returns the halt code of err, or "" if err is not a halt.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) Code {
	var he *Error
	if errors.As(err, &he) {
		return he.Code
	}
	return ""
}

// MessageOf returns the message of a halt without its code and details,
// or err.Error() if err is not a halt.
func MessageOf(err error) string {
	var he *Error
	if errors.As(err, &he) {
		return he.Message
	}
	return err.Error()
}

// Is reports whether err is a halt with the given code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// Malformed creates a MalformedInput halt.
func Malformed(format string, args ...any) *Error {
	return New(CodeMalformedInput, format, args...)
}

// Unsupported creates an UnsupportedType halt.
func Unsupported(format string, args ...any) *Error {
	return New(CodeUnsupportedType, format, args...)
}

// Unbound creates an UnboundVariable halt for name.
func Unbound(name string) *Error {
	return New(CodeUnboundVariable, "unbound variable %s", name).With("symbol", name)
}

// Unassigned creates an UnboundVariable halt for a recursive binding read
// before its initializer completed.
func Unassigned(name string) *Error {
	return New(CodeUnboundVariable, "%s used before initialization", name).With("symbol", name)
}

// Arity creates an ArityError halt.
func Arity(proc string, format string, args ...any) *Error {
	return New(CodeArityError, "%s: %s", proc, fmt.Sprintf(format, args...)).With("procedure", proc)
}

// Type creates a TypeError halt.
func Type(format string, args ...any) *Error {
	return New(CodeTypeError, format, args...)
}

// SealMismatch creates a SealMismatch halt.
func SealMismatch() *Error {
	return New(CodeSealMismatch, "sealed object was not produced by the matching sealer")
}

// Exhausted creates a BudgetExhausted halt for the named resource.
func Exhausted(resource string, used, limit int64) *Error {
	return &Error{
		Code:    CodeBudgetExhausted,
		Message: fmt.Sprintf("%s budget exhausted (%d of %d)", resource, used, limit),
		Details: map[string]string{
			"resource": resource,
			"used":     fmt.Sprintf("%d", used),
			"limit":    fmt.Sprintf("%d", limit),
		},
	}
}
