package manifest

import (
	"fmt"

	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// Error codes for manifest loading.
const (
	ErrCodeUnknownVersion = "E201"
	ErrCodeCUE            = "E202"
	ErrCodeInvalid        = "E203"
)

// LoadError reports a manifest that could not be loaded.
type LoadError struct {
	Code    string
	Field   string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	prefix := e.Code
	if e.Pos.IsValid() {
		prefix = fmt.Sprintf("%s %s:%d:%d", e.Code, e.Pos.Filename(), e.Pos.Line(), e.Pos.Column())
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", prefix, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Code: ErrCodeCUE, Message: err.Error()}
	}

	// Report the first error with position info
	first := errs[0]
	loadErr := &LoadError{Code: ErrCodeCUE, Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		loadErr.Pos = positions[0]
	}
	return loadErr
}
