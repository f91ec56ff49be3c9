package model

import (
	"errors"
	"fmt"
	"unicode"
)

const (
	queryMinLen = 3
	queryMaxLen = 1000
)

var (
	// ErrValidation marks malformed input rejected before the pipeline runs.
	ErrValidation = errors.New("validation error")

	// ErrProviderUnavailable marks a backend that cannot serve the call
	// (network, auth, quota, or timeout). Recoverable via fallback.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrSchemaViolation marks model output that could not be coerced to the
	// requested schema after a repair attempt. Agents recover with a
	// deterministic default, never the caller.
	ErrSchemaViolation = errors.New("schema violation")
)

// PipelineError is the only failure category surfaced to callers. It names
// the stage that failed so the caller never receives a partial answer.
type PipelineError struct {
	Stage string
	Code  string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline stage %s failed (%s): %v", e.Stage, e.Code, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// ValidateQuery enforces the query bounds: 3-1000 characters with at least
// one alphanumeric rune.
func ValidateQuery(text string) error {
	n := len([]rune(text))
	if n < queryMinLen {
		return fmt.Errorf("%w: query must be at least %d characters", ErrValidation, queryMinLen)
	}
	if n > queryMaxLen {
		return fmt.Errorf("%w: query must be at most %d characters", ErrValidation, queryMaxLen)
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return nil
		}
	}
	return fmt.Errorf("%w: query must contain at least one letter or digit", ErrValidation)
}
