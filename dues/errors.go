/*
errors.go - Error types for the dues calculation core

PURPOSE:
  All core error identities in one place. The calculation functions
  themselves never return errors (malformed input neutralizes to the
  all-zero breakdown); errors here belong to the validation surface that
  callers compose in front of the calculator.

USAGE:
  if err := dues.ValidateMember(m); err != nil {
      if errors.Is(err, dues.ErrInvalidInput) {
          // 400, not 500
      }
  }

SEE ALSO:
  - validate.go: The validation functions producing these errors
  - engine package: host-level errors (member lookup, scheduler lifecycle)
*/
package dues

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidInput is the common ancestor of every validation failure.
	ErrInvalidInput = errors.New("invalid input")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the offending field and the reason it was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// IsInvalidInput reports whether err is (or wraps) a validation failure.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
