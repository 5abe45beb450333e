package cfg

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a BadInputError for programmatic handling.
type ErrorCode string

const (
	// ErrCodeSyntax marks malformed tokens: bad numbers, bad grammar.
	ErrCodeSyntax ErrorCode = "SYNTAX"

	// ErrCodeRange marks numeric values outside the documented range.
	ErrCodeRange ErrorCode = "RANGE"

	// ErrCodeConflict marks self-contradictory input, e.g. a factory that is
	// both required and excluded.
	ErrCodeConflict ErrorCode = "CONFLICT"

	// ErrCodeStructure marks values violating a structural invariant, e.g. a
	// null vector.
	ErrCodeStructure ErrorCode = "STRUCTURE"

	// ErrCodeUnknownVariable marks a name that is not in the registry.
	ErrCodeUnknownVariable ErrorCode = "UNKNOWN_VARIABLE"

	// ErrCodeDependency marks a variable set without the variables it
	// requires.
	ErrCodeDependency ErrorCode = "DEPENDENCY"
)

// BadInputError is the single error kind produced by this package. It always
// names the offending variable (when known), the offending token and a
// human-readable reason that can be shown to end users verbatim.
type BadInputError struct {
	// Var is the configuration variable being parsed, empty for grammar
	// errors that are not yet attributed to a variable.
	Var string `json:"var,omitempty"`

	// Token is the raw token or sub-token that was rejected.
	Token string `json:"token"`

	// Reason explains what is wrong and what would be accepted.
	Reason string `json:"reason"`

	// Code classifies the failure.
	Code ErrorCode `json:"code"`

	// Err is the underlying cause, if any.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *BadInputError) Error() string {
	if e.Var != "" {
		return fmt.Sprintf("invalid value %q for parameter %q: %s", e.Token, e.Var, e.Reason)
	}
	return fmt.Sprintf("invalid input %q: %s", e.Token, e.Reason)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *BadInputError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a BadInputError with the same code. A target
// without a code matches any BadInputError.
func (e *BadInputError) Is(target error) bool {
	t, ok := target.(*BadInputError)
	if !ok {
		return false
	}
	return t.Code == "" || e.Code == t.Code
}

// ErrBadInput matches every BadInputError with errors.Is.
var ErrBadInput = &BadInputError{}

func newBadInput(code ErrorCode, token, format string, args ...interface{}) *BadInputError {
	return &BadInputError{
		Code:   code,
		Token:  token,
		Reason: fmt.Sprintf(format, args...),
	}
}

// WithVar attributes the error to a variable. Grammar errors raised by the
// compound parsers are re-wrapped this way by the owning variable.
func (e *BadInputError) WithVar(name string) *BadInputError {
	e.Var = name
	return e
}

// WithCause records the underlying error.
func (e *BadInputError) WithCause(err error) *BadInputError {
	e.Err = err
	return e
}

// IsBadInput returns true if err is or wraps a BadInputError.
func IsBadInput(err error) bool {
	var e *BadInputError
	return errors.As(err, &e)
}

// CodeOf returns the code of the first BadInputError in err's chain, or ""
// when there is none.
func CodeOf(err error) ErrorCode {
	var e *BadInputError
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// wrapForVar attributes a grammar error to variable name. The grammar message
// is kept as the reason, and the raw value of the variable becomes the token.
func wrapForVar(err error, name, raw, what string) error {
	var bi *BadInputError
	if !errors.As(err, &bi) {
		return newBadInput(ErrCodeSyntax, raw, "%s", err.Error()).WithVar(name).WithCause(err)
	}
	return &BadInputError{
		Var:    name,
		Token:  raw,
		Code:   bi.Code,
		Reason: fmt.Sprintf("syntax error in %s: %s (at %q)", what, bi.Reason, bi.Token),
		Err:    err,
	}
}
