// CLAUDE:SUMMARY Error taxonomy — structured codes for rejected mutations (validation, state violation, manual override misuse)
package engine

import "fmt"

// Error codes surfaced to callers. ConsistencyConflict and ComputationGuard
// conditions are resolved internally (lock-and-retry, fallback values) and
// never appear here.
const (
	CodeValidation     = "validation_error"
	CodeStateViolation = "state_violation"
	CodeNotFound       = "not_found"
)

// Error is a structured, taxonomy-coded rejection.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func validationErr(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

func stateErr(format string, args ...any) *Error {
	return &Error{Code: CodeStateViolation, Message: fmt.Sprintf(format, args...)}
}

func notFoundErr(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the taxonomy code from err, or "" for internal errors.
func CodeOf(err error) string {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}
