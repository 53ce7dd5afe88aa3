package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a referenced aggregate does not resolve.
	ErrNotFound = errors.New("not found")
	// ErrVersionConflict indicates a stale optimistic-concurrency write.
	ErrVersionConflict = errors.New("version conflict")
	// ErrDuplicate indicates a uniqueness violation (e.g. asset code per org).
	ErrDuplicate = errors.New("duplicate entry")
)

// RuleError is a business-rule violation with a stable machine code.
// It is raised from aggregate mutators before any field is changed, so a
// rejected command leaves the in-memory aggregate untouched.
type RuleError struct {
	Code    string
	Message string
}

// Error implements the error interface.
func (e *RuleError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewRule builds a RuleError with the given code and message.
func NewRule(code, message string) *RuleError {
	return &RuleError{Code: code, Message: message}
}

// NewRulef builds a RuleError with a formatted message.
func NewRulef(code, format string, args ...any) *RuleError {
	return &RuleError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsRule extracts a RuleError from err when present.
func AsRule(err error) (*RuleError, bool) {
	var re *RuleError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// IsRuleCode reports whether err is a RuleError carrying the given code.
func IsRuleCode(err error, code string) bool {
	re, ok := AsRule(err)
	return ok && re.Code == code
}
