package apperrors

import (
	"errors"
	"fmt"
)

// Categories. Structured errors below unwrap to one of these so callers can
// branch with errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("resource not found")
	ErrBusinessRule = errors.New("business rule violated")
	ErrDatabase     = errors.New("database error")
)

// Error codes surfaced to API callers.
const (
	CodeInvalidDateFormat = "INVALID_DATE_FORMAT"
	CodeInvalidDateRange  = "INVALID_DATE_RANGE"
	CodeInvalidIDFormat   = "INVALID_ID_FORMAT"
	CodeInvalidGatePass   = "INVALID_GATE_PASS"
	CodeDuplicateGatePass = "DUPLICATE_GATE_PASS"
	CodeStudentNotFound   = "STUDENT_NOT_FOUND"
	CodeRebateNotFound    = "REBATE_NOT_FOUND"
	CodeInvalidPrice      = "INVALID_PRICE"
	CodeNoPriceProvided   = "NO_PRICE_PROVIDED"
	CodeInvalidFilter     = "INVALID_FILTER"
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeOverlap           = "REBATE_OVERLAP"
	CodeDatabase          = "DATABASE_ERROR"
)

const RuleNoOverlap = "no-overlap"

type ValidationError struct {
	Field   string
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func Validation(field, code, message string) error {
	return &ValidationError{Field: field, Code: code, Message: message}
}

type NotFoundError struct {
	Resource string
	Code     string
	Message  string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NotFound reports a missing resource. id is folded into the message.
func NotFound(resource, code, id string) error {
	msg := fmt.Sprintf("%s not found", resource)
	if id != "" {
		msg = fmt.Sprintf("%s %q not found", resource, id)
	}
	return &NotFoundError{Resource: resource, Code: code, Message: msg}
}

type BusinessRuleError struct {
	Rule    string
	Code    string
	Message string
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("%s: %s", e.Rule, e.Message)
}

func (e *BusinessRuleError) Unwrap() error { return ErrBusinessRule }

func BusinessRule(rule, code, message string) error {
	return &BusinessRuleError{Rule: rule, Code: code, Message: message}
}

// DatabaseError wraps a backing-store failure. Its message never leaves the
// process; the HTTP layer replaces it with a generic one.
type DatabaseError struct {
	Op  string
	Err error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DatabaseError) Unwrap() []error { return []error{ErrDatabase, e.Err} }

func Database(op string, err error) error {
	return &DatabaseError{Op: op, Err: err}
}

// IsExpected reports whether err belongs to the caller-correctable classes.
func IsExpected(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrBusinessRule)
}
