package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business rule violation. These are reported to the
// caller verbatim and are never retried.
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *DomainError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeOrderNotFound   = "ORDER_NOT_FOUND"
	ErrCodeVersionConflict = "VERSION_CONFLICT"
)

func NewValidationError(message string) *DomainError {
	return &DomainError{Code: ErrCodeValidation, Message: message}
}

func NewOrderNotFoundError(orderID string) *DomainError {
	return &DomainError{
		Code:    ErrCodeOrderNotFound,
		Message: fmt.Sprintf("payment order %s not found", orderID),
	}
}

// NewVersionConflictError signals that another writer saved the order since
// it was loaded. The caller should reload and re-run the inquiry.
func NewVersionConflictError(orderID string, expected int) *DomainError {
	return &DomainError{
		Code:    ErrCodeVersionConflict,
		Message: fmt.Sprintf("payment order %s metadata version %d is stale", orderID, expected),
	}
}

// IsErrorCode checks if an error is a DomainError with a specific code.
func IsErrorCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}
