package bank

import (
	"errors"
	"fmt"
)

// ConfigurationError means the gateway credentials or signing key are missing
// or malformed. Fatal for the call, never retried.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("gateway configuration invalid: %s (%s)", e.Message, e.Field)
	}
	return fmt.Sprintf("gateway configuration invalid: %s", e.Message)
}

// AuthError means the OAuth token exchange failed. Transport-adjacent;
// retryable at the caller's discretion.
type AuthError struct {
	Message    string
	StatusCode int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("access token exchange failed [%d]: %s", e.StatusCode, e.Message)
}

// TransportError is an HTTP-level failure: network error, timeout or a
// non-2xx response. StatusCode is zero when the request never reached the
// bank.
type TransportError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("bank transport error [%d]: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("bank transport error: %s", e.Message)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// retryableHTTPCodes is the allow-list used for the non-idempotent Execute
// call. Read-only calls may be retried regardless of code.
var retryableHTTPCodes = map[int]bool{408: true, 500: true, 502: true, 503: true, 504: true}

// IsRetryable reports whether the failure is in the retry allow-list.
// Requests that never reached the bank (timeouts, connection resets) count
// as retryable.
func (e *TransportError) IsRetryable() bool {
	if e.StatusCode == 0 {
		return true
	}
	return retryableHTTPCodes[e.StatusCode]
}

// BusinessError is a well-formed 2xx response in which the bank reports a
// failure. Terminal for the call but not necessarily for the order.
type BusinessError struct {
	Code    int
	Message string
}

func (e *BusinessError) Error() string {
	return fmt.Sprintf("bank rejected request [%d]: %s", e.Code, e.Message)
}

// IsConfigurationError reports whether err is a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsRetryableError reports whether err may be retried for a money-moving
// call: only transport failures on the allow-list qualify.
func IsRetryableError(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return te.IsRetryable()
	}
	var ae *AuthError
	return errors.As(err, &ae)
}
