package bank_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tadbirpay/gardeshgari-withdrawal/internal/bank"
)

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"request never sent", &bank.TransportError{Message: "dial tcp: timeout"}, true},
		{"gateway timeout", &bank.TransportError{StatusCode: 504, Message: "gateway timeout"}, true},
		{"internal error", &bank.TransportError{StatusCode: 500, Message: "boom"}, true},
		{"request timeout", &bank.TransportError{StatusCode: 408, Message: "slow"}, true},
		{"bad request", &bank.TransportError{StatusCode: 400, Message: "malformed"}, false},
		{"unauthorized", &bank.TransportError{StatusCode: 401, Message: "denied"}, false},
		{"token exchange failed", &bank.AuthError{StatusCode: 503, Message: "idp down"}, true},
		{"bank business refusal", &bank.BusinessError{Code: 12, Message: "insufficient funds"}, false},
		{"configuration problem", &bank.ConfigurationError{Field: "private_key", Message: "bad"}, false},
		{"wrapped transport error", fmt.Errorf("call failed: %w", &bank.TransportError{StatusCode: 502}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, bank.IsRetryableError(tt.err))
		})
	}
}

func TestTransportErrorUnwrap(t *testing.T) {
	inner := errors.New("connection reset")
	te := &bank.TransportError{Message: "send failed", Err: inner}
	assert.ErrorIs(t, te, inner)
}
