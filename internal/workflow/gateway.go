package workflow

import (
	"context"
	"time"

	"github.com/tadbirpay/gardeshgari-withdrawal/internal/bank"
	"github.com/tadbirpay/gardeshgari-withdrawal/internal/domain"
)

// Gateway is the bank-facing port the workflow drives. *bank.Client is the
// production implementation.
type Gateway interface {
	Register(ctx context.Context, order *domain.PaymentOrder, gw domain.GatewayInfo) (string, error)
	Execute(ctx context.Context, trackingID string, gw domain.GatewayInfo) error
	CheckReadiness(ctx context.Context, trackingID string, gw domain.GatewayInfo) (*bank.ReadinessResult, error)
	InquireDetails(ctx context.Context, inq bank.DetailInquiry, gw domain.GatewayInfo) ([]bank.LineResult, error)
}

// Result is the workflow's only public outcome. The workflow never returns a
// Go error to its caller: failures are reported in Message and the order's
// status, and the caller persists Order exactly as handed back regardless of
// Success. RetryAfter is a scheduling hint: when non-zero, polling the order
// again after that delay can still make progress. The workflow itself never
// sleeps.
type Result struct {
	Success    bool
	Message    string
	Order      *domain.PaymentOrder
	RetryAfter time.Duration
}

// Options tunes the orchestration. Zero values take the defaults.
type Options struct {
	// MaxExecutionAttempts bounds how many times DoPayment may be tried
	// for one order. Attempts count calls started, not calls confirmed
	// failed.
	MaxExecutionAttempts int
	// RefreshThreshold is how long a terminal order's cached status is
	// served before the bank is contacted again.
	RefreshThreshold time.Duration
	// RetryDelay is the re-poll hint attached to transient failures and
	// still-processing results.
	RetryDelay time.Duration
}

const (
	defaultMaxExecutionAttempts = 3
	defaultRefreshThreshold     = 5 * time.Minute
	defaultRetryDelay           = 10 * time.Second
)

func (o Options) withDefaults() Options {
	if o.MaxExecutionAttempts <= 0 {
		o.MaxExecutionAttempts = defaultMaxExecutionAttempts
	}
	if o.RefreshThreshold <= 0 {
		o.RefreshThreshold = defaultRefreshThreshold
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = defaultRetryDelay
	}
	return o
}
