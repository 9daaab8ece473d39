// Package worker runs the background poller that drives registered orders
// forward. The workflow itself never sleeps; every delay it requests comes
// back as a RetryAfter hint that the poller turns into a next_inquiry_at
// schedule.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tadbirpay/gardeshgari-withdrawal/internal/domain"
	"github.com/tadbirpay/gardeshgari-withdrawal/internal/infrastructure/persistence/postgres"
	"github.com/tadbirpay/gardeshgari-withdrawal/internal/workflow"
)

// OrderStore is the slice of the order repository the poller needs.
type OrderStore interface {
	FindDue(ctx context.Context, now time.Time, limit int) ([]*domain.PaymentOrder, error)
	Save(ctx context.Context, order *domain.PaymentOrder, nextInquiryAt *time.Time) error
}

// GatewaySource resolves the credentials for an order's gateway.
type GatewaySource interface {
	FindByID(ctx context.Context, id string) (domain.GatewayInfo, error)
}

// Orchestrator advances one order a single step.
type Orchestrator interface {
	InquiryPayment(ctx context.Context, order *domain.PaymentOrder, gw domain.GatewayInfo) workflow.Result
}

type Poller struct {
	orders    OrderStore
	gateways  GatewaySource
	flow      Orchestrator
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
	now       func() time.Time
}

func NewPoller(
	orders OrderStore,
	gateways GatewaySource,
	flow Orchestrator,
	interval time.Duration,
	batchSize int,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		orders:    orders,
		gateways:  gateways,
		flow:      flow,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
		now:       time.Now,
	}
}

func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("order poller started", "interval", p.interval, "batch_size", p.batchSize)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("order poller stopping")
			return
		case <-ticker.C:
			if err := p.processDue(ctx); err != nil {
				p.logger.Error("poll cycle failed", "error", err)
			}
		}
	}
}

func (p *Poller) processDue(ctx context.Context) error {
	now := p.now()
	due, err := p.orders.FindDue(ctx, now, p.batchSize)
	if err != nil {
		return err
	}

	var advanced int
	for _, order := range due {
		if err := p.pollOrder(ctx, order); err != nil {
			p.logger.Error("order poll failed",
				"order_id", order.OrderID,
				"error", err)
		} else {
			advanced++
		}
	}

	if advanced > 0 {
		p.logger.Info("polled due orders", "count", advanced)
	}
	return nil
}

func (p *Poller) pollOrder(ctx context.Context, order *domain.PaymentOrder) error {
	gw, err := p.gateways.FindByID(ctx, order.GatewayID)
	if err != nil {
		return err
	}

	res := p.flow.InquiryPayment(ctx, order, gw)
	if !res.Success && res.Message != "" {
		p.logger.Debug("order still in flight",
			"order_id", order.OrderID,
			"message", res.Message,
		)
	}

	err = p.orders.Save(ctx, res.Order, p.nextInquiryAt(res))
	if errors.Is(err, postgres.ErrVersionConflict) {
		// Another poller advanced this order; its copy wins.
		p.logger.Debug("dropping stale order copy", "order_id", order.OrderID)
		return nil
	}
	return err
}

// nextInquiryAt schedules the follow-up poll. A terminal order gets none, a
// RetryAfter hint is honored as given, and anything else falls back to the
// poller's own interval.
func (p *Poller) nextInquiryAt(res workflow.Result) *time.Time {
	if res.Order.Metadata.CurrentPhase.IsTerminal() {
		return nil
	}
	delay := res.RetryAfter
	if delay <= 0 {
		delay = p.interval
	}
	next := p.now().Add(delay)
	return &next
}
