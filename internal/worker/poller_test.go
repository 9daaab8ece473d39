package worker_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tadbirpay/gardeshgari-withdrawal/internal/domain"
	"github.com/tadbirpay/gardeshgari-withdrawal/internal/infrastructure/persistence/postgres"
	"github.com/tadbirpay/gardeshgari-withdrawal/internal/worker"
	"github.com/tadbirpay/gardeshgari-withdrawal/internal/workflow"
)

type fakeStore struct {
	mu      sync.Mutex
	due     []*domain.PaymentOrder
	saved   []*domain.PaymentOrder
	savedAt []*time.Time
	saveErr error
	done    chan struct{}
}

func (s *fakeStore) FindDue(ctx context.Context, now time.Time, limit int) ([]*domain.PaymentOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	due := s.due
	s.due = nil
	return due, nil
}

func (s *fakeStore) Save(ctx context.Context, order *domain.PaymentOrder, nextInquiryAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, order)
	s.savedAt = append(s.savedAt, nextInquiryAt)
	if s.done != nil {
		close(s.done)
		s.done = nil
	}
	return nil
}

type fakeGatewaySource struct {
	gw domain.GatewayInfo
}

func (f *fakeGatewaySource) FindByID(ctx context.Context, id string) (domain.GatewayInfo, error) {
	return f.gw, nil
}

type fakeOrchestrator struct {
	result func(order *domain.PaymentOrder) workflow.Result
	calls  int
}

func (f *fakeOrchestrator) InquiryPayment(ctx context.Context, order *domain.PaymentOrder, gw domain.GatewayInfo) workflow.Result {
	f.calls++
	return f.result(order)
}

func dueOrder() *domain.PaymentOrder {
	return &domain.PaymentOrder{
		OrderID:    "ord-1",
		GatewayID:  "gw-1",
		TrackingID: "ORG1-track",
		Status:     domain.StatusSubmittedToBank,
		Metadata:   domain.OrderMetadata{CurrentPhase: domain.PhaseRegistered},
	}
}

func runPoller(t *testing.T, store *fakeStore, flow worker.Orchestrator) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := worker.NewPoller(store, &fakeGatewaySource{}, flow, 5*time.Millisecond, 10, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Start(ctx)

	select {
	case <-store.done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller never saved the order")
	}
}

func TestPollerHonorsRetryAfterHint(t *testing.T) {
	store := &fakeStore{due: []*domain.PaymentOrder{dueOrder()}, done: make(chan struct{})}
	flow := &fakeOrchestrator{
		result: func(order *domain.PaymentOrder) workflow.Result {
			return workflow.Result{
				Message:    "still processing",
				Order:      order,
				RetryAfter: time.Minute,
			}
		},
	}

	before := time.Now()
	runPoller(t, store, flow)

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.saved, 1)
	require.NotNil(t, store.savedAt[0])
	assert.WithinDuration(t, before.Add(time.Minute), *store.savedAt[0], 5*time.Second)
	assert.Equal(t, 1, flow.calls)
}

func TestPollerStopsSchedulingTerminalOrders(t *testing.T) {
	store := &fakeStore{due: []*domain.PaymentOrder{dueOrder()}, done: make(chan struct{})}
	flow := &fakeOrchestrator{
		result: func(order *domain.PaymentOrder) workflow.Result {
			order.Status = domain.StatusBankSucceeded
			order.Metadata.CurrentPhase = domain.PhaseCompleted
			return workflow.Result{Success: true, Order: order}
		},
	}

	runPoller(t, store, flow)

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.saved, 1)
	assert.Nil(t, store.savedAt[0], "terminal orders are never rescheduled")
}

func TestPollerDropsStaleCopyOnVersionConflict(t *testing.T) {
	order := dueOrder()
	saved := make(chan struct{})
	store := &fakeStore{due: []*domain.PaymentOrder{order}, saveErr: postgres.ErrVersionConflict}
	flow := &fakeOrchestrator{
		result: func(o *domain.PaymentOrder) workflow.Result {
			defer close(saved)
			return workflow.Result{Order: o, RetryAfter: time.Second}
		},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := worker.NewPoller(store, &fakeGatewaySource{}, flow, 5*time.Millisecond, 10, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Start(ctx)

	select {
	case <-saved:
	case <-time.After(2 * time.Second):
		t.Fatal("poller never processed the order")
	}
	// A conflicting save is not an error; the other poller's copy wins.
}
