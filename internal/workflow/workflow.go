// Package workflow orchestrates the life of a batch withdrawal: register the
// order with the bank, poll until the batch is ready, execute fund movement
// exactly once, then reconcile per-line outcomes. All progress is recorded on
// the order's metadata so any poller holding the latest copy can resume.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tadbirpay/gardeshgari-withdrawal/internal/bank"
	"github.com/tadbirpay/gardeshgari-withdrawal/internal/domain"
)

type Workflow struct {
	gateway Gateway
	opts    Options
	logger  *slog.Logger
	now     func() time.Time
}

func NewWorkflow(gateway Gateway, opts Options, logger *slog.Logger) *Workflow {
	return &Workflow{
		gateway: gateway,
		opts:    opts.withDefaults(),
		logger:  logger,
		now:     time.Now,
	}
}

// RegisterPayment validates the order and submits it to the bank. On success
// the order carries the generated tracking id, every line item is waiting for
// execution and the order status is SubmittedToBank.
func (w *Workflow) RegisterPayment(ctx context.Context, order *domain.PaymentOrder, gw domain.GatewayInfo) (res Result) {
	defer w.recoverPanic(order, &res)

	if err := order.Validate(); err != nil {
		return Result{Message: err.Error(), Order: order}
	}
	if err := gw.Validate(); err != nil {
		return Result{Message: err.Error(), Order: order}
	}

	trackingID, err := w.gateway.Register(ctx, order, gw)
	if err != nil {
		w.logger.Error("order registration failed",
			"order_id", order.OrderID,
			"error", err,
		)
		// The order was never accepted by the bank, so nothing on it
		// changes. The caller may retry registration freely.
		res := Result{
			Message: fmt.Sprintf("registration failed: %v", err),
			Order:   order,
		}
		if bank.IsRetryableError(err) {
			res.RetryAfter = w.opts.RetryDelay
		}
		return res
	}

	order.TrackingID = trackingID
	order.Status = domain.StatusSubmittedToBank
	for i := range order.LineItems {
		order.LineItems[i].TrackingID = trackingID
		order.LineItems[i].Status = domain.ItemWaitForExecution
	}
	order.Metadata.CurrentPhase = domain.PhaseRegistered
	order.Metadata.LastBankStatus = "GROUP_PAYMENT_REGISTERED_STATE"

	w.logger.Info("order registered",
		"order_id", order.OrderID,
		"tracking_id", trackingID,
	)
	return Result{
		Success:    true,
		Message:    "order registered with bank",
		Order:      order,
		RetryAfter: w.opts.RetryDelay,
	}
}

// InquiryPayment advances a registered order one step: it polls readiness,
// executes when the batch is ready and attempts remain, and reconciles line
// outcomes once the bank is done. Each call makes at most one pass; callers
// re-poll per the RetryAfter hint until the order goes terminal.
func (w *Workflow) InquiryPayment(ctx context.Context, order *domain.PaymentOrder, gw domain.GatewayInfo) (res Result) {
	defer w.recoverPanic(order, &res)

	if order.TrackingID == "" {
		return Result{Message: domain.ErrTrackingIDMissing.Error(), Order: order}
	}
	if err := gw.Validate(); err != nil {
		return Result{Message: err.Error(), Order: order}
	}

	now := w.now()
	if order.Metadata.CurrentPhase.IsTerminal() && !order.Metadata.NeedsRefresh(now, w.opts.RefreshThreshold) {
		return Result{
			Success: order.Status == domain.StatusBankSucceeded,
			Message: fmt.Sprintf("order is %s", order.Status),
			Order:   order,
		}
	}

	readiness, err := w.gateway.CheckReadiness(ctx, order.TrackingID, gw)
	if err != nil {
		return w.transientFailure(order, "readiness inquiry failed", err)
	}
	order.Metadata.RecordInquiry(now, readiness.RawStatus)

	switch readiness.State {
	case bank.StateReady:
		if order.Metadata.IsDoPaymentCompleted {
			// Executed already; the bank has not flipped to DONE yet.
			order.Metadata.CurrentPhase = domain.PhaseExecuted
			return Result{
				Message:    "execution confirmed, waiting for bank settlement",
				Order:      order,
				RetryAfter: w.opts.RetryDelay,
			}
		}
		if !order.Metadata.CanRetryExecution(w.opts.MaxExecutionAttempts) {
			order.Status = domain.StatusBankRejected
			order.Metadata.CurrentPhase = domain.PhaseFailed
			w.logger.Error("execution attempts exhausted",
				"order_id", order.OrderID,
				"tracking_id", order.TrackingID,
				"attempts", order.Metadata.ExecutionAttempts,
			)
			return Result{
				Message: fmt.Sprintf("execution abandoned after %d attempts: %s",
					order.Metadata.ExecutionAttempts, order.Metadata.LastExecutionError),
				Order: order,
			}
		}
		order.Metadata.CurrentPhase = domain.PhaseReadyForExecution
		return w.execute(ctx, order, gw)

	case bank.StateDone:
		return w.reconcile(ctx, order, gw)

	case bank.StateError:
		return w.bankRejected(order, readiness)

	case bank.StateCanceled:
		return w.closeWithoutExecution(order, domain.StatusCanceled, domain.ItemCanceled, "order was canceled by the bank")

	case bank.StateExpired:
		return w.closeWithoutExecution(order, domain.StatusExpired, domain.ItemExpired, "order expired before execution")

	default:
		order.Metadata.CurrentPhase = domain.PhaseProcessing
		return Result{
			Message:    bank.StatusDescription(readiness.RawStatus),
			Order:      order,
			RetryAfter: w.opts.RetryDelay,
		}
	}
}

// execute performs the single fund-movement call. The attempt counter is
// bumped before the call and survives every outcome: if the process dies
// mid-call, the next poll sees the consumed attempt and will not silently
// double-pay.
func (w *Workflow) execute(ctx context.Context, order *domain.PaymentOrder, gw domain.GatewayInfo) Result {
	now := w.now()
	order.Metadata.MarkExecutionStarted(now)

	w.logger.Info("executing order",
		"order_id", order.OrderID,
		"tracking_id", order.TrackingID,
		"attempt", order.Metadata.ExecutionAttempts,
	)

	if err := w.gateway.Execute(ctx, order.TrackingID, gw); err != nil {
		order.Metadata.MarkExecutionFailed(w.now(), err.Error())
		w.logger.Error("execution attempt failed",
			"order_id", order.OrderID,
			"tracking_id", order.TrackingID,
			"attempt", order.Metadata.ExecutionAttempts,
			"error", err,
		)

		if bank.IsRetryableError(err) && order.Metadata.CanRetryExecution(w.opts.MaxExecutionAttempts) {
			return Result{
				Message:    fmt.Sprintf("execution failed, will retry: %v", err),
				Order:      order,
				RetryAfter: w.opts.RetryDelay,
			}
		}

		order.Status = domain.StatusBankRejected
		order.Metadata.CurrentPhase = domain.PhaseFailed
		return Result{Message: fmt.Sprintf("execution failed: %v", err), Order: order}
	}

	order.Metadata.MarkExecutionCompleted(w.now())
	for i := range order.LineItems {
		if order.LineItems[i].Status == domain.ItemWaitForExecution {
			order.LineItems[i].Status = domain.ItemWaitForBank
		}
	}

	w.logger.Info("order executed",
		"order_id", order.OrderID,
		"tracking_id", order.TrackingID,
	)

	// Some transfers settle immediately; pick those up in the same pass.
	return w.reconcile(ctx, order, gw)
}

// reconcile fetches per-line outcomes and derives the authoritative order
// status from them. A coarse DONE from the bank can still hide rejected rows.
func (w *Workflow) reconcile(ctx context.Context, order *domain.PaymentOrder, gw domain.GatewayInfo) Result {
	first, last := order.RowRange()
	rows, err := w.gateway.InquireDetails(ctx, bank.DetailInquiry{
		TrackingID: order.TrackingID,
		FirstIndex: &first,
		LastIndex:  &last,
	}, gw)
	if err != nil {
		return w.transientFailure(order, "detail inquiry failed", err)
	}

	for _, row := range rows {
		item := order.FindLineItem(row.LineNumber)
		if item == nil {
			w.logger.Warn("bank reported unknown line number",
				"order_id", order.OrderID,
				"line_number", row.LineNumber,
			)
			continue
		}
		raw := row.RawStatus
		if raw == "" {
			raw = row.FinalState
		}
		item.Status = bank.MapLineItemStatus(raw)
		if row.ReferenceNumber != "" {
			item.ReferenceNumber = row.ReferenceNumber
		}
		item.ProviderMessage = lineMessage(row)
		order.Metadata.RecordLineItemStatus(row.LineNumber, raw)
	}

	statuses := make([]domain.LineItemStatus, 0, len(order.LineItems))
	for _, item := range order.LineItems {
		statuses = append(statuses, item.Status)
	}
	order.Status = bank.DetermineOrderStatusFromLineItems(statuses)

	if order.Status == domain.StatusSubmittedToBank {
		// Some rows are still in flight.
		order.Metadata.CurrentPhase = domain.PhaseExecuted
		return Result{
			Message:    "waiting for remaining transfers to settle",
			Order:      order,
			RetryAfter: w.opts.RetryDelay,
		}
	}

	order.Metadata.CurrentPhase = domain.PhaseCompleted
	w.logger.Info("order reconciled",
		"order_id", order.OrderID,
		"tracking_id", order.TrackingID,
		"status", order.Status,
	)
	return Result{
		Success: order.Status == domain.StatusBankSucceeded,
		Message: fmt.Sprintf("order is %s", order.Status),
		Order:   order,
	}
}

// InquireLineItem refreshes a single row without touching the rest of the
// order.
func (w *Workflow) InquireLineItem(ctx context.Context, order *domain.PaymentOrder, gw domain.GatewayInfo, rowNumber int) (res Result) {
	defer w.recoverPanic(order, &res)

	if order.TrackingID == "" {
		return Result{Message: domain.ErrTrackingIDMissing.Error(), Order: order}
	}
	item := order.FindLineItem(rowNumber)
	if item == nil {
		return Result{Message: fmt.Sprintf("order has no line item with row number %d", rowNumber), Order: order}
	}

	rows, err := w.gateway.InquireDetails(ctx, bank.DetailInquiry{
		TrackingID: order.TrackingID,
		LineNumber: &rowNumber,
	}, gw)
	if err != nil {
		return w.transientFailure(order, "line inquiry failed", err)
	}
	if len(rows) == 0 {
		return Result{Message: fmt.Sprintf("bank returned no result for row %d", rowNumber), Order: order}
	}

	row := rows[0]
	raw := row.RawStatus
	if raw == "" {
		raw = row.FinalState
	}
	item.Status = bank.MapLineItemStatus(raw)
	if row.ReferenceNumber != "" {
		item.ReferenceNumber = row.ReferenceNumber
	}
	item.ProviderMessage = lineMessage(row)
	order.Metadata.RecordLineItemStatus(rowNumber, raw)

	return Result{
		Success: item.Status == domain.ItemBankSucceeded,
		Message: fmt.Sprintf("row %d is %s", rowNumber, item.Status),
		Order:   order,
	}
}

// bankRejected closes an order the bank refused before execution. Rows that
// never reached the bank are marked rejected along with the order.
func (w *Workflow) bankRejected(order *domain.PaymentOrder, readiness *bank.ReadinessResult) Result {
	msg := "bank rejected the order"
	if details := recordErrorSummary(readiness.RecordErrors); details != "" {
		msg = fmt.Sprintf("%s: %s", msg, details)
	}

	for i := range order.LineItems {
		switch order.LineItems[i].Status {
		case domain.ItemWaitForExecution, domain.ItemWaitForBank, domain.ItemRegistered:
			order.LineItems[i].Status = domain.ItemBankRejected
			order.LineItems[i].ProviderMessage = msg
		}
	}
	order.Status = domain.StatusBankRejected
	order.Metadata.CurrentPhase = domain.PhaseFailed
	w.logger.Error("order rejected by bank",
		"order_id", order.OrderID,
		"tracking_id", order.TrackingID,
		"detail", msg,
	)
	return Result{Message: msg, Order: order}
}

// closeWithoutExecution marks an order the bank canceled or expired. Not an
// error outcome: the payment simply did not happen.
func (w *Workflow) closeWithoutExecution(order *domain.PaymentOrder, status domain.OrderStatus, itemStatus domain.LineItemStatus, msg string) Result {
	for i := range order.LineItems {
		if order.LineItems[i].Status != domain.ItemBankSucceeded {
			order.LineItems[i].Status = itemStatus
		}
	}
	order.Status = status
	order.Metadata.CurrentPhase = domain.PhaseFailed

	w.logger.Info("order closed without execution",
		"order_id", order.OrderID,
		"tracking_id", order.TrackingID,
		"status", status,
	)
	return Result{Message: msg, Order: order}
}

// transientFailure wraps a bank call failure without changing the order's
// status. Retryable failures carry a re-poll hint; others are surfaced to the
// operator but keep the order resumable.
func (w *Workflow) transientFailure(order *domain.PaymentOrder, what string, err error) Result {
	w.logger.Error(what,
		"order_id", order.OrderID,
		"tracking_id", order.TrackingID,
		"error", err,
	)
	res := Result{
		Message: fmt.Sprintf("%s: %v", what, err),
		Order:   order,
	}
	if bank.IsRetryableError(err) {
		res.RetryAfter = w.opts.RetryDelay
	}
	return res
}

// recoverPanic converts an unexpected panic inside the workflow into a
// SYSTEM_ERROR terminal outcome so the order is never left half-updated with
// no recorded cause.
func (w *Workflow) recoverPanic(order *domain.PaymentOrder, res *Result) {
	r := recover()
	if r == nil {
		return
	}
	order.Status = domain.StatusSystemError
	order.Metadata.CurrentPhase = domain.PhaseFailed
	order.Metadata.LastExecutionError = fmt.Sprintf("panic: %v", r)
	w.logger.Error("workflow panic",
		"order_id", order.OrderID,
		"tracking_id", order.TrackingID,
		"panic", r,
	)
	*res = Result{
		Message: fmt.Sprintf("internal error: %v", r),
		Order:   order,
	}
}

func lineMessage(row bank.LineResult) string {
	if row.ErrorDescription != "" {
		return row.ErrorDescription
	}
	return row.FinalMessage
}

func recordErrorSummary(errs []bank.RecordError) string {
	if len(errs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		if e.ParamPath != "" {
			parts = append(parts, fmt.Sprintf("%s (%s)", e.Description, e.ParamPath))
		} else {
			parts = append(parts, e.Description)
		}
	}
	return strings.Join(parts, "; ")
}
