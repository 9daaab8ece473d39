package bank

import (
	"strings"

	"github.com/tadbirpay/gardeshgari-withdrawal/internal/domain"
)

// State is the closed set of order-level conditions the bank can report.
// Raw status strings are parsed once with ParseState at this boundary; all
// downstream dispatch switches over State instead of re-comparing strings.
type State int

const (
	StateUnknown State = iota
	StateProcessing
	StateReady
	StateDone
	StateError
	StateCanceled
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateProcessing:
		return "PROCESSING"
	case StateReady:
		return "READY"
	case StateDone:
		return "DONE"
	case StateError:
		return "ERROR"
	case StateCanceled:
		return "CANCELED"
	case StateExpired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

// ParseState classifies a raw bank status string. Unrecognized and empty
// statuses map to StateUnknown; the bank's vocabulary is not contractually
// closed.
func ParseState(raw string) State {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "READY":
		return StateReady
	case "DONE":
		return StateDone
	case "GROUP_PAYMENT_ERROR_STATE", "FAILED", "FAIL":
		return StateError
	case "CANCELED", "CANCELLED":
		return StateCanceled
	case "EXPIRED", "TIMEOUT":
		return StateExpired
	case "GROUP_PAYMENT_WAITING_STATE", "GROUP_PAYMENT_REGISTERED_STATE",
		"GROUP_PAYMENT_UPLOADING_STATE", "PROCESSING", "INPROGRESS":
		return StateProcessing
	default:
		return StateUnknown
	}
}

// MapOrderStatus translates a raw bank status to the order-level enum. Every
// unmapped status falls back to SubmittedToBank: an unknown vocabulary entry
// means "still processing", never a hard failure.
func MapOrderStatus(raw string) domain.OrderStatus {
	switch ParseState(raw) {
	case StateDone:
		// DONE at the order level still needs per-line confirmation.
		return domain.StatusBankSucceeded
	case StateError:
		return domain.StatusBankRejected
	case StateCanceled:
		return domain.StatusCanceled
	case StateExpired:
		return domain.StatusExpired
	default:
		return domain.StatusSubmittedToBank
	}
}

// MapLineItemStatus translates a raw per-transaction status to the line-item
// enum, falling back to WaitForBank for anything unrecognized.
func MapLineItemStatus(raw string) domain.LineItemStatus {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "TODO":
		return domain.ItemWaitForExecution
	case "REGISTERED":
		return domain.ItemRegistered
	case "DONE", "SUCCESS", "SUCCESSFUL":
		return domain.ItemBankSucceeded
	case "FAIL", "FAILED", "ERROR", "REJECTED":
		return domain.ItemBankRejected
	case "ROLLBACK", "REVERSED", "REFUNDED":
		return domain.ItemTransactionRollback
	case "CANCELED", "CANCELLED":
		return domain.ItemCanceled
	case "EXPIRED", "TIMEOUT":
		return domain.ItemExpired
	default:
		return domain.ItemWaitForBank
	}
}

// IsFinal reports whether the bank will not change this status anymore.
func IsFinal(raw string) bool {
	switch ParseState(raw) {
	case StateDone, StateError, StateCanceled, StateExpired:
		return true
	default:
		return false
	}
}

// IsRetryable reports whether polling the same order again can still change
// its outcome.
func IsRetryable(raw string) bool {
	return !IsFinal(raw)
}

// IsSuccess reports whether the raw status denotes a successful transfer.
func IsSuccess(raw string) bool {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "DONE", "SUCCESS", "SUCCESSFUL":
		return true
	default:
		return false
	}
}

// IsError reports whether the raw status denotes a rejected transfer.
func IsError(raw string) bool {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "GROUP_PAYMENT_ERROR_STATE", "FAILED", "FAIL", "ERROR", "REJECTED":
		return true
	default:
		return false
	}
}

// RequiresDetailedInquiry reports whether line-level results must be fetched
// to learn the true outcome: DONE guarantees nothing about individual rows.
func RequiresDetailedInquiry(raw string) bool {
	switch ParseState(raw) {
	case StateDone, StateError:
		return true
	default:
		return false
	}
}

// StatusDescription renders a raw bank status as human-readable text for
// "still processing" replies.
func StatusDescription(raw string) string {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "":
		return "status unknown"
	case "GROUP_PAYMENT_WAITING_STATE":
		return "waiting for bank processing"
	case "GROUP_PAYMENT_REGISTERED_STATE":
		return "registered with bank"
	case "GROUP_PAYMENT_UPLOADING_STATE":
		return "bank is uploading the batch"
	case "GROUP_PAYMENT_ERROR_STATE":
		return "bank reported a processing error"
	case "PROCESSING", "INPROGRESS":
		return "processing"
	case "READY":
		return "ready for execution"
	case "DONE":
		return "completed"
	case "FAILED", "FAIL":
		return "failed"
	case "CANCELED", "CANCELLED":
		return "canceled"
	case "EXPIRED":
		return "expired"
	case "TODO":
		return "waiting for execution"
	case "REGISTERED":
		return "registered"
	case "ROLLBACK", "REVERSED":
		return "rolled back"
	default:
		return raw
	}
}

// DetermineOrderStatusFromLineItems derives the authoritative order status
// once per-line reconciliation data is available. It overrides the coarse
// order-level mapping.
func DetermineOrderStatusFromLineItems(statuses []domain.LineItemStatus) domain.OrderStatus {
	if len(statuses) == 0 {
		return domain.StatusSubmittedToBank
	}

	var succeeded, rejected, canceled int
	for _, s := range statuses {
		switch s {
		case domain.ItemBankSucceeded:
			succeeded++
		case domain.ItemBankRejected:
			rejected++
		case domain.ItemCanceled:
			canceled++
		}
	}

	total := len(statuses)
	switch {
	case succeeded == total:
		return domain.StatusBankSucceeded
	case rejected == total:
		return domain.StatusBankRejected
	case succeeded > 0 && rejected > 0:
		return domain.StatusDoneWithError
	case canceled == total:
		return domain.StatusCanceled
	default:
		return domain.StatusSubmittedToBank
	}
}
