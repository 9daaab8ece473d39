package domain

import (
	"encoding/json"
	"time"
)

// Phase is the workflow's internal progress marker, distinct from the
// externally visible OrderStatus.
type Phase string

const (
	PhaseRegistered        Phase = "REGISTERED"
	PhaseProcessing        Phase = "PROCESSING"
	PhaseReadyForExecution Phase = "READY_FOR_EXECUTION"
	PhaseExecuting         Phase = "EXECUTING"
	PhaseExecuted          Phase = "EXECUTED"
	PhaseCompleted         Phase = "COMPLETED"
	PhaseFailed            Phase = "FAILED"
)

// IsTerminal reports whether no further workflow progress is possible.
func (p Phase) IsTerminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// OrderMetadata is the workflow's persisted scratch state. It travels on the
// order between polling calls; hosts that store it as a blob use ToJSON /
// MetadataFromJSON. Version supports compare-and-swap on save so concurrent
// pollers cannot both advance the same order.
type OrderMetadata struct {
	Version              int            `json:"version"`
	CurrentPhase         Phase          `json:"currentPhase,omitempty"`
	LastBankStatus       string         `json:"lastBankStatus,omitempty"`
	TransactionStatuses  map[int]string `json:"transactionStatuses,omitempty"`
	LastInquiryTime      *time.Time     `json:"lastInquiryTime,omitempty"`
	ExecutionAttempts    int            `json:"executionAttempts"`
	LastExecutionError   string         `json:"lastExecutionError,omitempty"`
	ExecutionStartedAt   *time.Time     `json:"executionStartedAt,omitempty"`
	ExecutionCompletedAt *time.Time     `json:"executionCompletedAt,omitempty"`
	IsDoPaymentCompleted bool           `json:"isDoPaymentCompleted"`
}

// ToJSON serializes the metadata for storage in the order's metadata blob.
func (m OrderMetadata) ToJSON() (string, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// MetadataFromJSON restores metadata from its storage form. An empty or
// unparsable blob yields fresh zero-valued metadata, matching the behavior
// expected for orders created before the workflow first ran.
func MetadataFromJSON(blob string) OrderMetadata {
	var m OrderMetadata
	if blob == "" {
		return m
	}
	if err := json.Unmarshal([]byte(blob), &m); err != nil {
		return OrderMetadata{}
	}
	return m
}

// MarkExecutionStarted records a DoPayment attempt. The attempt counter is
// incremented before the network call and never rolled back, so a crash
// mid-call still consumes an attempt. Under-execution is preferred over a
// duplicate payment.
func (m *OrderMetadata) MarkExecutionStarted(now time.Time) {
	m.ExecutionAttempts++
	m.ExecutionStartedAt = &now
	m.CurrentPhase = PhaseExecuting
}

// MarkExecutionCompleted records the single successful DoPayment. Once set,
// IsDoPaymentCompleted must never be cleared and Execute must never run again.
func (m *OrderMetadata) MarkExecutionCompleted(now time.Time) {
	m.IsDoPaymentCompleted = true
	m.ExecutionCompletedAt = &now
	m.LastExecutionError = ""
	m.CurrentPhase = PhaseExecuted
}

// MarkExecutionFailed records a failed DoPayment attempt.
func (m *OrderMetadata) MarkExecutionFailed(now time.Time, errMsg string) {
	m.LastExecutionError = errMsg
	m.ExecutionCompletedAt = &now
}

// RecordInquiry updates the last observed bank status and poll time.
func (m *OrderMetadata) RecordInquiry(now time.Time, bankStatus string) {
	m.LastBankStatus = bankStatus
	m.LastInquiryTime = &now
}

// RecordLineItemStatus caches the last raw bank status seen for a row.
func (m *OrderMetadata) RecordLineItemStatus(rowNumber int, rawStatus string) {
	if m.TransactionStatuses == nil {
		m.TransactionStatuses = make(map[int]string)
	}
	m.TransactionStatuses[rowNumber] = rawStatus
}

// CanRetryExecution reports whether another DoPayment attempt is allowed.
func (m *OrderMetadata) CanRetryExecution(maxAttempts int) bool {
	return !m.IsDoPaymentCompleted && m.ExecutionAttempts < maxAttempts
}

// NeedsRefresh reports whether a terminal order's cached status is stale
// enough to warrant re-contacting the bank.
func (m *OrderMetadata) NeedsRefresh(now time.Time, threshold time.Duration) bool {
	if m.LastInquiryTime == nil {
		return true
	}
	return now.Sub(*m.LastInquiryTime) >= threshold
}
