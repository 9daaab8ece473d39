package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tadbirpay/gardeshgari-withdrawal/internal/domain"
)

func TestMetadataRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 21, 10, 30, 0, 0, time.UTC)

	var m domain.OrderMetadata
	m.Version = 4
	m.MarkExecutionStarted(now)
	m.MarkExecutionCompleted(now.Add(time.Second))
	m.RecordInquiry(now.Add(2*time.Second), "DONE")
	m.RecordLineItemStatus(1, "DONE")
	m.RecordLineItemStatus(2, "FAILED")

	blob, err := m.ToJSON()
	require.NoError(t, err)

	restored := domain.MetadataFromJSON(blob)
	assert.Equal(t, m.Version, restored.Version)
	assert.Equal(t, m.CurrentPhase, restored.CurrentPhase)
	assert.Equal(t, m.ExecutionAttempts, restored.ExecutionAttempts)
	assert.True(t, restored.IsDoPaymentCompleted)
	assert.Equal(t, "DONE", restored.LastBankStatus)
	assert.Equal(t, "FAILED", restored.TransactionStatuses[2])
	require.NotNil(t, restored.LastInquiryTime)
	assert.True(t, restored.LastInquiryTime.Equal(now.Add(2*time.Second)))
}

func TestMetadataFromJSONEmptyBlob(t *testing.T) {
	m := domain.MetadataFromJSON("")
	assert.Zero(t, m.ExecutionAttempts)
	assert.False(t, m.IsDoPaymentCompleted)
	assert.Empty(t, m.CurrentPhase)

	// Old orders may carry garbage; the workflow starts fresh rather than
	// refusing to load them.
	m = domain.MetadataFromJSON("{not json")
	assert.Zero(t, m.ExecutionAttempts)
}

func TestExecutionAttemptAccounting(t *testing.T) {
	now := time.Now()
	var m domain.OrderMetadata

	assert.True(t, m.CanRetryExecution(3))

	m.MarkExecutionStarted(now)
	m.MarkExecutionFailed(now, "gateway timeout")
	assert.Equal(t, 1, m.ExecutionAttempts)
	assert.Equal(t, "gateway timeout", m.LastExecutionError)
	assert.True(t, m.CanRetryExecution(3))

	m.MarkExecutionStarted(now)
	m.MarkExecutionFailed(now, "gateway timeout")
	m.MarkExecutionStarted(now)
	m.MarkExecutionFailed(now, "gateway timeout")
	assert.Equal(t, 3, m.ExecutionAttempts)
	assert.False(t, m.CanRetryExecution(3))
}

func TestExecutionCompletionIsABarrier(t *testing.T) {
	now := time.Now()
	var m domain.OrderMetadata

	m.MarkExecutionStarted(now)
	m.MarkExecutionCompleted(now)

	assert.True(t, m.IsDoPaymentCompleted)
	assert.Empty(t, m.LastExecutionError)
	assert.Equal(t, domain.PhaseExecuted, m.CurrentPhase)

	// Completed executions never admit another attempt, whatever the cap.
	assert.False(t, m.CanRetryExecution(100))
}

func TestNeedsRefresh(t *testing.T) {
	now := time.Now()
	var m domain.OrderMetadata

	assert.True(t, m.NeedsRefresh(now, 5*time.Minute), "never inquired means stale")

	m.RecordInquiry(now, "DONE")
	assert.False(t, m.NeedsRefresh(now.Add(time.Minute), 5*time.Minute))
	assert.True(t, m.NeedsRefresh(now.Add(6*time.Minute), 5*time.Minute))
}

func TestPhaseIsTerminal(t *testing.T) {
	assert.True(t, domain.PhaseCompleted.IsTerminal())
	assert.True(t, domain.PhaseFailed.IsTerminal())
	assert.False(t, domain.PhaseRegistered.IsTerminal())
	assert.False(t, domain.PhaseExecuting.IsTerminal())
}
