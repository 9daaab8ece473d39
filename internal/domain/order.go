// Package domain holds the payment order model shared between the bank
// gateway, the orchestration workflow and the host-facing ports.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// OrderStatus is the order-level status exposed to the host system.
type OrderStatus string

const (
	StatusSubmittedToBank OrderStatus = "SUBMITTED_TO_BANK"
	StatusBankSucceeded   OrderStatus = "BANK_SUCCEEDED"
	StatusBankRejected    OrderStatus = "BANK_REJECTED"
	StatusDoneWithError   OrderStatus = "DONE_WITH_ERROR"
	StatusCanceled        OrderStatus = "CANCELED"
	StatusExpired         OrderStatus = "EXPIRED"
	StatusSystemError     OrderStatus = "SYSTEM_ERROR"
)

// LineItemStatus is the per-transfer status exposed to the host system.
type LineItemStatus string

const (
	ItemWaitForExecution    LineItemStatus = "WAIT_FOR_EXECUTION"
	ItemRegistered          LineItemStatus = "REGISTERED"
	ItemWaitForBank         LineItemStatus = "WAIT_FOR_BANK"
	ItemBankSucceeded       LineItemStatus = "BANK_SUCCEEDED"
	ItemBankRejected        LineItemStatus = "BANK_REJECTED"
	ItemTransactionRollback LineItemStatus = "TRANSACTION_ROLLBACK"
	ItemCanceled            LineItemStatus = "CANCELED"
	ItemExpired             LineItemStatus = "EXPIRED"
)

// ReasonCode identifies the declared purpose of a transfer. The bank maps
// these to its cause-type table (1..19).
type ReasonCode int

const (
	ReasonSalaryDeposit ReasonCode = iota + 1
	ReasonServicesInsurance
	ReasonTherapeutic
	ReasonInvestmentAndBourse
	ReasonLegalCurrencyActivities
	ReasonDebtPayment
	ReasonRetirement
	ReasonMovableProperties
	ReasonImmovableProperties
	ReasonCashManagement
	ReasonCustomsDuties
	ReasonTaxSettle
	ReasonOtherGovernmentServices
	ReasonFacilitiesAndCommitments
	ReasonBondReturn
	ReasonGeneralAndDailyCosts
	ReasonCharity
	ReasonStuffsPurchase
	ReasonServicesPurchase
)

// CauseType returns the numeric cause code the bank expects for this reason.
// Unknown reasons fall back to general daily costs.
func (r ReasonCode) CauseType() int {
	if r >= ReasonSalaryDeposit && r <= ReasonServicesPurchase {
		return int(r)
	}
	return int(ReasonGeneralAndDailyCosts)
}

// LineItem is a single transfer row inside a batch payment order.
type LineItem struct {
	RowNumber       int
	DestinationIBAN string
	Amount          int64
	RecipientName   string
	Description     string
	ReasonCode      ReasonCode
	Status          LineItemStatus
	TrackingID      string
	ReferenceNumber string
	ProviderMessage string
}

// PaymentOrder is a batch transfer request. The host order store owns
// persistence; the workflow mutates Status, TrackingID and Metadata and hands
// the order back for saving.
type PaymentOrder struct {
	OrderID     string
	GatewayID   string
	TrackingID  string
	Status      OrderStatus
	Description string
	LineItems   []LineItem
	Metadata    OrderMetadata
}

// GatewayInfo carries the per-gateway credentials looked up by the host.
// MetadataJSON holds the bank-specific client settings as a JSON blob.
type GatewayInfo struct {
	AccountNumber string
	PrivateKeyPEM string
	MetadataJSON  string
}

const ibanLength = 26

// Validate checks the order is well formed for registration: at least one
// line item, 26-character IBANs, positive amounts, unique row numbers and a
// recipient name on every row. It performs no I/O.
func (o *PaymentOrder) Validate() error {
	var problems []string

	if o.OrderID == "" {
		problems = append(problems, "order id is required")
	}
	if len(o.LineItems) == 0 {
		problems = append(problems, "order has no line items")
	}

	seen := make(map[int]bool, len(o.LineItems))
	for _, item := range o.LineItems {
		if item.RowNumber <= 0 {
			problems = append(problems, fmt.Sprintf("row %d: row number must be positive", item.RowNumber))
		}
		if seen[item.RowNumber] {
			problems = append(problems, fmt.Sprintf("row %d: duplicate row number", item.RowNumber))
		}
		seen[item.RowNumber] = true

		if item.Amount <= 0 {
			problems = append(problems, fmt.Sprintf("row %d: amount must be positive", item.RowNumber))
		}
		if len(item.DestinationIBAN) != ibanLength {
			problems = append(problems, fmt.Sprintf("row %d: destination IBAN must be %d characters", item.RowNumber, ibanLength))
		}
		if item.RecipientName == "" {
			problems = append(problems, fmt.Sprintf("row %d: recipient name is required", item.RowNumber))
		}
	}

	if len(problems) > 0 {
		return NewValidationError(strings.Join(problems, "; "))
	}
	return nil
}

// Validate checks the gateway credentials required before any bank call.
func (g GatewayInfo) Validate() error {
	var problems []string
	if g.AccountNumber == "" {
		problems = append(problems, "source account number is missing")
	}
	if g.PrivateKeyPEM == "" {
		problems = append(problems, "signing private key is missing")
	}
	if g.MetadataJSON == "" {
		problems = append(problems, "gateway metadata is missing")
	}
	if len(problems) > 0 {
		return NewValidationError(strings.Join(problems, "; "))
	}
	return nil
}

// TotalAmount sums the amounts of all line items.
func (o *PaymentOrder) TotalAmount() int64 {
	var total int64
	for _, item := range o.LineItems {
		total += item.Amount
	}
	return total
}

// RowRange returns the lowest and highest row numbers in the order.
func (o *PaymentOrder) RowRange() (first, last int) {
	if len(o.LineItems) == 0 {
		return 0, 0
	}
	first, last = o.LineItems[0].RowNumber, o.LineItems[0].RowNumber
	for _, item := range o.LineItems[1:] {
		if item.RowNumber < first {
			first = item.RowNumber
		}
		if item.RowNumber > last {
			last = item.RowNumber
		}
	}
	return first, last
}

// FindLineItem returns the line item with the given row number, or nil.
func (o *PaymentOrder) FindLineItem(rowNumber int) *LineItem {
	for i := range o.LineItems {
		if o.LineItems[i].RowNumber == rowNumber {
			return &o.LineItems[i]
		}
	}
	return nil
}

// ErrTrackingIDMissing is returned when an inquiry is attempted on an order
// or line item that has not been registered with the bank yet.
var ErrTrackingIDMissing = errors.New("tracking id is not set; register the order first")
