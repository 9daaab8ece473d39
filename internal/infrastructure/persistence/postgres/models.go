package postgres

import (
	"time"
)

// OrderModel mirrors the orders table. Metadata is the workflow scratch
// state stored as a JSON document; MetadataVersion is the optimistic-lock
// counter checked on every save.
type OrderModel struct {
	ID              string
	GatewayID       string
	TrackingID      *string
	Status          string
	Description     *string
	Metadata        string
	MetadataVersion int
	NextInquiryAt   *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// LineItemModel mirrors the order_line_items table.
type LineItemModel struct {
	OrderID         string
	RowNumber       int
	DestinationIBAN string
	Amount          int64
	RecipientName   string
	Description     *string
	ReasonCode      int
	Status          string
	ReferenceNumber *string
	ProviderMessage *string
}

// GatewayModel mirrors the gateways table. Metadata holds the bank-specific
// client credentials as a JSON document.
type GatewayModel struct {
	ID            string
	AccountNumber string
	PrivateKeyPEM string
	Metadata      string
	CreatedAt     time.Time
}
