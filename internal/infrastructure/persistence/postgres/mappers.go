package postgres

import (
	"github.com/tadbirpay/gardeshgari-withdrawal/internal/domain"
)

// toDomainOrder: maps db models to the domain order
func toDomainOrder(m OrderModel, items []LineItemModel) *domain.PaymentOrder {
	order := &domain.PaymentOrder{
		OrderID:     m.ID,
		GatewayID:   m.GatewayID,
		Status:      domain.OrderStatus(m.Status),
		Description: deref(m.Description),
		Metadata:    domain.MetadataFromJSON(m.Metadata),
	}
	if m.TrackingID != nil {
		order.TrackingID = *m.TrackingID
	}
	order.Metadata.Version = m.MetadataVersion

	order.LineItems = make([]domain.LineItem, 0, len(items))
	for _, it := range items {
		order.LineItems = append(order.LineItems, domain.LineItem{
			RowNumber:       it.RowNumber,
			DestinationIBAN: it.DestinationIBAN,
			Amount:          it.Amount,
			RecipientName:   it.RecipientName,
			Description:     deref(it.Description),
			ReasonCode:      domain.ReasonCode(it.ReasonCode),
			Status:          domain.LineItemStatus(it.Status),
			TrackingID:      order.TrackingID,
			ReferenceNumber: deref(it.ReferenceNumber),
			ProviderMessage: deref(it.ProviderMessage),
		})
	}
	return order
}

// toOrderModel: maps the domain order to its db row
func toOrderModel(o *domain.PaymentOrder) (OrderModel, error) {
	metadataJSON, err := o.Metadata.ToJSON()
	if err != nil {
		return OrderModel{}, err
	}
	m := OrderModel{
		ID:              o.OrderID,
		GatewayID:       o.GatewayID,
		Status:          string(o.Status),
		Description:     ref(o.Description),
		Metadata:        metadataJSON,
		MetadataVersion: o.Metadata.Version,
	}
	if o.TrackingID != "" {
		m.TrackingID = &o.TrackingID
	}
	return m, nil
}

func toLineItemModels(o *domain.PaymentOrder) []LineItemModel {
	items := make([]LineItemModel, 0, len(o.LineItems))
	for _, it := range o.LineItems {
		items = append(items, LineItemModel{
			OrderID:         o.OrderID,
			RowNumber:       it.RowNumber,
			DestinationIBAN: it.DestinationIBAN,
			Amount:          it.Amount,
			RecipientName:   it.RecipientName,
			Description:     ref(it.Description),
			ReasonCode:      int(it.ReasonCode),
			Status:          string(it.Status),
			ReferenceNumber: ref(it.ReferenceNumber),
			ProviderMessage: ref(it.ProviderMessage),
		})
	}
	return items
}

func toDomainGateway(m GatewayModel) domain.GatewayInfo {
	return domain.GatewayInfo{
		AccountNumber: m.AccountNumber,
		PrivateKeyPEM: m.PrivateKeyPEM,
		MetadataJSON:  m.Metadata,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func ref(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
