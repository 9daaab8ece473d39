package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tadbirpay/gardeshgari-withdrawal/internal/domain"
)

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrVersionConflict = errors.New("order was modified by another poller")
)

type OrderRepository struct {
	db *pgxpool.Pool
}

func NewOrderRepository(db *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `
	id, gateway_id, tracking_id, status, description,
	metadata, metadata_version, next_inquiry_at, created_at, updated_at
`

const lineItemColumns = `
	order_id, row_number, destination_iban, amount, recipient_name,
	description, reason_code, status, reference_number, provider_message
`

func (r *OrderRepository) Create(ctx context.Context, order *domain.PaymentOrder) error {
	m, err := toOrderModel(order)
	if err != nil {
		return fmt.Errorf("encode order metadata: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create order: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (
			id, gateway_id, tracking_id, status, description,
			metadata, metadata_version, next_inquiry_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NULL)
	`,
		m.ID, m.GatewayID, m.TrackingID, m.Status, m.Description,
		m.Metadata, m.MetadataVersion,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, it := range toLineItemModels(order) {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_line_items (`+lineItemColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`,
			it.OrderID, it.RowNumber, it.DestinationIBAN, it.Amount, it.RecipientName,
			it.Description, it.ReasonCode, it.Status, it.ReferenceNumber, it.ProviderMessage,
		)
		if err != nil {
			return fmt.Errorf("insert line item %d: %w", it.RowNumber, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create order: %w", err)
	}
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.PaymentOrder, error) {
	row := r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)

	var m OrderModel
	err := row.Scan(
		&m.ID, &m.GatewayID, &m.TrackingID, &m.Status, &m.Description,
		&m.Metadata, &m.MetadataVersion, &m.NextInquiryAt, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}

	items, err := r.findLineItems(ctx, id)
	if err != nil {
		return nil, err
	}
	return toDomainOrder(m, items), nil
}

func (r *OrderRepository) findLineItems(ctx context.Context, orderID string) ([]LineItemModel, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+lineItemColumns+`
		FROM order_line_items
		WHERE order_id = $1
		ORDER BY row_number
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query line items: %w", err)
	}

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (LineItemModel, error) {
		var it LineItemModel
		err := row.Scan(
			&it.OrderID, &it.RowNumber, &it.DestinationIBAN, &it.Amount, &it.RecipientName,
			&it.Description, &it.ReasonCode, &it.Status, &it.ReferenceNumber, &it.ProviderMessage,
		)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan line items: %w", err)
	}
	return items, nil
}

// Save persists the order and its line items with an optimistic version
// check. The order's metadata version must equal the stored one; the write
// bumps it by one. ErrVersionConflict means another poller advanced the
// order first and this copy must be re-read, never force-written.
func (r *OrderRepository) Save(ctx context.Context, order *domain.PaymentOrder, nextInquiryAt *time.Time) error {
	expectedVersion := order.Metadata.Version
	order.Metadata.Version = expectedVersion + 1

	m, err := toOrderModel(order)
	if err != nil {
		order.Metadata.Version = expectedVersion
		return fmt.Errorf("encode order metadata: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		order.Metadata.Version = expectedVersion
		return fmt.Errorf("begin save order: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE orders
		SET tracking_id = $1,
			status = $2,
			metadata = $3,
			metadata_version = $4,
			next_inquiry_at = $5,
			updated_at = now()
		WHERE id = $6 AND metadata_version = $7
	`,
		m.TrackingID, m.Status, m.Metadata, m.MetadataVersion,
		nextInquiryAt, m.ID, expectedVersion,
	)
	if err != nil {
		order.Metadata.Version = expectedVersion
		return fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		order.Metadata.Version = expectedVersion
		return ErrVersionConflict
	}

	for _, it := range toLineItemModels(order) {
		_, err = tx.Exec(ctx, `
			UPDATE order_line_items
			SET status = $1,
				reference_number = $2,
				provider_message = $3
			WHERE order_id = $4 AND row_number = $5
		`,
			it.Status, it.ReferenceNumber, it.ProviderMessage,
			it.OrderID, it.RowNumber,
		)
		if err != nil {
			order.Metadata.Version = expectedVersion
			return fmt.Errorf("update line item %d: %w", it.RowNumber, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		order.Metadata.Version = expectedVersion
		return fmt.Errorf("commit save order: %w", err)
	}
	return nil
}

// FindDue returns registered, non-terminal orders whose next inquiry time
// has passed, oldest first. The poller drains these in batches.
func (r *OrderRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]*domain.PaymentOrder, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE status = $1
		  AND tracking_id IS NOT NULL
		  AND (next_inquiry_at IS NULL OR next_inquiry_at <= $2)
		ORDER BY COALESCE(next_inquiry_at, created_at) ASC
		LIMIT $3
	`, string(domain.StatusSubmittedToBank), now, limit)
	if err != nil {
		return nil, fmt.Errorf("query due orders: %w", err)
	}

	models, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (OrderModel, error) {
		var m OrderModel
		err := row.Scan(
			&m.ID, &m.GatewayID, &m.TrackingID, &m.Status, &m.Description,
			&m.Metadata, &m.MetadataVersion, &m.NextInquiryAt, &m.CreatedAt, &m.UpdatedAt,
		)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan due orders: %w", err)
	}

	orders := make([]*domain.PaymentOrder, 0, len(models))
	for _, m := range models {
		items, err := r.findLineItems(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		orders = append(orders, toDomainOrder(m, items))
	}
	return orders, nil
}
