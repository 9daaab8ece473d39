package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tadbirpay/gardeshgari-withdrawal/internal/domain"
)

var ErrGatewayNotFound = errors.New("gateway not found")

type GatewayRepository struct {
	db *pgxpool.Pool
}

func NewGatewayRepository(db *pgxpool.Pool) *GatewayRepository {
	return &GatewayRepository{db: db}
}

func (r *GatewayRepository) FindByID(ctx context.Context, id string) (domain.GatewayInfo, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, account_number, private_key_pem, metadata, created_at
		FROM gateways WHERE id = $1
	`, id)

	var m GatewayModel
	err := row.Scan(&m.ID, &m.AccountNumber, &m.PrivateKeyPEM, &m.Metadata, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.GatewayInfo{}, ErrGatewayNotFound
		}
		return domain.GatewayInfo{}, fmt.Errorf("scan gateway: %w", err)
	}
	return toDomainGateway(m), nil
}

func (r *GatewayRepository) Create(ctx context.Context, id string, gw domain.GatewayInfo) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO gateways (id, account_number, private_key_pem, metadata)
		VALUES ($1, $2, $3, $4)
	`, id, gw.AccountNumber, gw.PrivateKeyPEM, gw.MetadataJSON)
	if err != nil {
		return fmt.Errorf("insert gateway: %w", err)
	}
	return nil
}
