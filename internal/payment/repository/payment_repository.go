package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/domain"
	apperrors "storefront/internal/errors"
	"storefront/internal/infrastructure/mysql"
)

type MySQLPaymentRepository struct {
	db *sql.DB
}

func NewMySQLPaymentRepository(db *sql.DB) *MySQLPaymentRepository {
	return &MySQLPaymentRepository{db: db}
}

// FindByOrderID reads the payment record inside tx. Callers hold the order
// row lock, which serializes every writer of the record.
func (r *MySQLPaymentRepository) FindByOrderID(ctx context.Context, tx mysql.DBTX, orderID uint) (*domain.PaymentRecord, error) {
	query := `
		SELECT id, orderId, provider, preferenceId, paymentId, status, rawResponse, createdAt, updatedAt
		FROM Payments
		WHERE orderId = ?
	`

	var p domain.PaymentRecord
	var status string
	var raw []byte
	err := tx.QueryRowContext(ctx, query, orderID).Scan(
		&p.ID, &p.OrderID, &p.Provider, &p.PreferenceID, &p.PaymentID, &status, &raw, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("payment for order %d not found", orderID))
	}
	if err != nil {
		return nil, fmt.Errorf("querying payment by order id: %w", err)
	}

	p.Status = domain.PaymentStatus(status)
	if len(raw) > 0 {
		p.RawResponse = raw
	}

	return &p, nil
}

// Upsert writes the full record, relying on the unique orderId key.
func (r *MySQLPaymentRepository) Upsert(ctx context.Context, tx mysql.DBTX, p *domain.PaymentRecord) error {
	query := `
		INSERT INTO Payments (orderId, provider, preferenceId, paymentId, status, rawResponse)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			provider = VALUES(provider),
			preferenceId = VALUES(preferenceId),
			paymentId = VALUES(paymentId),
			status = VALUES(status),
			rawResponse = VALUES(rawResponse)
	`

	var raw any
	if len(p.RawResponse) > 0 {
		raw = string(p.RawResponse)
	}

	_, err := tx.ExecContext(ctx, query,
		p.OrderID, p.Provider, p.PreferenceID, p.PaymentID, string(p.Status), raw,
	)
	if err != nil {
		return fmt.Errorf("upserting payment for order %d: %w", p.OrderID, err)
	}

	return nil
}
