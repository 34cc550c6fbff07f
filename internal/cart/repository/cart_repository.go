package repository

import (
	"context"
	"database/sql"
	"fmt"

	"storefront/internal/domain"
	"storefront/internal/infrastructure/mysql"
)

type MySQLCartRepository struct {
	db *sql.DB
}

func NewMySQLCartRepository(db *sql.DB) *MySQLCartRepository {
	return &MySQLCartRepository{db: db}
}

// FindLinesForUpdate locks the customer's cart lines until tx ends. Product
// data is not joined here; callers price lines from the catalog.
func (r *MySQLCartRepository) FindLinesForUpdate(ctx context.Context, tx mysql.DBTX, customerID uint) ([]domain.CartLine, error) {
	query := `
		SELECT id, customerId, productId, size, quantity
		FROM CartItems
		WHERE customerId = ?
		ORDER BY productId, id
		FOR UPDATE
	`

	rows, err := tx.QueryContext(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("querying cart lines: %w", err)
	}
	defer rows.Close()

	var lines []domain.CartLine
	for rows.Next() {
		var line domain.CartLine
		if err := rows.Scan(&line.ID, &line.CustomerID, &line.ProductID, &line.Size, &line.Quantity); err != nil {
			return nil, fmt.Errorf("scanning cart line row: %w", err)
		}
		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating cart line rows: %w", err)
	}

	return lines, nil
}

func (r *MySQLCartRepository) DeleteByCustomer(ctx context.Context, tx mysql.DBTX, customerID uint) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM CartItems WHERE customerId = ?`, customerID); err != nil {
		return fmt.Errorf("clearing cart: %w", err)
	}
	return nil
}
