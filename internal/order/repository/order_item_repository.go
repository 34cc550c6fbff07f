package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/infrastructure/mysql"
)

type MySQLOrderItemRepository struct {
	db *sql.DB
}

func NewMySQLOrderItemRepository(db *sql.DB) *MySQLOrderItemRepository {
	return &MySQLOrderItemRepository{db: db}
}

// InsertBatch writes all lines of an order with a single statement.
func (r *MySQLOrderItemRepository) InsertBatch(ctx context.Context, tx mysql.DBTX, orderID uint, items []domain.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	placeholders := make([]string, len(items))
	args := make([]any, 0, len(items)*7)
	for i, item := range items {
		placeholders[i] = "(?, ?, ?, ?, ?, ?, ?)"
		args = append(args, orderID, item.ProductID, item.ProductName, item.Size, item.Quantity, item.UnitPrice, item.Subtotal)
	}

	query := fmt.Sprintf(
		`INSERT INTO OrderItems (orderId, productId, productName, size, quantity, unitPrice, subtotal) VALUES %s`,
		strings.Join(placeholders, ", "),
	)

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting order items: %w", err)
	}

	return nil
}

func (r *MySQLOrderItemRepository) FindByOrderID(ctx context.Context, orderID uint) ([]domain.OrderItem, error) {
	query := `
		SELECT id, orderId, productId, productName, size, quantity, unitPrice, subtotal
		FROM OrderItems
		WHERE orderId = ?
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("querying order items: %w", err)
	}
	defer rows.Close()

	items := []domain.OrderItem{}
	for rows.Next() {
		var item domain.OrderItem
		err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.Size,
			&item.Quantity, &item.UnitPrice, &item.Subtotal,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning order item row: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating order item rows: %w", err)
	}

	return items, nil
}
