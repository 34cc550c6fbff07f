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

const orderColumns = `
	id, customerId, state, name, email, phone,
	address, city, region, postalCode, COALESCE(notes, ''),
	productsTotal, shippingCost, finalTotal,
	gatewayPaymentId, gatewayStatus, gatewayMerchantOrderId,
	createdAt, updatedAt`

type rowScanner interface {
	Scan(dest ...any) error
}

type MySQLOrderRepository struct {
	db *sql.DB
}

func NewMySQLOrderRepository(db *sql.DB) *MySQLOrderRepository {
	return &MySQLOrderRepository{db: db}
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var order domain.Order
	var state string
	err := row.Scan(
		&order.ID, &order.CustomerID, &state, &order.Name, &order.Email, &order.Phone,
		&order.Address, &order.City, &order.Region, &order.PostalCode, &order.Notes,
		&order.ProductsTotal, &order.ShippingCost, &order.FinalTotal,
		&order.GatewayPaymentID, &order.GatewayStatus, &order.GatewayMerchantOrderID,
		&order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	order.State = domain.OrderState(state)
	return &order, nil
}

func (r *MySQLOrderRepository) Insert(ctx context.Context, tx mysql.DBTX, order *domain.Order) (uint, error) {
	query := `
		INSERT INTO Orders (customerId, state, name, email, phone,
		                    address, city, region, postalCode, notes,
		                    productsTotal, shippingCost, finalTotal)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := tx.ExecContext(ctx, query,
		order.CustomerID, string(order.State), order.Name, order.Email, order.Phone,
		order.Address, order.City, order.Region, order.PostalCode, order.Notes,
		order.ProductsTotal, order.ShippingCost, order.FinalTotal,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting order: %w", err)
	}

	lastInsertID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}

	return uint(lastInsertID), nil
}

func (r *MySQLOrderRepository) FindByID(ctx context.Context, id uint) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM Orders WHERE id = ?`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("order with id %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying order by id: %w", err)
	}

	return order, nil
}

// FindByIDForUpdate locks the order row until tx ends.
func (r *MySQLOrderRepository) FindByIDForUpdate(ctx context.Context, tx mysql.DBTX, id uint) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM Orders WHERE id = ? FOR UPDATE`

	order, err := scanOrder(tx.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("order with id %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("locking order by id: %w", err)
	}

	return order, nil
}

// FindOwnedForUpdate locks the order row only when it belongs to customerID.
func (r *MySQLOrderRepository) FindOwnedForUpdate(ctx context.Context, tx mysql.DBTX, id uint, customerID uint) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM Orders WHERE id = ? AND customerId = ? FOR UPDATE`

	order, err := scanOrder(tx.QueryRowContext(ctx, query, id, customerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("order with id %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("locking order by id and customer: %w", err)
	}

	return order, nil
}

func (r *MySQLOrderRepository) FindOwned(ctx context.Context, id uint, customerID uint) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM Orders WHERE id = ? AND customerId = ?`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id, customerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("order with id %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying order by id and customer: %w", err)
	}

	return order, nil
}

func (r *MySQLOrderRepository) ListByCustomerAndState(ctx context.Context, customerID uint, state domain.OrderState) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM Orders
		WHERE customerId = ? AND state = ?
		ORDER BY createdAt DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, customerID, string(state))
	if err != nil {
		return nil, fmt.Errorf("querying orders by customer: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning order row: %w", err)
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating order rows: %w", err)
	}

	return orders, nil
}

func (r *MySQLOrderRepository) UpdateShipping(ctx context.Context, tx mysql.DBTX, order *domain.Order) error {
	query := `
		UPDATE Orders
		SET address = ?, city = ?, region = ?, postalCode = ?, notes = ?,
		    shippingCost = ?, finalTotal = ?
		WHERE id = ?
	`

	_, err := tx.ExecContext(ctx, query,
		order.Address, order.City, order.Region, order.PostalCode, order.Notes,
		order.ShippingCost, order.FinalTotal, order.ID,
	)
	if err != nil {
		return fmt.Errorf("updating order shipping: %w", err)
	}

	return nil
}

// UpdatePaymentState persists the state and gateway correlation fields.
// The caller holds the row lock; an unchanged row is not an error.
func (r *MySQLOrderRepository) UpdatePaymentState(ctx context.Context, tx mysql.DBTX, order *domain.Order) error {
	query := `
		UPDATE Orders
		SET state = ?, gatewayPaymentId = ?, gatewayStatus = ?, gatewayMerchantOrderId = ?
		WHERE id = ?
	`

	_, err := tx.ExecContext(ctx, query,
		string(order.State), order.GatewayPaymentID, order.GatewayStatus, order.GatewayMerchantOrderID, order.ID,
	)
	if err != nil {
		return fmt.Errorf("updating order payment state: %w", err)
	}

	return nil
}
