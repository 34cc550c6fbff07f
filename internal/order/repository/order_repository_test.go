package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/errors"
	"storefront/internal/testutil"
)

// Unit Tests

func TestNewMySQLOrderRepository(t *testing.T) {
	db := &sql.DB{}
	repo := NewMySQLOrderRepository(db)

	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
}

// Integration Tests

func newPendingOrder(customerID uint) *domain.Order {
	order := &domain.Order{
		CustomerID:    customerID,
		State:         domain.OrderStatePending,
		Name:          "Ana Perez",
		Email:         "ana@example.com",
		Phone:         "1155550000",
		Address:       "Av. Corrientes 1234",
		City:          "CABA",
		Region:        "Buenos Aires",
		PostalCode:    "1043",
		ProductsTotal: decimal.RequireFromString("1000.00"),
	}
	order.RecalculateTotals()
	return order
}

func TestOrderRepository_InsertAndFindOwned(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	customerID := testutil.InsertCustomer(t, db, "Ana Perez", "ana@example.com")
	repo := NewMySQLOrderRepository(db)

	id, err := repo.Insert(context.Background(), db, newPendingOrder(customerID))
	require.NoError(t, err)
	require.NotZero(t, id)

	order, err := repo.FindOwned(context.Background(), id, customerID)
	require.NoError(t, err)
	assert.Equal(t, id, order.ID)
	assert.Equal(t, domain.OrderStatePending, order.State)
	assert.Equal(t, "CABA", order.City)
	assert.Equal(t, "", order.Notes)
	assert.True(t, decimal.RequireFromString("1000").Equal(order.FinalTotal))
	assert.Nil(t, order.GatewayPaymentID)
	assert.Nil(t, order.GatewayStatus)
}

func TestOrderRepository_FindOwned_OtherCustomer(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	owner := testutil.InsertCustomer(t, db, "Ana Perez", "ana@example.com")
	other := testutil.InsertCustomer(t, db, "Juan Gomez", "juan@example.com")
	orderID := testutil.InsertOrder(t, db, owner, "pending", "100.00")

	repo := NewMySQLOrderRepository(db)

	order, err := repo.FindOwned(context.Background(), orderID, other)
	assert.Nil(t, order)
	_, ok := errors.IsNotFoundError(err)
	assert.True(t, ok)
}

func TestOrderRepository_FindByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLOrderRepository(db)

	order, err := repo.FindByID(context.Background(), 999999)
	assert.Nil(t, order)
	nfe, ok := errors.IsNotFoundError(err)
	assert.True(t, ok)
	assert.NotNil(t, nfe)
}

func TestOrderRepository_UpdateShipping(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	customerID := testutil.InsertCustomer(t, db, "Ana Perez", "ana@example.com")
	orderID := testutil.InsertOrder(t, db, customerID, "pending", "1000.00")
	repo := NewMySQLOrderRepository(db)

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)

	order, err := repo.FindOwnedForUpdate(context.Background(), tx, orderID, customerID)
	require.NoError(t, err)

	order.ApplyShipping(domain.Shipping{
		Address:    "Calle Falsa 123",
		City:       "Rosario",
		Region:     "Santa Fe",
		PostalCode: "2000",
		Notes:      "leave with the doorman",
	}, decimal.RequireFromString("150.5"))

	require.NoError(t, repo.UpdateShipping(context.Background(), tx, order))
	require.NoError(t, tx.Commit())

	stored, err := repo.FindByID(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, "Rosario", stored.City)
	assert.Equal(t, "leave with the doorman", stored.Notes)
	assert.Equal(t, "150.50", stored.ShippingCost.StringFixed(2))
	assert.Equal(t, "1150.50", stored.FinalTotal.StringFixed(2))
}

func TestOrderRepository_UpdatePaymentState(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	customerID := testutil.InsertCustomer(t, db, "Ana Perez", "ana@example.com")
	orderID := testutil.InsertOrder(t, db, customerID, "pending", "100.00")
	repo := NewMySQLOrderRepository(db)

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)

	order, err := repo.FindByIDForUpdate(context.Background(), tx, orderID)
	require.NoError(t, err)

	paymentID, status, merchantOrder := "123456789", "approved", "987"
	order.State = domain.OrderStatePaid
	order.GatewayPaymentID = &paymentID
	order.GatewayStatus = &status
	order.GatewayMerchantOrderID = &merchantOrder

	require.NoError(t, repo.UpdatePaymentState(context.Background(), tx, order))
	// same values again leaves the row unchanged, which is not an error
	require.NoError(t, repo.UpdatePaymentState(context.Background(), tx, order))
	require.NoError(t, tx.Commit())

	stored, err := repo.FindByID(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatePaid, stored.State)
	require.NotNil(t, stored.GatewayPaymentID)
	assert.Equal(t, "123456789", *stored.GatewayPaymentID)
	require.NotNil(t, stored.GatewayMerchantOrderID)
	assert.Equal(t, "987", *stored.GatewayMerchantOrderID)
}

func TestOrderRepository_ListByCustomerAndState(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	customerID := testutil.InsertCustomer(t, db, "Ana Perez", "ana@example.com")
	other := testutil.InsertCustomer(t, db, "Juan Gomez", "juan@example.com")

	first := testutil.InsertOrder(t, db, customerID, "paid", "100.00")
	testutil.InsertOrder(t, db, customerID, "pending", "200.00")
	second := testutil.InsertOrder(t, db, customerID, "paid", "300.00")
	testutil.InsertOrder(t, db, other, "paid", "400.00")

	repo := NewMySQLOrderRepository(db)

	orders, err := repo.ListByCustomerAndState(context.Background(), customerID, domain.OrderStatePaid)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	// newest first; equal timestamps fall back to id
	assert.Equal(t, second, orders[0].ID)
	assert.Equal(t, first, orders[1].ID)

	none, err := repo.ListByCustomerAndState(context.Background(), customerID, domain.OrderStateShipped)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestOrderRepository_TransactionRollback(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	customerID := testutil.InsertCustomer(t, db, "Ana Perez", "ana@example.com")
	repo := NewMySQLOrderRepository(db)

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)

	id, err := repo.Insert(context.Background(), tx, newPendingOrder(customerID))
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	_, err = repo.FindByID(context.Background(), id)
	_, ok := errors.IsNotFoundError(err)
	assert.True(t, ok)
}

func TestOrderRepository_FindByIDForUpdate_AcquiresLock(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	customerID := testutil.InsertCustomer(t, db, "Ana Perez", "ana@example.com")
	orderID := testutil.InsertOrder(t, db, customerID, "pending", "100.00")
	repo := NewMySQLOrderRepository(db)

	tx1, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)

	_, err = repo.FindByIDForUpdate(context.Background(), tx1, orderID)
	require.NoError(t, err)

	tx2, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)

	locked := make(chan *domain.Order, 1)
	go func() {
		order, err := repo.FindByIDForUpdate(context.Background(), tx2, orderID)
		if err != nil {
			locked <- nil
			return
		}
		locked <- order
	}()

	select {
	case <-locked:
		t.Fatal("second transaction acquired the row lock while the first held it")
	case <-time.After(200 * time.Millisecond):
	}

	require.NoError(t, tx1.Rollback())

	order := <-locked
	require.NotNil(t, order)
	assert.Equal(t, orderID, order.ID)
	require.NoError(t, tx2.Commit())
}
