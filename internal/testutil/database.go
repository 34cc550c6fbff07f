package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"

	"storefront/internal/infrastructure/mysql"
)

// SetupTestDB starts a disposable MySQL container and applies the schema
// migrations. The test is skipped when Docker is not available.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcmysql.Run(ctx,
		"mysql:8.0.36",
		tcmysql.WithDatabase("storefront_test"),
		tcmysql.WithUsername("storefront"),
		tcmysql.WithPassword("secret"),
	)
	if err != nil {
		t.Skipf("test database not available: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "parseTime=true", "multiStatements=true")
	if err != nil {
		t.Fatalf("failed to build connection string: %v", err)
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("failed to ping test database: %v", err)
	}

	if err := mysql.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

// CleanupTestDB empties every table, children first.
func CleanupTestDB(t *testing.T, db *sql.DB) {
	if db == nil {
		return
	}

	tables := []string{"Payments", "OrderItems", "Orders", "CartItems", "Product", "Customers"}
	for _, table := range tables {
		_, err := db.Exec(fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}
}

// InsertCustomer creates a customer with a full default address.
func InsertCustomer(t *testing.T, db *sql.DB, name, email string) uint {
	t.Helper()
	result, err := db.Exec(`
		INSERT INTO Customers (name, email, phone, address, city, region, postalCode)
		VALUES (?, ?, '1155550000', 'Av. Corrientes 1234', 'CABA', 'Buenos Aires', '1043')
	`, name, email)
	if err != nil {
		t.Fatalf("failed to insert customer: %v", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		t.Fatalf("failed to read customer id: %v", err)
	}
	return uint(id)
}

func InsertProduct(t *testing.T, db *sql.DB, name, price string) int {
	t.Helper()
	result, err := db.Exec(`
		INSERT INTO Product (name, description, price, stock, category)
		VALUES (?, '', ?, 10, 'tees')
	`, name, price)
	if err != nil {
		t.Fatalf("failed to insert product: %v", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		t.Fatalf("failed to read product id: %v", err)
	}
	return int(id)
}

func InsertCartLine(t *testing.T, db *sql.DB, customerID uint, productID int, size *string, quantity int) {
	t.Helper()
	_, err := db.Exec(`
		INSERT INTO CartItems (customerId, productId, size, quantity)
		VALUES (?, ?, ?, ?)
	`, customerID, productID, size, quantity)
	if err != nil {
		t.Fatalf("failed to insert cart line: %v", err)
	}
}

// InsertOrder creates an order with the given state and products total and
// no shipping cost.
func InsertOrder(t *testing.T, db *sql.DB, customerID uint, state, total string) uint {
	t.Helper()
	result, err := db.Exec(`
		INSERT INTO Orders (customerId, state, name, email, address, city, region, postalCode,
		                    productsTotal, shippingCost, finalTotal)
		VALUES (?, ?, 'Ana Perez', 'ana@example.com', 'Av. Corrientes 1234', 'CABA', 'Buenos Aires', '1043', ?, 0, ?)
	`, customerID, state, total, total)
	if err != nil {
		t.Fatalf("failed to insert order: %v", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		t.Fatalf("failed to read order id: %v", err)
	}
	return uint(id)
}
