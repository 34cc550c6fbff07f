package domain

import "github.com/shopspring/decimal"

// CartLine is a cart row joined with the product it references.
type CartLine struct {
	ID          uint
	CustomerID  uint
	ProductID   int
	Size        *string
	Quantity    int
	ProductName string
	UnitPrice   decimal.Decimal
}
