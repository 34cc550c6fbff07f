package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderState string

const (
	OrderStatePending   OrderState = "pending"
	OrderStatePaid      OrderState = "paid"
	OrderStateCancelled OrderState = "cancelled"
	OrderStateShipped   OrderState = "shipped"
)

func (s OrderState) String() string {
	return string(s)
}

// Order snapshots the customer's contact and shipping data at creation time,
// so later profile edits never alter a placed order.
type Order struct {
	ID         uint
	CustomerID uint
	State      OrderState

	Name  string
	Email string
	Phone string

	Address    string
	City       string
	Region     string
	PostalCode string
	Notes      string

	ProductsTotal decimal.Decimal
	ShippingCost  decimal.Decimal
	FinalTotal    decimal.Decimal

	GatewayPaymentID       *string
	GatewayStatus          *string
	GatewayMerchantOrderID *string

	Items     []OrderItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (o *Order) IsPaid() bool {
	return o.State == OrderStatePaid
}

// MaxAmount is the largest value the DECIMAL(10,2) money columns hold.
var MaxAmount = decimal.RequireFromString("99999999.99")

// RecalculateTotals is the only place FinalTotal is assigned.
func (o *Order) RecalculateTotals() {
	o.FinalTotal = o.ProductsTotal.Add(o.ShippingCost).Round(2)
}

// ApplyShipping overwrites the shipping fields and cost and recomputes the totals.
func (o *Order) ApplyShipping(shipping Shipping, cost decimal.Decimal) {
	o.Address = shipping.Address
	o.City = shipping.City
	o.Region = shipping.Region
	o.PostalCode = shipping.PostalCode
	o.Notes = shipping.Notes
	o.ShippingCost = cost.Round(2)
	o.RecalculateTotals()
}

type OrderItem struct {
	ID          uint
	OrderID     uint
	ProductID   int
	ProductName string
	Size        *string
	Quantity    int
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
}

// NewOrderItem freezes a cart line's product data into an order line.
func NewOrderItem(line CartLine) OrderItem {
	return OrderItem{
		ProductID:   line.ProductID,
		ProductName: line.ProductName,
		Size:        line.Size,
		Quantity:    line.Quantity,
		UnitPrice:   line.UnitPrice,
		Subtotal:    line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2),
	}
}

// Shipping groups the address fields captured on an order.
type Shipping struct {
	Address    string
	City       string
	Region     string
	PostalCode string
	Notes      string
}
