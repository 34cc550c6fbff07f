package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNewOrderItem_FreezesCartLine(t *testing.T) {
	size := "M"
	line := CartLine{
		ProductID:   5,
		ProductName: "Hoodie",
		Size:        &size,
		Quantity:    2,
		UnitPrice:   decimal.RequireFromString("500.00"),
	}

	item := NewOrderItem(line)

	assert.Equal(t, 5, item.ProductID)
	assert.Equal(t, "Hoodie", item.ProductName)
	assert.Equal(t, "M", *item.Size)
	assert.Equal(t, 2, item.Quantity)
	assert.Equal(t, "500.00", item.UnitPrice.StringFixed(2))
	assert.Equal(t, "1000.00", item.Subtotal.StringFixed(2))

	line.UnitPrice = decimal.RequireFromString("900.00")
	assert.Equal(t, "500.00", item.UnitPrice.StringFixed(2))
}

func TestNewOrderItem_WithoutSize(t *testing.T) {
	item := NewOrderItem(CartLine{
		ProductID:   9,
		ProductName: "Cap",
		Quantity:    3,
		UnitPrice:   decimal.RequireFromString("19.99"),
	})

	assert.Nil(t, item.Size)
	assert.Equal(t, "59.97", item.Subtotal.StringFixed(2))
}

func TestNewPaymentRecord_Defaults(t *testing.T) {
	record := NewPaymentRecord(42)

	assert.Equal(t, uint(42), record.OrderID)
	assert.Equal(t, PaymentProviderMercadoPago, record.Provider)
	assert.Equal(t, PaymentStatusPending, record.Status)
	assert.Nil(t, record.PaymentID)
	assert.Nil(t, record.PreferenceID)
}
