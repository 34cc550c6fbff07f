package domain

import (
	"encoding/json"
	"time"
)

const PaymentProviderMercadoPago = "MERCADO_PAGO"

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusApproved  PaymentStatus = "approved"
	PaymentStatusRejected  PaymentStatus = "rejected"
	PaymentStatusInProcess PaymentStatus = "in_process"
)

// PaymentRecord is the one-to-one gateway bookkeeping row of an order.
// RawResponse keeps the last payload received from either channel and is
// never used for decisions.
type PaymentRecord struct {
	ID           uint
	OrderID      uint
	Provider     string
	PreferenceID *string
	PaymentID    *string
	Status       PaymentStatus
	RawResponse  json.RawMessage
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func NewPaymentRecord(orderID uint) *PaymentRecord {
	return &PaymentRecord{
		OrderID:  orderID,
		Provider: PaymentProviderMercadoPago,
		Status:   PaymentStatusPending,
	}
}
