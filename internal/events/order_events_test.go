package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storefront/internal/domain"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func paidOrder() domain.Order {
	paymentID := "123456"
	status := "approved"
	return domain.Order{
		ID:               17,
		CustomerID:       42,
		State:            domain.OrderStatePaid,
		Email:            "ana@example.com",
		FinalTotal:       decimal.RequireFromString("1150.5"),
		GatewayPaymentID: &paymentID,
		GatewayStatus:    &status,
	}
}

func TestOrderPaid_WritesKeyedEvent(t *testing.T) {
	writer := &fakeWriter{}
	publisher := NewOrderEventPublisher(writer, zap.NewNop())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	publisher.now = func() time.Time { return now }

	err := publisher.OrderPaid(context.Background(), paidOrder())

	require.NoError(t, err)
	require.Len(t, writer.messages, 1)
	msg := writer.messages[0]
	assert.Equal(t, "17", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "order.paid", string(msg.Headers[0].Value))

	var event OrderPaidEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, OrderPaidEventType, event.EventType)
	assert.Equal(t, uint(17), event.OrderID)
	assert.Equal(t, uint(42), event.CustomerID)
	assert.Equal(t, "1150.50", event.FinalTotal)
	assert.Equal(t, "123456", event.PaymentID)
	assert.True(t, now.Equal(event.OccurredAt))
}

func TestOrderPaid_WriterError(t *testing.T) {
	writer := &fakeWriter{err: errors.New("broker unreachable")}
	publisher := NewOrderEventPublisher(writer, zap.NewNop())

	err := publisher.OrderPaid(context.Background(), paidOrder())

	assert.ErrorContains(t, err, "broker unreachable")
}

func TestClose_ClosesWriter(t *testing.T) {
	writer := &fakeWriter{}
	publisher := NewOrderEventPublisher(writer, zap.NewNop())

	require.NoError(t, publisher.Close())
	assert.True(t, writer.closed)
}

func TestNewKafkaWriter(t *testing.T) {
	w := NewKafkaWriter([]string{"localhost:9092"}, "orders")
	defer w.Close()

	assert.Equal(t, "orders", w.Topic)
	assert.Equal(t, "localhost:9092", w.Addr.String())
}
