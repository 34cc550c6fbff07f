package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"storefront/internal/domain"
)

const OrderPaidEventType = "order.paid"

type OrderPaidEvent struct {
	EventType     string    `json:"eventType"`
	OrderID       uint      `json:"orderId"`
	CustomerID    uint      `json:"customerId"`
	Email         string    `json:"email"`
	FinalTotal    string    `json:"finalTotal"`
	PaymentID     string    `json:"paymentId,omitempty"`
	GatewayStatus string    `json:"gatewayStatus,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}

func NewOrderPaidEvent(order domain.Order, now time.Time) OrderPaidEvent {
	event := OrderPaidEvent{
		EventType:  OrderPaidEventType,
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		Email:      order.Email,
		FinalTotal: order.FinalTotal.StringFixed(2),
		OccurredAt: now.UTC(),
	}
	if order.GatewayPaymentID != nil {
		event.PaymentID = *order.GatewayPaymentID
	}
	if order.GatewayStatus != nil {
		event.GatewayStatus = *order.GatewayStatus
	}
	return event
}

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type OrderEventPublisher struct {
	writer  MessageWriter
	logger  *zap.Logger
	timeout time.Duration
	now     func() time.Time
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
}

func NewOrderEventPublisher(writer MessageWriter, logger *zap.Logger) *OrderEventPublisher {
	return &OrderEventPublisher{
		writer:  writer,
		logger:  logger,
		timeout: 10 * time.Second,
		now:     time.Now,
	}
}

// OrderPaid publishes an order.paid event keyed by order id, so every event
// of one order lands on the same partition.
func (p *OrderEventPublisher) OrderPaid(ctx context.Context, order domain.Order) error {
	payload, err := json.Marshal(NewOrderPaidEvent(order, p.now()))
	if err != nil {
		return fmt.Errorf("marshal order paid event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(order.ID), 10)),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(OrderPaidEventType)},
		},
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish order paid event: %w", err)
	}

	p.logger.Info("order paid event published", zap.Uint("orderId", order.ID))
	return nil
}

func (p *OrderEventPublisher) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
