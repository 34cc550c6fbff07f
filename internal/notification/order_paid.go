package notification

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/infrastructure/mailer"
)

type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) error
}

type EventPublisher interface {
	OrderPaid(ctx context.Context, order domain.Order) error
}

// OrderPaidNotifier tells the buyer and downstream consumers that an order
// was paid. Each channel is attempted even when another fails.
type OrderPaidNotifier struct {
	mailer    Mailer
	publisher EventPublisher
	logger    *zap.Logger
}

// NewOrderPaidNotifier accepts a nil mailer or publisher for channels that
// are not configured.
func NewOrderPaidNotifier(m Mailer, publisher EventPublisher, logger *zap.Logger) *OrderPaidNotifier {
	return &OrderPaidNotifier{
		mailer:    m,
		publisher: publisher,
		logger:    logger,
	}
}

func (n *OrderPaidNotifier) OrderPaid(ctx context.Context, order domain.Order) error {
	var errs []error

	if order.Email == "" {
		n.logger.Warn("order has no email, skipping confirmation", zap.Uint("orderId", order.ID))
	} else if n.mailer == nil {
		n.logger.Debug("mail not configured, skipping confirmation", zap.Uint("orderId", order.ID))
	} else if err := n.mailer.Send(ctx, ConfirmationEmail(order)); err != nil {
		n.logger.Warn("confirmation email failed", zap.Uint("orderId", order.ID), zap.Error(err))
		errs = append(errs, err)
	}

	if n.publisher != nil {
		if err := n.publisher.OrderPaid(ctx, order); err != nil {
			n.logger.Warn("order paid event failed", zap.Uint("orderId", order.ID), zap.Error(err))
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func ConfirmationEmail(order domain.Order) mailer.Message {
	name := order.Name
	if name == "" {
		name = "there"
	}
	return mailer.Message{
		To:      order.Email,
		Subject: fmt.Sprintf("Order #%d confirmed", order.ID),
		Body: fmt.Sprintf(
			"Hi %s,\n\nWe received the payment for order #%d.\nTotal: $%s\n\nThanks for your purchase.\n",
			name, order.ID, order.FinalTotal.StringFixed(2),
		),
	}
}
