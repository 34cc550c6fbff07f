package service

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/dto"
	apperrors "storefront/internal/errors"
	"storefront/internal/infrastructure/mysql"
)

type TransactionManager interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (mysql.Tx, error)
}

type OrderRepository interface {
	FindByIDForUpdate(ctx context.Context, tx mysql.DBTX, id uint) (*domain.Order, error)
	UpdatePaymentState(ctx context.Context, tx mysql.DBTX, order *domain.Order) error
}

type PaymentRepository interface {
	FindByOrderID(ctx context.Context, tx mysql.DBTX, orderID uint) (*domain.PaymentRecord, error)
	Upsert(ctx context.Context, tx mysql.DBTX, payment *domain.PaymentRecord) error
}

// OrderPaidNotifier is told once per order, after the transition to paid
// has been committed.
type OrderPaidNotifier interface {
	OrderPaid(ctx context.Context, order domain.Order) error
}

type Reconciler struct {
	db               TransactionManager
	orderRepo        OrderRepository
	paymentRepo      PaymentRepository
	notifier         OrderPaidNotifier
	logger           *zap.Logger
	txTimeout        time.Duration
	maxRetryAttempts int
}

func NewReconciler(
	db TransactionManager,
	orderRepo OrderRepository,
	paymentRepo PaymentRepository,
	notifier OrderPaidNotifier,
	logger *zap.Logger,
	txTimeout time.Duration,
	maxRetryAttempts int,
) *Reconciler {
	if txTimeout <= 0 {
		txTimeout = 5 * time.Second
	}
	return &Reconciler{
		db:               db,
		orderRepo:        orderRepo,
		paymentRepo:      paymentRepo,
		notifier:         notifier,
		logger:           logger,
		txTimeout:        txTimeout,
		maxRetryAttempts: maxRetryAttempts,
	}
}

// Apply reconciles one gateway event against its order. Applying the same
// event twice leaves the same state and notifies at most once.
func (r *Reconciler) Apply(ctx context.Context, event domain.GatewayEvent) (*dto.ReconcileResult, error) {
	logger := r.logger.With(
		zap.String("source", string(event.Source)),
		zap.String("paymentId", event.PaymentID),
		zap.String("status", event.Status),
		zap.String("externalReference", event.ExternalReference),
	)

	orderID, err := parseExternalReference(event.ExternalReference)
	if err != nil {
		logger.Warn("discarding gateway event", zap.Error(err))
		return nil, err
	}

	var (
		order *domain.Order
		prior domain.OrderState
	)
	err = mysql.RetryOnDeadlock(ctx, r.maxRetryAttempts, logger, func(ctx context.Context) error {
		var err error
		order, prior, err = r.applyTx(ctx, orderID, event)
		return err
	})
	if err != nil {
		if _, ok := apperrors.IsNotFoundError(err); ok {
			logger.Warn("gateway event references unknown order", zap.Uint("orderId", orderID))
		} else {
			logger.Error("failed to reconcile gateway event", zap.Uint("orderId", orderID), zap.Error(err))
		}
		return nil, err
	}

	result := &dto.ReconcileResult{
		OrderID:       order.ID,
		PriorState:    prior,
		State:         order.State,
		Transition:    prior != order.State,
		PaymentID:     event.PaymentID,
		GatewayStatus: event.Status,
	}

	if prior != domain.OrderStatePaid && order.State == domain.OrderStatePaid {
		result.Notified = true
		if err := r.notifier.OrderPaid(ctx, *order); err != nil {
			logger.Error("order paid notification failed", zap.Uint("orderId", order.ID), zap.Error(err))
		}
	}

	logger.Info("gateway event reconciled",
		zap.Uint("orderId", order.ID),
		zap.String("priorState", prior.String()),
		zap.String("state", order.State.String()),
		zap.Bool("notified", result.Notified),
	)

	return result, nil
}

func (r *Reconciler) applyTx(ctx context.Context, orderID uint, event domain.GatewayEvent) (*domain.Order, domain.OrderState, error) {
	txCtx, cancel := context.WithTimeout(ctx, r.txTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(txCtx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return nil, "", err
	}
	defer tx.Rollback()

	order, err := r.orderRepo.FindByIDForUpdate(txCtx, tx, orderID)
	if err != nil {
		return nil, "", err
	}
	prior := order.State

	if state, ok := domain.MapGatewayStatus(event.Status); ok {
		order.State = state
	}
	if event.PaymentID != "" {
		order.GatewayPaymentID = stringPtr(event.PaymentID)
	}
	if event.Status != "" {
		order.GatewayStatus = stringPtr(event.Status)
	}
	if event.MerchantOrderID != "" {
		order.GatewayMerchantOrderID = stringPtr(event.MerchantOrderID)
	}

	if err := r.orderRepo.UpdatePaymentState(txCtx, tx, order); err != nil {
		return nil, "", err
	}

	payment, err := r.paymentRepo.FindByOrderID(txCtx, tx, orderID)
	if _, notFound := apperrors.IsNotFoundError(err); notFound {
		payment = domain.NewPaymentRecord(orderID)
	} else if err != nil {
		return nil, "", err
	}

	payment.PaymentID = optionalString(event.PaymentID)
	if status, ok := domain.NormalizePaymentStatus(event.Status); ok {
		payment.Status = status
	}
	if event.PreferenceID != "" {
		payment.PreferenceID = stringPtr(event.PreferenceID)
	}
	payment.RawResponse = event.Raw

	if err := r.paymentRepo.Upsert(txCtx, tx, payment); err != nil {
		return nil, "", err
	}

	if err := tx.Commit(); err != nil {
		return nil, "", fmt.Errorf("committing reconciliation: %w", err)
	}

	return order, prior, nil
}

func parseExternalReference(ref string) (uint, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return 0, apperrors.NewMalformedEventError("event has no external reference")
	}

	id, err := strconv.ParseUint(ref, 10, 0)
	if err != nil || id == 0 {
		return 0, apperrors.NewMalformedEventError(fmt.Sprintf("external reference %q is not an order id", ref))
	}

	return uint(id), nil
}

func stringPtr(s string) *string {
	return &s
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
