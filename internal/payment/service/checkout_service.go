package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/dto"
	apperrors "storefront/internal/errors"
	"storefront/internal/infrastructure/cache"
	"storefront/internal/infrastructure/mercadopago"
	"storefront/internal/infrastructure/mysql"
)

type OrderReader interface {
	FindOwned(ctx context.Context, id uint, customerID uint) (*domain.Order, error)
}

type OrderItemReader interface {
	FindByOrderID(ctx context.Context, orderID uint) ([]domain.OrderItem, error)
}

type PreferenceGateway interface {
	CreatePreference(ctx context.Context, req mercadopago.PreferenceRequest) (*mercadopago.Preference, error)
}

type PreferenceCache interface {
	Get(ctx context.Context, orderID uint, total decimal.Decimal) (*dto.CheckoutSession, error)
	Set(ctx context.Context, orderID uint, total decimal.Decimal, session *dto.CheckoutSession) error
}

type CheckoutOptions struct {
	Currency         string
	FrontendOrigin   string
	NotificationURL  string
	TxTimeout        time.Duration
	MaxRetryAttempts int
}

type CheckoutService struct {
	db            TransactionManager
	orderReader   OrderReader
	orderLocker   OrderRepository
	orderItemRepo OrderItemReader
	paymentRepo   PaymentRepository
	gateway       PreferenceGateway
	cache         PreferenceCache
	logger        *zap.Logger
	opts          CheckoutOptions
}

// NewCheckoutService builds the service; sessionCache may be nil.
func NewCheckoutService(
	db TransactionManager,
	orderReader OrderReader,
	orderLocker OrderRepository,
	orderItemRepo OrderItemReader,
	paymentRepo PaymentRepository,
	gateway PreferenceGateway,
	sessionCache PreferenceCache,
	logger *zap.Logger,
	opts CheckoutOptions,
) *CheckoutService {
	if opts.Currency == "" {
		opts.Currency = "ARS"
	}
	if opts.TxTimeout <= 0 {
		opts.TxTimeout = 5 * time.Second
	}
	return &CheckoutService{
		db:            db,
		orderReader:   orderReader,
		orderLocker:   orderLocker,
		orderItemRepo: orderItemRepo,
		paymentRepo:   paymentRepo,
		gateway:       gateway,
		cache:         sessionCache,
		logger:        logger,
		opts:          opts,
	}
}

// CreatePreference opens a gateway checkout session for an unpaid order.
func (s *CheckoutService) CreatePreference(ctx context.Context, customerID uint, orderID uint) (*dto.CheckoutSession, error) {
	logger := s.logger.With(zap.Uint("orderId", orderID), zap.Uint("customerId", customerID))

	order, err := s.orderReader.FindOwned(ctx, orderID, customerID)
	if err != nil {
		return nil, err
	}
	if order.IsPaid() {
		return nil, apperrors.NewConflictError(fmt.Sprintf("order %d is already paid", orderID))
	}

	items, err := s.orderItemRepo.FindByOrderID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperrors.NewValidationError("order has no items", apperrors.ValidationDetail{
			Field:   "items",
			Message: "order must contain at least one item",
		})
	}
	order.Items = items

	if session := s.cached(ctx, logger, order); session != nil {
		logger.Info("checkout session served from cache", zap.String("preferenceId", session.PreferenceID))
		return session, nil
	}

	pref, err := s.gateway.CreatePreference(ctx, s.buildPreference(order))
	if err != nil {
		logger.Error("gateway rejected preference", zap.Error(err))
		return nil, apperrors.NewUpstreamError("failed to create checkout preference", err)
	}

	err = mysql.RetryOnDeadlock(ctx, s.opts.MaxRetryAttempts, logger, func(ctx context.Context) error {
		return s.storePreferenceTx(ctx, order.ID, pref.ID)
	})
	if err != nil {
		return nil, err
	}

	session := &dto.CheckoutSession{
		PreferenceID:     pref.ID,
		InitPoint:        pref.InitPoint,
		SandboxInitPoint: pref.SandboxInitPoint,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, order.ID, order.FinalTotal, session); err != nil {
			logger.Warn("failed to cache checkout session", zap.Error(err))
		}
	}

	logger.Info("checkout session created", zap.String("preferenceId", pref.ID))

	return session, nil
}

func (s *CheckoutService) cached(ctx context.Context, logger *zap.Logger, order *domain.Order) *dto.CheckoutSession {
	if s.cache == nil {
		return nil
	}
	session, err := s.cache.Get(ctx, order.ID, order.FinalTotal)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.Warn("checkout cache lookup failed", zap.Error(err))
		}
		return nil
	}
	return session
}

// storePreferenceTx records the preference id under the order row lock so
// it never races with a concurrent reconciliation of the same order. An order
// that became paid since it was first read is a conflict.
func (s *CheckoutService) storePreferenceTx(ctx context.Context, orderID uint, preferenceID string) error {
	txCtx, cancel := context.WithTimeout(ctx, s.opts.TxTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(txCtx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	order, err := s.orderLocker.FindByIDForUpdate(txCtx, tx, orderID)
	if err != nil {
		return err
	}
	if order.IsPaid() {
		return apperrors.NewConflictError(fmt.Sprintf("order %d was paid while the checkout session was being created", orderID))
	}

	payment, err := s.paymentRepo.FindByOrderID(txCtx, tx, orderID)
	if _, notFound := apperrors.IsNotFoundError(err); notFound {
		payment = domain.NewPaymentRecord(orderID)
	} else if err != nil {
		return err
	}

	payment.PreferenceID = stringPtr(preferenceID)
	if err := s.paymentRepo.Upsert(txCtx, tx, payment); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *CheckoutService) buildPreference(order *domain.Order) mercadopago.PreferenceRequest {
	items := make([]mercadopago.PreferenceItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, mercadopago.PreferenceItem{
			ID:         strconv.Itoa(item.ProductID),
			Title:      item.ProductName,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice.InexactFloat64(),
			CurrencyID: s.opts.Currency,
		})
	}

	origin := strings.TrimRight(s.opts.FrontendOrigin, "/")
	req := mercadopago.PreferenceRequest{
		Items: items,
		BackURLs: mercadopago.BackURLs{
			Success: origin + "/checkout/success",
			Failure: origin + "/checkout/failure",
			Pending: origin + "/checkout/pending",
		},
		AutoReturn:        "approved",
		NotificationURL:   s.opts.NotificationURL,
		ExternalReference: strconv.FormatUint(uint64(order.ID), 10),
	}

	if order.Name != "" || order.Email != "" {
		req.Payer = &mercadopago.Payer{Name: order.Name, Email: order.Email}
	}
	if order.ShippingCost.IsPositive() {
		req.Shipments = &mercadopago.Shipments{
			Cost: order.ShippingCost.InexactFloat64(),
			Mode: "not_specified",
		}
	}

	return req
}
