package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/domain"
	"storefront/internal/dto"
	apperrors "storefront/internal/errors"
	"storefront/internal/infrastructure/mysql"
)

type TransactionManager interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (mysql.Tx, error)
}

type CustomerRepository interface {
	FindByID(ctx context.Context, id uint) (*domain.Customer, error)
}

type CartRepository interface {
	FindLinesForUpdate(ctx context.Context, tx mysql.DBTX, customerID uint) ([]domain.CartLine, error)
	DeleteByCustomer(ctx context.Context, tx mysql.DBTX, customerID uint) error
}

type ProductRepository interface {
	FindByIDs(ctx context.Context, tx mysql.DBTX, ids []int) ([]domain.Product, error)
}

type OrderRepository interface {
	Insert(ctx context.Context, tx mysql.DBTX, order *domain.Order) (uint, error)
	FindOwned(ctx context.Context, id uint, customerID uint) (*domain.Order, error)
	FindOwnedForUpdate(ctx context.Context, tx mysql.DBTX, id uint, customerID uint) (*domain.Order, error)
	UpdateShipping(ctx context.Context, tx mysql.DBTX, order *domain.Order) error
	ListByCustomerAndState(ctx context.Context, customerID uint, state domain.OrderState) ([]domain.Order, error)
}

type OrderItemRepository interface {
	InsertBatch(ctx context.Context, tx mysql.DBTX, orderID uint, items []domain.OrderItem) error
	FindByOrderID(ctx context.Context, orderID uint) ([]domain.OrderItem, error)
}

type Options struct {
	TxTimeout                 time.Duration
	MaxRetryAttempts          int
	OnUnparseableShippingCost config.ShippingCostPolicy
}

type OrderService struct {
	db            TransactionManager
	customerRepo  CustomerRepository
	cartRepo      CartRepository
	productRepo   ProductRepository
	orderRepo     OrderRepository
	orderItemRepo OrderItemRepository
	logger        *zap.Logger
	opts          Options
}

func NewOrderService(
	db TransactionManager,
	customerRepo CustomerRepository,
	cartRepo CartRepository,
	productRepo ProductRepository,
	orderRepo OrderRepository,
	orderItemRepo OrderItemRepository,
	logger *zap.Logger,
	opts Options,
) *OrderService {
	if opts.TxTimeout <= 0 {
		opts.TxTimeout = 5 * time.Second
	}
	if opts.OnUnparseableShippingCost == "" {
		opts.OnUnparseableShippingCost = config.ShippingCostDefaultZero
	}
	return &OrderService{
		db:            db,
		customerRepo:  customerRepo,
		cartRepo:      cartRepo,
		productRepo:   productRepo,
		orderRepo:     orderRepo,
		orderItemRepo: orderItemRepo,
		logger:        logger,
		opts:          opts,
	}
}

// CreateFromCart turns the customer's cart into a pending order. Order,
// order lines and cart clearing commit together or not at all.
func (s *OrderService) CreateFromCart(ctx context.Context, customerID uint, input dto.ShippingInput) (*domain.Order, error) {
	s.logger.Info("create order from cart started", zap.Uint("customerId", customerID))

	customer, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	shipping := resolveShipping(input, customer.DefaultShipping())
	if details := missingShippingFields(shipping); len(details) > 0 {
		return nil, apperrors.NewValidationError("missing shipping fields", details...)
	}

	var order *domain.Order
	err = mysql.RetryOnDeadlock(ctx, s.opts.MaxRetryAttempts, s.logger, func(ctx context.Context) error {
		created, err := s.createFromCartTx(ctx, customer, shipping)
		if err != nil {
			return err
		}
		order = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order created",
		zap.Uint("orderId", order.ID),
		zap.Uint("customerId", customerID),
		zap.Int("itemCount", len(order.Items)),
		zap.String("finalTotal", order.FinalTotal.StringFixed(2)),
	)

	return order, nil
}

func (s *OrderService) createFromCartTx(ctx context.Context, customer *domain.Customer, shipping domain.Shipping) (*domain.Order, error) {
	txCtx, cancel := context.WithTimeout(ctx, s.opts.TxTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(txCtx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		s.logger.Error("failed to begin transaction", zap.Error(err))
		return nil, err
	}
	// Rollback after Commit is a no-op.
	defer tx.Rollback()

	lines, err := s.cartRepo.FindLinesForUpdate(txCtx, tx, customer.ID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, apperrors.NewValidationError("cart is empty", apperrors.ValidationDetail{
			Field:   "cart",
			Message: "cart must contain at least one item",
		})
	}

	lines, err = s.priceLines(txCtx, tx, lines)
	if err != nil {
		return nil, err
	}

	order := &domain.Order{
		CustomerID:    customer.ID,
		State:         domain.OrderStatePending,
		Name:          customer.Name,
		Email:         customer.Email,
		Phone:         customer.Phone,
		Address:       shipping.Address,
		City:          shipping.City,
		Region:        shipping.Region,
		PostalCode:    shipping.PostalCode,
		Notes:         shipping.Notes,
		ProductsTotal: decimal.Zero,
		ShippingCost:  decimal.Zero,
	}

	items := make([]domain.OrderItem, len(lines))
	for i, line := range lines {
		items[i] = domain.NewOrderItem(line)
		order.ProductsTotal = order.ProductsTotal.Add(items[i].Subtotal)
	}
	order.RecalculateTotals()

	order.ID, err = s.orderRepo.Insert(txCtx, tx, order)
	if err != nil {
		return nil, err
	}

	if err := s.orderItemRepo.InsertBatch(txCtx, tx, order.ID, items); err != nil {
		return nil, err
	}

	if err := s.cartRepo.DeleteByCustomer(txCtx, tx, customer.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("failed to commit transaction", zap.Uint("customerId", customer.ID), zap.Error(err))
		return nil, err
	}

	for i := range items {
		items[i].OrderID = order.ID
	}
	order.Items = items

	return order, nil
}

// priceLines attaches the current catalog name and price to each cart line.
func (s *OrderService) priceLines(ctx context.Context, tx mysql.DBTX, lines []domain.CartLine) ([]domain.CartLine, error) {
	ids := make([]int, 0, len(lines))
	seen := make(map[int]struct{}, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}

	products, err := s.productRepo.FindByIDs(ctx, tx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[int]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	var details []apperrors.ValidationDetail
	priced := make([]domain.CartLine, len(lines))
	for i, line := range lines {
		product, ok := byID[line.ProductID]
		if !ok || !product.Purchasable() {
			details = append(details, apperrors.ValidationDetail{
				Field:   fmt.Sprintf("cart[%d].productId", i),
				Message: fmt.Sprintf("product %d is no longer available", line.ProductID),
			})
			continue
		}
		if line.Quantity < 1 {
			details = append(details, apperrors.ValidationDetail{
				Field:   fmt.Sprintf("cart[%d].quantity", i),
				Message: "quantity must be a positive integer",
			})
			continue
		}
		line.ProductName = product.Name
		line.UnitPrice = product.Price
		priced[i] = line
	}

	if len(details) > 0 {
		return nil, apperrors.NewValidationError("cart contains invalid items", details...)
	}

	return priced, nil
}

// ConfirmShipping overwrites the order's shipping data and cost and
// recomputes its final total.
func (s *OrderService) ConfirmShipping(ctx context.Context, customerID uint, orderID uint, input dto.ShippingInput, rawCost string) (*domain.Order, error) {
	cost, err := s.parseShippingCost(rawCost)
	if err != nil {
		return nil, err
	}

	var order *domain.Order
	err = mysql.RetryOnDeadlock(ctx, s.opts.MaxRetryAttempts, s.logger, func(ctx context.Context) error {
		updated, err := s.confirmShippingTx(ctx, customerID, orderID, input, cost)
		if err != nil {
			return err
		}
		order = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("shipping confirmed",
		zap.Uint("orderId", order.ID),
		zap.String("shippingCost", order.ShippingCost.StringFixed(2)),
		zap.String("finalTotal", order.FinalTotal.StringFixed(2)),
	)

	return order, nil
}

func (s *OrderService) confirmShippingTx(ctx context.Context, customerID uint, orderID uint, input dto.ShippingInput, cost decimal.Decimal) (*domain.Order, error) {
	txCtx, cancel := context.WithTimeout(ctx, s.opts.TxTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(txCtx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		s.logger.Error("failed to begin transaction", zap.Error(err))
		return nil, err
	}
	defer tx.Rollback()

	order, err := s.orderRepo.FindOwnedForUpdate(txCtx, tx, orderID, customerID)
	if err != nil {
		return nil, err
	}

	current := domain.Shipping{
		Address:    order.Address,
		City:       order.City,
		Region:     order.Region,
		PostalCode: order.PostalCode,
	}
	order.ApplyShipping(resolveShipping(input, current), cost)
	if order.FinalTotal.GreaterThan(domain.MaxAmount) {
		return nil, apperrors.NewValidationError("invalid shipping cost", apperrors.ValidationDetail{
			Field:   "shippingCost",
			Message: fmt.Sprintf("order total with shipping must not exceed %s", domain.MaxAmount.StringFixed(2)),
		})
	}

	if err := s.orderRepo.UpdateShipping(txCtx, tx, order); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("failed to commit transaction", zap.Uint("orderId", orderID), zap.Error(err))
		return nil, err
	}

	return order, nil
}

func (s *OrderService) parseShippingCost(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}

	cost, err := decimal.NewFromString(raw)
	if err != nil {
		if s.opts.OnUnparseableShippingCost == config.ShippingCostReject {
			return decimal.Zero, apperrors.NewValidationError("invalid shipping cost", apperrors.ValidationDetail{
				Field:   "shippingCost",
				Message: "shippingCost must be a decimal number",
			})
		}
		s.logger.Warn("unparseable shipping cost defaulted to zero", zap.String("shippingCost", raw))
		return decimal.Zero, nil
	}

	if cost.IsNegative() {
		return decimal.Zero, apperrors.NewValidationError("invalid shipping cost", apperrors.ValidationDetail{
			Field:   "shippingCost",
			Message: "shippingCost must not be negative",
		})
	}
	if cost.Round(2).GreaterThan(domain.MaxAmount) {
		return decimal.Zero, apperrors.NewValidationError("invalid shipping cost", apperrors.ValidationDetail{
			Field:   "shippingCost",
			Message: fmt.Sprintf("shippingCost must not exceed %s", domain.MaxAmount.StringFixed(2)),
		})
	}

	return cost, nil
}

// ListPaid returns the customer's paid orders, newest first.
func (s *OrderService) ListPaid(ctx context.Context, customerID uint) ([]domain.Order, error) {
	return s.orderRepo.ListByCustomerAndState(ctx, customerID, domain.OrderStatePaid)
}

func (s *OrderService) Get(ctx context.Context, customerID uint, orderID uint) (*domain.Order, error) {
	order, err := s.orderRepo.FindOwned(ctx, orderID, customerID)
	if err != nil {
		return nil, err
	}

	order.Items, err = s.orderItemRepo.FindByOrderID(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	return order, nil
}

func resolveShipping(input dto.ShippingInput, fallback domain.Shipping) domain.Shipping {
	return domain.Shipping{
		Address:    firstNonEmpty(input.Address, fallback.Address),
		City:       firstNonEmpty(input.City, fallback.City),
		Region:     firstNonEmpty(input.Region, fallback.Region),
		PostalCode: firstNonEmpty(input.PostalCode, fallback.PostalCode),
		Notes:      strings.TrimSpace(input.Notes),
	}
}

func missingShippingFields(shipping domain.Shipping) []apperrors.ValidationDetail {
	required := []struct {
		field string
		value string
	}{
		{"address", shipping.Address},
		{"city", shipping.City},
		{"region", shipping.Region},
		{"postalCode", shipping.PostalCode},
	}

	var details []apperrors.ValidationDetail
	for _, r := range required {
		if r.value == "" {
			details = append(details, apperrors.ValidationDetail{
				Field:   r.field,
				Message: r.field + " is required",
			})
		}
	}
	return details
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
