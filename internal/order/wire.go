package order

import (
	"database/sql"

	"go.uber.org/zap"

	cartrepo "storefront/internal/cart/repository"
	"storefront/internal/config"
	customerrepo "storefront/internal/customer/repository"
	"storefront/internal/infrastructure/mysql"
	"storefront/internal/order/controller"
	orderrepo "storefront/internal/order/repository"
	"storefront/internal/order/service"
	productrepo "storefront/internal/product/repository"
)

func NewModule(db *sql.DB, cfg *config.Config, logger *zap.Logger) *controller.OrderController {
	orderSvc := service.NewOrderService(
		mysql.NewTxManager(db),
		customerrepo.NewMySQLCustomerRepository(db),
		cartrepo.NewMySQLCartRepository(db),
		productrepo.NewMySQLRepository(db),
		orderrepo.NewMySQLOrderRepository(db),
		orderrepo.NewMySQLOrderItemRepository(db),
		logger,
		service.Options{
			TxTimeout:                 cfg.Order.TxTimeout,
			MaxRetryAttempts:          cfg.Order.MaxRetryAttempts,
			OnUnparseableShippingCost: cfg.Order.OnUnparseableShippingCost,
		},
	)

	return controller.NewOrderController(orderSvc, logger)
}
