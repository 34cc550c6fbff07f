package payment

import (
	"context"
	"database/sql"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/events"
	"storefront/internal/infrastructure/cache"
	"storefront/internal/infrastructure/mailer"
	"storefront/internal/infrastructure/mercadopago"
	"storefront/internal/infrastructure/mysql"
	"storefront/internal/notification"
	orderrepo "storefront/internal/order/repository"
	"storefront/internal/payment/controller"
	paymentrepo "storefront/internal/payment/repository"
	"storefront/internal/payment/service"
)

type Module struct {
	Controller *controller.PaymentController
	closers    []func() error
}

// Close releases the Redis client and Kafka writer, if any.
func (m *Module) Close() error {
	var errs []error
	for _, c := range m.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

func NewModule(ctx context.Context, db *sql.DB, cfg *config.Config, logger *zap.Logger) (*Module, error) {
	m := &Module{}

	txManager := mysql.NewTxManager(db)
	orderRepo := orderrepo.NewMySQLOrderRepository(db)
	orderItemRepo := orderrepo.NewMySQLOrderItemRepository(db)
	paymentRepo := paymentrepo.NewMySQLPaymentRepository(db)
	gateway, err := mercadopago.NewClient(cfg.Gateway)
	if err != nil {
		return nil, err
	}
	if cfg.Gateway.AccessToken == "" {
		logger.Warn("gateway.access_token not set, checkout and webhooks will fail")
	}

	var sessionCache service.PreferenceCache
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, checkout sessions will not be cached", zap.Error(err))
			client.Close()
		} else {
			sessionCache = cache.NewPreferenceCache(client, cfg.Redis.PreferenceTTL)
			m.closers = append(m.closers, client.Close)
		}
	}

	var mail notification.Mailer
	if cfg.Mail.Host != "" {
		smtpMailer, err := mailer.NewSMTPMailer(cfg.Mail)
		if err != nil {
			logger.Warn("invalid mail settings, confirmation emails are disabled", zap.Error(err))
		} else {
			mail = smtpMailer
		}
	} else {
		logger.Warn("mail.host not set, confirmation emails are disabled")
	}

	var publisher notification.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		p := events.NewOrderEventPublisher(events.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic), logger)
		publisher = p
		m.closers = append(m.closers, p.Close)
	}

	reconciler := service.NewReconciler(
		txManager,
		orderRepo,
		paymentRepo,
		notification.NewOrderPaidNotifier(mail, publisher, logger),
		logger,
		cfg.Order.TxTimeout,
		cfg.Order.MaxRetryAttempts,
	)

	checkout := service.NewCheckoutService(
		txManager,
		orderRepo,
		orderRepo,
		orderItemRepo,
		paymentRepo,
		gateway,
		sessionCache,
		logger,
		service.CheckoutOptions{
			Currency:         cfg.Gateway.Currency,
			FrontendOrigin:   cfg.Gateway.FrontendOrigin,
			NotificationURL:  cfg.Gateway.NotificationURL,
			TxTimeout:        cfg.Order.TxTimeout,
			MaxRetryAttempts: cfg.Order.MaxRetryAttempts,
		},
	)

	m.Controller = controller.NewPaymentController(checkout, reconciler, gateway, logger)
	return m, nil
}
