package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"storefront/internal/auth"
)

type OrderHandlers interface {
	Create(w http.ResponseWriter, r *http.Request)
	ConfirmShipping(w http.ResponseWriter, r *http.Request)
	ListPaid(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
}

type PaymentHandlers interface {
	Checkout(w http.ResponseWriter, r *http.Request)
	Webhook(w http.ResponseWriter, r *http.Request)
	Feedback(w http.ResponseWriter, r *http.Request)
}

func NewRouter(orders OrderHandlers, payments PaymentHandlers, requestTimeout time.Duration, logger *zap.Logger) http.Handler {
	if requestTimeout <= 0 {
		requestTimeout = 15 * time.Second
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Gateway callbacks carry no customer identity.
		r.Post("/payments/webhook", payments.Webhook)
		r.Get("/payments/feedback", payments.Feedback)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireCustomer)

			r.Post("/orders", orders.Create)
			r.Get("/orders", orders.ListPaid)
			r.Get("/orders/{orderId}", orders.Get)
			r.Post("/orders/{orderId}/shipping", orders.ConfirmShipping)
			r.Post("/orders/{orderId}/checkout", payments.Checkout)
		})
	})

	logger.Debug("routes registered")

	return otelhttp.NewHandler(r, "storefront")
}
