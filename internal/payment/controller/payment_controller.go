package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/internal/auth"
	"storefront/internal/domain"
	"storefront/internal/dto"
	apperrors "storefront/internal/errors"
	"storefront/internal/infrastructure/mercadopago"
)

type CheckoutService interface {
	CreatePreference(ctx context.Context, customerID uint, orderID uint) (*dto.CheckoutSession, error)
}

type Reconciler interface {
	Apply(ctx context.Context, event domain.GatewayEvent) (*dto.ReconcileResult, error)
}

type PaymentFetcher interface {
	GetPayment(ctx context.Context, paymentID string) (*mercadopago.Payment, error)
}

const (
	ackProcessed = "processed"
	ackIgnored   = "ignored"
)

type PaymentController struct {
	checkout   CheckoutService
	reconciler Reconciler
	payments   PaymentFetcher
	logger     *zap.Logger
}

func NewPaymentController(checkout CheckoutService, reconciler Reconciler, payments PaymentFetcher, logger *zap.Logger) *PaymentController {
	return &PaymentController{
		checkout:   checkout,
		reconciler: reconciler,
		payments:   payments,
		logger:     logger,
	}
}

func (c *PaymentController) Checkout(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	customerID, _ := auth.CustomerID(r.Context())
	logger := c.logger.With(zap.String("traceId", traceID), zap.Uint("customerId", customerID))

	orderID, err := strconv.ParseUint(chi.URLParam(r, "orderId"), 10, 0)
	if err != nil || orderID == 0 {
		c.writeValidationError(w, traceID, "invalid orderId", apperrors.ValidationDetail{
			Field:   "orderId",
			Message: "orderId must be a positive integer",
		})
		return
	}

	session, err := c.checkout.CreatePreference(r.Context(), customerID, uint(orderID))
	if err != nil {
		c.handleError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusCreated, session)
}

// Webhook handles the gateway's server-to-server notification. The payload
// only names the payment, so its status is fetched from the gateway.
func (c *PaymentController) Webhook(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID), zap.String("channel", "webhook"))

	var body dto.WebhookNotification
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			logger.Debug("webhook body is not JSON, using query parameters", zap.Error(err))
		}
	}

	query := r.URL.Query()
	topic := firstNonEmpty(body.Type, query.Get("type"), query.Get("topic"))
	paymentID := firstNonEmpty(string(body.Data.ID), query.Get("data.id"), query.Get("id"))

	if topic != "" && topic != "payment" {
		logger.Info("ignoring non-payment notification", zap.String("type", topic))
		c.writeAck(w, traceID, ackIgnored, "unsupported notification type", nil)
		return
	}
	if paymentID == "" {
		logger.Warn("payment notification without payment id")
		c.writeAck(w, traceID, ackIgnored, "missing payment id", nil)
		return
	}

	payment, err := c.payments.GetPayment(r.Context(), paymentID)
	if errors.Is(err, mercadopago.ErrInvalidPaymentID) {
		logger.Warn("payment notification with unusable payment id", zap.String("paymentId", paymentID))
		c.writeAck(w, traceID, ackIgnored, "invalid payment id", nil)
		return
	}
	if err != nil {
		logger.Error("failed to fetch payment from gateway", zap.String("paymentId", paymentID), zap.Error(err))
		c.handleError(w, traceID, apperrors.NewUpstreamError("failed to fetch payment", err), logger)
		return
	}

	event := domain.GatewayEvent{
		Source:            domain.EventSourceWebhook,
		PaymentID:         firstNonEmpty(payment.ID, paymentID),
		Status:            payment.Status,
		ExternalReference: payment.ExternalReference,
		MerchantOrderID:   payment.MerchantOrderID,
		Raw:               payment.Raw,
	}

	result, err := c.reconciler.Apply(r.Context(), event)
	if err != nil {
		if me, ok := apperrors.IsMalformedEventError(err); ok {
			c.writeAck(w, traceID, ackIgnored, me.Message, nil)
			return
		}
		if nfe, ok := apperrors.IsNotFoundError(err); ok {
			c.writeAck(w, traceID, ackIgnored, nfe.Message, nil)
			return
		}
		c.handleError(w, traceID, err, logger)
		return
	}

	c.writeAck(w, traceID, ackProcessed, "", result)
}

// Feedback handles the browser redirect back from the gateway checkout.
func (c *PaymentController) Feedback(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID), zap.String("channel", "feedback"))

	query := r.URL.Query()
	event := domain.GatewayEvent{
		Source:            domain.EventSourceFeedback,
		PaymentID:         firstNonEmpty(query.Get("payment_id"), query.Get("collection_id")),
		Status:            firstNonEmpty(query.Get("status"), query.Get("collection_status")),
		ExternalReference: query.Get("external_reference"),
		MerchantOrderID:   firstNonEmpty(query.Get("merchant_order_id"), query.Get("merchant_order")),
		PreferenceID:      query.Get("preference_id"),
		Raw:               queryAsJSON(query),
	}

	if event.ExternalReference == "" {
		logger.Warn("feedback without external reference")
		c.writeAck(w, traceID, ackIgnored, "missing external reference", nil)
		return
	}

	result, err := c.reconciler.Apply(r.Context(), event)
	if err != nil {
		if me, ok := apperrors.IsMalformedEventError(err); ok {
			c.writeAck(w, traceID, ackIgnored, me.Message, nil)
			return
		}
		c.handleError(w, traceID, err, logger)
		return
	}

	c.writeAck(w, traceID, ackProcessed, "", result)
}

func (c *PaymentController) handleError(w http.ResponseWriter, traceID string, err error, logger *zap.Logger) {
	if ve, ok := apperrors.IsValidationError(err); ok {
		c.writeValidationError(w, traceID, ve.Message, ve.Details...)
		return
	}

	if _, ok := apperrors.IsNotFoundError(err); ok {
		c.writeErrorResponse(w, traceID, http.StatusNotFound, "NOT_FOUND", err.Error())
		return
	}

	if _, ok := apperrors.IsConflictError(err); ok {
		c.writeErrorResponse(w, traceID, http.StatusConflict, "CONFLICT", err.Error())
		return
	}

	if ue, ok := apperrors.IsUpstreamError(err); ok {
		c.writeErrorResponse(w, traceID, http.StatusBadGateway, "UPSTREAM_ERROR", ue.Message)
		return
	}

	if _, ok := apperrors.IsDeadlockError(err); ok {
		logger.Warn("deadlock retries exhausted", zap.Error(err))
		c.writeErrorResponse(w, traceID, http.StatusConflict, "DEADLOCK", err.Error())
		return
	}

	logger.Error("unexpected error", zap.Error(err))
	c.writeErrorResponse(w, traceID, http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred")
}

func (c *PaymentController) writeAck(w http.ResponseWriter, traceID, status, reason string, result *dto.ReconcileResult) {
	c.writeJSON(w, http.StatusOK, dto.AckResponse{
		TraceID: traceID,
		Status:  status,
		Reason:  reason,
		Result:  result,
	})
}

func (c *PaymentController) writeErrorResponse(w http.ResponseWriter, traceID string, statusCode int, code string, message string) {
	c.writeJSON(w, statusCode, dto.ErrorResponse{
		TraceID:   traceID,
		Status:    statusCode,
		Message:   message,
		Code:      code,
		Timestamp: time.Now().UTC(),
	})
}

type validationErrorResponse struct {
	TraceID string                       `json:"traceId"`
	Error   string                       `json:"error"`
	Message string                       `json:"message"`
	Details []apperrors.ValidationDetail `json:"details"`
}

func (c *PaymentController) writeValidationError(w http.ResponseWriter, traceID string, message string, details ...apperrors.ValidationDetail) {
	c.writeJSON(w, http.StatusBadRequest, validationErrorResponse{
		TraceID: traceID,
		Error:   "VALIDATION_ERROR",
		Message: message,
		Details: details,
	})
}

func (c *PaymentController) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.Error("failed to encode response", zap.Error(err))
	}
}

func queryAsJSON(query url.Values) json.RawMessage {
	flat := make(map[string]string, len(query))
	for k := range query {
		flat[k] = query.Get(k)
	}
	raw, err := json.Marshal(flat)
	if err != nil {
		return nil
	}
	return raw
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
