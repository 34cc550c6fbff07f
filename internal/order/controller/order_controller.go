package controller

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/internal/auth"
	"storefront/internal/domain"
	"storefront/internal/dto"
	apperrors "storefront/internal/errors"
)

type OrderService interface {
	CreateFromCart(ctx context.Context, customerID uint, input dto.ShippingInput) (*domain.Order, error)
	ConfirmShipping(ctx context.Context, customerID uint, orderID uint, input dto.ShippingInput, rawCost string) (*domain.Order, error)
	ListPaid(ctx context.Context, customerID uint) ([]domain.Order, error)
	Get(ctx context.Context, customerID uint, orderID uint) (*domain.Order, error)
}

type OrderController struct {
	service OrderService
	logger  *zap.Logger
}

func NewOrderController(service OrderService, logger *zap.Logger) *OrderController {
	return &OrderController{
		service: service,
		logger:  logger,
	}
}

func (c *OrderController) Create(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	customerID, _ := auth.CustomerID(r.Context())
	logger := c.logger.With(zap.String("traceId", traceID), zap.Uint("customerId", customerID))

	var req dto.CreateOrderRequest
	if !c.decodeOptionalBody(w, r, traceID, logger, &req) {
		return
	}

	order, err := c.service.CreateFromCart(r.Context(), customerID, req.ShippingInput)
	if err != nil {
		c.handleError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusCreated, dto.NewOrderResponse(order))
}

func (c *OrderController) ConfirmShipping(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	customerID, _ := auth.CustomerID(r.Context())
	logger := c.logger.With(zap.String("traceId", traceID), zap.Uint("customerId", customerID))

	orderID, ok := c.parseOrderID(w, r, traceID, logger)
	if !ok {
		return
	}

	var req dto.ConfirmShippingRequest
	if !c.decodeOptionalBody(w, r, traceID, logger, &req) {
		return
	}

	order, err := c.service.ConfirmShipping(r.Context(), customerID, orderID, req.ShippingInput, string(req.ShippingCost))
	if err != nil {
		c.handleError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, dto.NewOrderResponse(order))
}

func (c *OrderController) ListPaid(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	customerID, _ := auth.CustomerID(r.Context())
	logger := c.logger.With(zap.String("traceId", traceID), zap.Uint("customerId", customerID))

	orders, err := c.service.ListPaid(r.Context(), customerID)
	if err != nil {
		c.handleError(w, traceID, err, logger)
		return
	}

	resp := make([]dto.OrderResponse, len(orders))
	for i := range orders {
		resp[i] = dto.NewOrderResponse(&orders[i])
	}

	c.writeJSON(w, http.StatusOK, resp)
}

func (c *OrderController) Get(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	customerID, _ := auth.CustomerID(r.Context())
	logger := c.logger.With(zap.String("traceId", traceID), zap.Uint("customerId", customerID))

	orderID, ok := c.parseOrderID(w, r, traceID, logger)
	if !ok {
		return
	}

	order, err := c.service.Get(r.Context(), customerID, orderID)
	if err != nil {
		c.handleError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, dto.NewOrderResponse(order))
}

func (c *OrderController) parseOrderID(w http.ResponseWriter, r *http.Request, traceID string, logger *zap.Logger) (uint, bool) {
	orderID, err := strconv.ParseUint(chi.URLParam(r, "orderId"), 10, 0)
	if err != nil || orderID == 0 {
		logger.Warn("invalid orderId in path", zap.String("orderId", chi.URLParam(r, "orderId")))
		c.writeValidationError(w, traceID, "invalid orderId", apperrors.ValidationDetail{
			Field:   "orderId",
			Message: "orderId must be a positive integer",
		})
		return 0, false
	}
	return uint(orderID), true
}

// decodeOptionalBody accepts an empty body as "no fields provided".
func (c *OrderController) decodeOptionalBody(w http.ResponseWriter, r *http.Request, traceID string, logger *zap.Logger, into any) bool {
	err := json.NewDecoder(r.Body).Decode(into)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}

	logger.Warn("invalid JSON body", zap.Error(err))
	c.writeValidationError(w, traceID, "invalid JSON body", apperrors.ValidationDetail{
		Field:   "body",
		Message: "request body must be valid JSON",
	})
	return false
}

func (c *OrderController) handleError(w http.ResponseWriter, traceID string, err error, logger *zap.Logger) {
	if ve, ok := apperrors.IsValidationError(err); ok {
		logger.Info("request rejected", zap.String("reason", ve.Message))
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

	if _, ok := apperrors.IsDeadlockError(err); ok {
		logger.Warn("deadlock retries exhausted", zap.Error(err))
		c.writeErrorResponse(w, traceID, http.StatusConflict, "DEADLOCK", err.Error())
		return
	}

	logger.Error("unexpected error", zap.Error(err))
	c.writeErrorResponse(w, traceID, http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred")
}

func (c *OrderController) writeErrorResponse(w http.ResponseWriter, traceID string, statusCode int, code string, message string) {
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

func (c *OrderController) writeValidationError(w http.ResponseWriter, traceID string, message string, details ...apperrors.ValidationDetail) {
	c.writeJSON(w, http.StatusBadRequest, validationErrorResponse{
		TraceID: traceID,
		Error:   "VALIDATION_ERROR",
		Message: message,
		Details: details,
	})
}

func (c *OrderController) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.Error("failed to encode response", zap.Error(err))
	}
}
