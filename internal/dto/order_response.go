package dto

import (
	"time"

	"storefront/internal/domain"
)

type OrderItemResponse struct {
	ID          uint    `json:"id"`
	ProductID   int     `json:"productId"`
	ProductName string  `json:"productName"`
	Size        *string `json:"size"`
	Quantity    int     `json:"quantity"`
	UnitPrice   string  `json:"unitPrice"`
	Subtotal    string  `json:"subtotal"`
}

type OrderResponse struct {
	ID            uint                `json:"id"`
	State         string              `json:"state"`
	IsPaid        bool                `json:"isPaid"`
	ProductsTotal string              `json:"productsTotal"`
	ShippingCost  string              `json:"shippingCost"`
	FinalTotal    string              `json:"finalTotal"`
	Address       string              `json:"address"`
	City          string              `json:"city"`
	Region        string              `json:"region"`
	PostalCode    string              `json:"postalCode"`
	Notes         string              `json:"notes"`
	GatewayStatus *string             `json:"gatewayStatus"`
	PaymentID     *string             `json:"paymentId"`
	Items         []OrderItemResponse `json:"items,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
}

func NewOrderResponse(order *domain.Order) OrderResponse {
	resp := OrderResponse{
		ID:            order.ID,
		State:         string(order.State),
		IsPaid:        order.IsPaid(),
		ProductsTotal: order.ProductsTotal.StringFixed(2),
		ShippingCost:  order.ShippingCost.StringFixed(2),
		FinalTotal:    order.FinalTotal.StringFixed(2),
		Address:       order.Address,
		City:          order.City,
		Region:        order.Region,
		PostalCode:    order.PostalCode,
		Notes:         order.Notes,
		GatewayStatus: order.GatewayStatus,
		PaymentID:     order.GatewayPaymentID,
		CreatedAt:     order.CreatedAt,
	}

	for _, item := range order.Items {
		resp.Items = append(resp.Items, OrderItemResponse{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Size:        item.Size,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.StringFixed(2),
			Subtotal:    item.Subtotal.StringFixed(2),
		})
	}

	return resp
}

type ErrorResponse struct {
	TraceID   string    `json:"traceId"`
	Status    int       `json:"status"`
	Message   string    `json:"message"`
	Code      string    `json:"code"`
	Timestamp time.Time `json:"timestamp"`
}
