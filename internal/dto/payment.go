package dto

import "storefront/internal/domain"

// CheckoutSession is the gateway handle the buyer is redirected to.
type CheckoutSession struct {
	PreferenceID     string `json:"preferenceId"`
	InitPoint        string `json:"initPoint"`
	SandboxInitPoint string `json:"sandboxInitPoint,omitempty"`
}

// WebhookNotification is the push body sent by the gateway.
type WebhookNotification struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Data   struct {
		ID FlexibleID `json:"id"`
	} `json:"data"`
}

type ReconcileResult struct {
	OrderID       uint              `json:"orderId"`
	PriorState    domain.OrderState `json:"priorState"`
	State         domain.OrderState `json:"state"`
	Transition    bool              `json:"transition"`
	Notified      bool              `json:"notified"`
	PaymentID     string            `json:"paymentId"`
	GatewayStatus string            `json:"gatewayStatus"`
}

type AckResponse struct {
	TraceID string           `json:"traceId"`
	Status  string           `json:"status"`
	Reason  string           `json:"reason,omitempty"`
	Result  *ReconcileResult `json:"result,omitempty"`
}
