package domain

import "encoding/json"

type EventSource string

const (
	EventSourceWebhook  EventSource = "webhook"
	EventSourceFeedback EventSource = "feedback"
)

// GatewayEvent is a payment status report from either gateway channel,
// normalized so both are reconciled by the same code path.
type GatewayEvent struct {
	Source            EventSource
	PaymentID         string
	Status            string
	ExternalReference string
	MerchantOrderID   string
	PreferenceID      string
	Raw               json.RawMessage
}
