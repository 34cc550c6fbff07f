package mercadopago

import "encoding/json"

type PreferenceItem struct {
	ID         string
	Title      string
	Quantity   int
	UnitPrice  float64
	CurrencyID string
}

type Payer struct {
	Name  string
	Email string
}

type BackURLs struct {
	Success string
	Failure string
	Pending string
}

type Shipments struct {
	Cost float64
	Mode string
}

type PreferenceRequest struct {
	Items             []PreferenceItem
	Payer             *Payer
	BackURLs          BackURLs
	AutoReturn        string
	NotificationURL   string
	ExternalReference string
	Shipments         *Shipments
}

type Preference struct {
	ID               string
	InitPoint        string
	SandboxInitPoint string
}

// Payment is the subset of the gateway payment resource used for
// reconciliation.
type Payment struct {
	ID                string
	Status            string
	StatusDetail      string
	ExternalReference string
	MerchantOrderID   string
	Raw               json.RawMessage
}
