package dto

// ShippingInput carries shipping fields; empty strings mean "not provided".
type ShippingInput struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	Region     string `json:"region"`
	PostalCode string `json:"postalCode"`
	Notes      string `json:"notes"`
}

type CreateOrderRequest struct {
	ShippingInput
}

type ConfirmShippingRequest struct {
	ShippingInput
	// ShippingCost is a JSON number or string; parsed leniently by policy.
	ShippingCost RawAmount `json:"shippingCost"`
}
