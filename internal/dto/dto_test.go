package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookNotification_NumericAndStringIDs(t *testing.T) {
	var numeric WebhookNotification
	require.NoError(t, json.Unmarshal([]byte(`{"type":"payment","data":{"id":123456789012}}`), &numeric))
	assert.Equal(t, "payment", numeric.Type)
	assert.Equal(t, FlexibleID("123456789012"), numeric.Data.ID)

	var text WebhookNotification
	require.NoError(t, json.Unmarshal([]byte(`{"type":"payment","data":{"id":"987"}}`), &text))
	assert.Equal(t, FlexibleID("987"), text.Data.ID)

	var missing WebhookNotification
	require.NoError(t, json.Unmarshal([]byte(`{"type":"subscription"}`), &missing))
	assert.Equal(t, FlexibleID(""), missing.Data.ID)
}

func TestConfirmShippingRequest_ShippingCostForms(t *testing.T) {
	tests := []struct {
		name string
		body string
		want RawAmount
	}{
		{"number", `{"shippingCost":150.5}`, "150.5"},
		{"string", `{"shippingCost":"150.5"}`, "150.5"},
		{"garbage string", `{"shippingCost":"abc"}`, "abc"},
		{"null", `{"shippingCost":null}`, ""},
		{"absent", `{}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req ConfirmShippingRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))
			assert.Equal(t, tt.want, req.ShippingCost)
		})
	}
}
