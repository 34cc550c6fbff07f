package mercadopago

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	mpconfig "github.com/mercadopago/sdk-go/pkg/config"
	"github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/mercadopago/sdk-go/pkg/preference"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"storefront/internal/config"
)

const DefaultBaseURL = "https://api.mercadopago.com"

var (
	ErrMissingAccessToken = errors.New("mercadopago access token not set")
	ErrInvalidPaymentID   = errors.New("payment id is not numeric")
)

// Client adapts the MercadoPago SDK to the checkout and reconciliation
// services.
type Client struct {
	accessToken string
	preferences preference.Client
	payments    payment.Client
}

// NewClient builds the SDK clients on an instrumented http.Client. A BaseURL
// other than the public API redirects every SDK call to that host.
func NewClient(cfg config.GatewayConfig) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var transport http.RoundTripper = http.DefaultTransport
	if cfg.BaseURL != "" && strings.TrimRight(cfg.BaseURL, "/") != DefaultBaseURL {
		target, err := url.Parse(cfg.BaseURL)
		if err != nil || target.Host == "" {
			return nil, fmt.Errorf("invalid gateway base url %q", cfg.BaseURL)
		}
		transport = &hostRewriter{target: target, next: transport}
	}

	sdkCfg, err := mpconfig.New(cfg.AccessToken, mpconfig.WithHTTPClient(&http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(transport),
	}))
	if err != nil {
		return nil, fmt.Errorf("configuring mercadopago sdk: %w", err)
	}

	return &Client{
		accessToken: cfg.AccessToken,
		preferences: preference.NewClient(sdkCfg),
		payments:    payment.NewClient(sdkCfg),
	}, nil
}

// CreatePreference registers a checkout preference.
func (c *Client) CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error) {
	if c.accessToken == "" {
		return nil, ErrMissingAccessToken
	}

	resp, err := c.preferences.Create(ctx, toSDKPreference(req))
	if err != nil {
		return nil, fmt.Errorf("creating preference: %w", err)
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("preference response has no id")
	}

	return &Preference{
		ID:               resp.ID,
		InitPoint:        resp.InitPoint,
		SandboxInitPoint: resp.SandboxInitPoint,
	}, nil
}

// GetPayment fetches the authoritative state of a payment. Raw holds the
// payment resource re-encoded as JSON.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	if c.accessToken == "" {
		return nil, ErrMissingAccessToken
	}

	id, err := strconv.Atoi(strings.TrimSpace(paymentID))
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPaymentID, paymentID)
	}

	resp, err := c.payments.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetching payment %d: %w", id, err)
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("encoding payment %d: %w", id, err)
	}

	p := &Payment{
		ID:                fmt.Sprint(resp.ID),
		Status:            resp.Status,
		StatusDetail:      resp.StatusDetail,
		ExternalReference: resp.ExternalReference,
		Raw:               raw,
	}
	if orderID := fmt.Sprint(resp.Order.ID); orderID != "0" {
		p.MerchantOrderID = orderID
	}

	return p, nil
}

func toSDKPreference(req PreferenceRequest) preference.Request {
	items := make([]preference.ItemRequest, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, preference.ItemRequest{
			ID:         item.ID,
			Title:      item.Title,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			CurrencyID: item.CurrencyID,
		})
	}

	out := preference.Request{
		Items: items,
		BackURLs: &preference.BackURLsRequest{
			Success: req.BackURLs.Success,
			Failure: req.BackURLs.Failure,
			Pending: req.BackURLs.Pending,
		},
		AutoReturn:        req.AutoReturn,
		NotificationURL:   req.NotificationURL,
		ExternalReference: req.ExternalReference,
	}
	if req.Payer != nil {
		out.Payer = &preference.PayerRequest{Name: req.Payer.Name, Email: req.Payer.Email}
	}
	if req.Shipments != nil {
		out.Shipments = &preference.ShipmentsRequest{Cost: req.Shipments.Cost, Mode: req.Shipments.Mode}
	}

	return out
}

// hostRewriter sends requests aimed at the public API to another host,
// keeping path and query.
type hostRewriter struct {
	target *url.URL
	next   http.RoundTripper
}

func (h *hostRewriter) RoundTrip(r *http.Request) (*http.Response, error) {
	out := r.Clone(r.Context())
	out.URL.Scheme = h.target.Scheme
	out.URL.Host = h.target.Host
	out.URL.Path = strings.TrimRight(h.target.Path, "/") + r.URL.Path
	out.Host = h.target.Host
	return h.next.RoundTrip(out)
}
