package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultGatewayBaseURL = "https://api.stripe.com"
	gatewayTimeout        = 15 * time.Second
)

// Client is a thin form-encoded REST client for the payment gateway. It
// covers the five operations the workflow needs: product, price and session
// creation, session retrieval, and the balance probe.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

// NewClient builds a gateway client authenticated with secretKey. The key
// determines test vs live behavior on the gateway side.
func NewClient(secretKey string) *Client {
	return &Client{
		baseURL:    defaultGatewayBaseURL,
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: gatewayTimeout},
	}
}

// CreateProduct creates a gateway product tagged with metadata and returns
// its ID.
func (c *Client) CreateProduct(ctx context.Context, name string, metadata map[string]string) (string, error) {
	form := url.Values{}
	form.Set("name", name)
	for k, v := range metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := c.call(ctx, http.MethodPost, "/v1/products", form, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// CreatePrice creates a one-off price in minor units for a product. The
// gateway expects a lower-case currency code.
func (c *Client) CreatePrice(ctx context.Context, productID string, amountMinorUnits int64, currencyLower string) (string, error) {
	form := url.Values{}
	form.Set("product", productID)
	form.Set("unit_amount", strconv.FormatInt(amountMinorUnits, 10))
	form.Set("currency", currencyLower)

	var out struct {
		ID string `json:"id"`
	}
	if err := c.call(ctx, http.MethodPost, "/v1/prices", form, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// SessionParams are the inputs for checkout session creation.
type SessionParams struct {
	PriceID       string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	Metadata      map[string]string
}

// CreateSession creates a hosted checkout session and returns it with the
// gateway-hosted URL to redirect the payer to.
func (c *Client) CreateSession(ctx context.Context, params SessionParams) (Session, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("line_items[0][price]", params.PriceID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", params.SuccessURL)
	form.Set("cancel_url", params.CancelURL)
	if params.CustomerEmail != "" {
		form.Set("customer_email", params.CustomerEmail)
	}
	for k, v := range params.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	var out sessionResponse
	if err := c.call(ctx, http.MethodPost, "/v1/checkout/sessions", form, &out); err != nil {
		return Session{}, err
	}
	return out.toSession(), nil
}

// GetSession retrieves a checkout session by ID.
func (c *Client) GetSession(ctx context.Context, sessionID string) (Session, error) {
	var out sessionResponse
	if err := c.call(ctx, http.MethodGet, "/v1/checkout/sessions/"+url.PathEscape(sessionID), nil, &out); err != nil {
		return Session{}, err
	}
	return out.toSession(), nil
}

// GetBalance fetches the account balance as a cheap reachability probe and
// reports whether the account is in live mode.
func (c *Client) GetBalance(ctx context.Context) (livemode bool, err error) {
	var out struct {
		Livemode bool `json:"livemode"`
	}
	if err := c.call(ctx, http.MethodGet, "/v1/balance", nil, &out); err != nil {
		return false, err
	}
	return out.Livemode, nil
}

type sessionResponse struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	PaymentStatus string `json:"payment_status"`
	AmountTotal   int64  `json:"amount_total"`
	Currency      string `json:"currency"`
	CustomerEmail string `json:"customer_email"`
	PaymentIntent string `json:"payment_intent"`
}

func (r sessionResponse) toSession() Session {
	return Session{
		ID:              r.ID,
		URL:             r.URL,
		PaymentStatus:   r.PaymentStatus,
		AmountTotal:     r.AmountTotal,
		Currency:        r.Currency,
		CustomerEmail:   r.CustomerEmail,
		PaymentIntentID: r.PaymentIntent,
	}
}

type gatewayError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (c *Client) call(ctx context.Context, method, path string, form url.Values, out any) error {
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &ProviderError{Op: path, Message: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ProviderError{Op: path, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var ge gatewayError
		_ = json.NewDecoder(resp.Body).Decode(&ge)
		msg := ge.Error.Message
		if msg == "" {
			msg = fmt.Sprintf("gateway returned %d", resp.StatusCode)
		}
		return &ProviderError{Op: path, Message: msg}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ProviderError{Op: path, Message: "decode response: " + err.Error()}
	}
	return nil
}
