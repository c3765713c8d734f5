package payment

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeGateway struct {
	products      int
	prices        int
	sessions      int
	priceAmount   int64
	priceCurrency string
	sessionParams SessionParams
	productMeta   map[string]string

	session    Session
	sessionErr error
	balanceErr error
	livemode   bool
}

func (f *fakeGateway) CreateProduct(ctx context.Context, name string, metadata map[string]string) (string, error) {
	f.products++
	f.productMeta = metadata
	return "prod_1", nil
}

func (f *fakeGateway) CreatePrice(ctx context.Context, productID string, amount int64, currencyLower string) (string, error) {
	f.prices++
	f.priceAmount = amount
	f.priceCurrency = currencyLower
	return "price_1", nil
}

func (f *fakeGateway) CreateSession(ctx context.Context, params SessionParams) (Session, error) {
	f.sessions++
	f.sessionParams = params
	return Session{ID: "sess_abc", URL: "https://pay.example.com/c/sess_abc"}, nil
}

func (f *fakeGateway) GetSession(ctx context.Context, sessionID string) (Session, error) {
	if f.sessionErr != nil {
		return Session{}, f.sessionErr
	}
	return f.session, nil
}

func (f *fakeGateway) GetBalance(ctx context.Context) (bool, error) {
	if f.balanceErr != nil {
		return false, f.balanceErr
	}
	return f.livemode, nil
}

func TestCreateCheckout_InvalidAmountMakesNoRemoteCalls(t *testing.T) {
	gw := &fakeGateway{}
	svc := NewService(gw, "test", "https://example.com")

	for _, amount := range []int64{0, -1, -5000} {
		_, err := svc.CreateCheckout(context.Background(), "Acme Corp", amount, "USD", "john@acme.com", "env-123")
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("amount %d: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
	if gw.products != 0 || gw.prices != 0 || gw.sessions != 0 {
		t.Fatalf("expected no remote calls, got %d/%d/%d", gw.products, gw.prices, gw.sessions)
	}
}

func TestCreateCheckout_InvalidCurrency(t *testing.T) {
	gw := &fakeGateway{}
	svc := NewService(gw, "test", "https://example.com")

	for _, code := range []string{"", "US", "USDX", "U5D", "dollars"} {
		_, err := svc.CreateCheckout(context.Background(), "Acme Corp", 5000, code, "john@acme.com", "env-123")
		if !errors.Is(err, ErrInvalidCurrency) {
			t.Fatalf("currency %q: expected ErrInvalidCurrency, got %v", code, err)
		}
	}
	if gw.products != 0 {
		t.Fatalf("expected no remote calls for invalid currency, got %d", gw.products)
	}
}

func TestCreateCheckout_MixedCaseCurrencyLowerCasedForGateway(t *testing.T) {
	gw := &fakeGateway{}
	svc := NewService(gw, "test", "https://example.com")

	url, err := svc.CreateCheckout(context.Background(), "Acme Corp", 5000, "usd", "john@acme.com", "env-123")
	if err != nil {
		t.Fatalf("create checkout: %v", err)
	}
	if url != "https://pay.example.com/c/sess_abc" {
		t.Fatalf("unexpected checkout url %q", url)
	}
	if gw.priceCurrency != "usd" {
		t.Fatalf("expected gateway currency usd, got %q", gw.priceCurrency)
	}
	if gw.priceAmount != 5000 {
		t.Fatalf("expected price 5000 minor units, got %d", gw.priceAmount)
	}
}

func TestCreateCheckout_TagsEnvelopeAndParameterizesReturnURLs(t *testing.T) {
	gw := &fakeGateway{}
	svc := NewService(gw, "test", "https://example.com/")

	if _, err := svc.CreateCheckout(context.Background(), "Acme Corp", 5000, "USD", "john@acme.com", "env-123"); err != nil {
		t.Fatalf("create checkout: %v", err)
	}

	if gw.productMeta["envelope_id"] != "env-123" || gw.productMeta["mode"] != "test" {
		t.Fatalf("expected envelope and mode metadata, got %v", gw.productMeta)
	}
	if !strings.Contains(gw.sessionParams.SuccessURL, "session_id={CHECKOUT_SESSION_ID}") {
		t.Errorf("expected session token placeholder in success url, got %q", gw.sessionParams.SuccessURL)
	}
	if !strings.Contains(gw.sessionParams.SuccessURL, "envelopeId=env-123") {
		t.Errorf("expected envelope id in success url, got %q", gw.sessionParams.SuccessURL)
	}
	if !strings.Contains(gw.sessionParams.CancelURL, "payment_status=cancelled") {
		t.Errorf("expected cancel status in cancel url, got %q", gw.sessionParams.CancelURL)
	}
	if gw.sessionParams.CustomerEmail != "john@acme.com" {
		t.Errorf("expected customer email carried, got %q", gw.sessionParams.CustomerEmail)
	}
}

func TestVerify_Paid(t *testing.T) {
	gw := &fakeGateway{session: Session{
		ID:              "sess_abc",
		PaymentStatus:   "paid",
		AmountTotal:     5000,
		Currency:        "usd",
		CustomerEmail:   "john@acme.com",
		PaymentIntentID: "pi_1",
	}}
	svc := NewService(gw, "test", "https://example.com")

	result, err := svc.Verify(context.Background(), "sess_abc")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if result.Status != "paid" || result.AmountTotal != 5000 || result.PaymentIntentID != "pi_1" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestVerify_Unpaid(t *testing.T) {
	gw := &fakeGateway{session: Session{ID: "sess_abc", PaymentStatus: "unpaid"}}
	svc := NewService(gw, "test", "https://example.com")

	_, err := svc.Verify(context.Background(), "sess_abc")
	if !errors.Is(err, ErrPaymentNotCompleted) {
		t.Fatalf("expected ErrPaymentNotCompleted, got %v", err)
	}
}

func TestVerify_GatewayErrorPreserved(t *testing.T) {
	gw := &fakeGateway{sessionErr: &ProviderError{Op: "/v1/checkout/sessions/sess_abc", Message: "no such session"}}
	svc := NewService(gw, "test", "https://example.com")

	_, err := svc.Verify(context.Background(), "sess_abc")
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if !strings.Contains(pe.Message, "no such session") {
		t.Fatalf("expected upstream message preserved, got %q", pe.Message)
	}
}

func TestTestConnection_NeverErrors(t *testing.T) {
	svc := NewService(&fakeGateway{livemode: true}, "live", "https://example.com")
	status := svc.TestConnection(context.Background())
	if !status.OK || status.Mode != "live" {
		t.Fatalf("expected live OK status, got %+v", status)
	}

	svc = NewService(&fakeGateway{balanceErr: errors.New("connection refused")}, "test", "https://example.com")
	status = svc.TestConnection(context.Background())
	if status.OK {
		t.Fatal("expected failed status")
	}
	if !strings.Contains(status.Message, "connection refused") {
		t.Fatalf("expected failure message, got %q", status.Message)
	}
}
