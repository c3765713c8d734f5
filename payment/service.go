package payment

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// Gateway abstracts the remote payment provider for the service.
type Gateway interface {
	CreateProduct(ctx context.Context, name string, metadata map[string]string) (string, error)
	CreatePrice(ctx context.Context, productID string, amountMinorUnits int64, currencyLower string) (string, error)
	CreateSession(ctx context.Context, params SessionParams) (Session, error)
	GetSession(ctx context.Context, sessionID string) (Session, error)
	GetBalance(ctx context.Context) (bool, error)
}

// Service creates and verifies checkouts priced from envelope metadata. Mode
// and key pair are resolved once at construction; switching modes requires a
// new instance.
type Service struct {
	gateway       Gateway
	mode          string
	publicBaseURL string
}

// NewService wires a payment service. mode is "test" or "live" and is only
// recorded in metadata; the secret key held by the gateway client is what
// selects gateway behavior.
func NewService(gateway Gateway, mode, publicBaseURL string) *Service {
	return &Service{
		gateway:       gateway,
		mode:          mode,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

// CreateCheckout mints a checkout URL for one signed agreement. The product
// and price are scoped to this envelope alone and tagged with its ID so
// gateway records stay auditable.
func (s *Service) CreateCheckout(ctx context.Context, companyName string, amountMinorUnits int64, currencyCode, clientEmail, envelopeID string) (string, error) {
	if amountMinorUnits <= 0 {
		return "", ErrInvalidAmount
	}

	display := strings.ToUpper(strings.TrimSpace(currencyCode))
	if !currencyPattern.MatchString(display) {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, currencyCode)
	}

	metadata := map[string]string{
		"envelope_id": envelopeID,
		"mode":        s.mode,
	}

	productID, err := s.gateway.CreateProduct(ctx, "Agreement with "+companyName, metadata)
	if err != nil {
		return "", err
	}

	priceID, err := s.gateway.CreatePrice(ctx, productID, amountMinorUnits, strings.ToLower(display))
	if err != nil {
		return "", err
	}

	session, err := s.gateway.CreateSession(ctx, SessionParams{
		PriceID:       priceID,
		CustomerEmail: clientEmail,
		SuccessURL:    s.publicBaseURL + "/payment/return?payment_status=success&session_id={CHECKOUT_SESSION_ID}&envelopeId=" + envelopeID,
		CancelURL:     s.publicBaseURL + "/payment/return?payment_status=cancelled&envelopeId=" + envelopeID,
		Metadata:      metadata,
	})
	if err != nil {
		return "", err
	}

	return session.URL, nil
}

// Verify re-queries the gateway for a session and fails unless it is paid.
func (s *Service) Verify(ctx context.Context, sessionID string) (VerifyResult, error) {
	session, err := s.gateway.GetSession(ctx, sessionID)
	if err != nil {
		return VerifyResult{}, err
	}

	if session.PaymentStatus != "paid" {
		return VerifyResult{}, fmt.Errorf("%w: status %q", ErrPaymentNotCompleted, session.PaymentStatus)
	}

	return VerifyResult{
		Status:          session.PaymentStatus,
		AmountTotal:     session.AmountTotal,
		Currency:        session.Currency,
		CustomerEmail:   session.CustomerEmail,
		PaymentIntentID: session.PaymentIntentID,
	}, nil
}

// TestConnection probes the gateway with a balance read. It never returns an
// error; failures are reported in the status record.
func (s *Service) TestConnection(ctx context.Context) ConnectionStatus {
	livemode, err := s.gateway.GetBalance(ctx)
	if err != nil {
		return ConnectionStatus{OK: false, Mode: s.mode, Message: err.Error()}
	}

	mode := "test"
	if livemode {
		mode = "live"
	}
	return ConnectionStatus{OK: true, Mode: mode, Message: "gateway reachable"}
}
