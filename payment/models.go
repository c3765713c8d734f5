package payment

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAmount signals a non-positive checkout amount. No remote call
	// is made for an invalid amount.
	ErrInvalidAmount = errors.New("payment: amount must be greater than zero")
	// ErrInvalidCurrency signals a currency code that is not three letters.
	ErrInvalidCurrency = errors.New("payment: currency must be a 3-letter ISO code")
	// ErrPaymentNotCompleted signals the remote session is not in paid state.
	ErrPaymentNotCompleted = errors.New("payment: session not paid")
)

// ProviderError wraps a gateway failure, preserving the upstream message.
type ProviderError struct {
	Op      string
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("payment: %s: %s", e.Op, e.Message)
}

// Session is the gateway's checkout session projection used by this core.
// Sessions are never persisted locally; verification always re-queries the
// gateway by session ID.
type Session struct {
	ID              string
	URL             string
	PaymentStatus   string
	AmountTotal     int64
	Currency        string
	CustomerEmail   string
	PaymentIntentID string
}

// VerifyResult is the normalized outcome of a successful verification.
type VerifyResult struct {
	Status          string
	AmountTotal     int64
	Currency        string
	CustomerEmail   string
	PaymentIntentID string
}

// ConnectionStatus reports the reachability probe. TestConnection never
// returns an error; failures land in Message with OK false.
type ConnectionStatus struct {
	OK      bool
	Mode    string
	Message string
}
