// Package completion receives the two inbound redirects of the workflow: the
// signing provider's return after the counterparty signs, and the payment
// gateway's return after checkout.
package completion

import (
	"context"
	"errors"
	"fmt"

	"signflow/handoff"
	"signflow/payment"
)

var (
	// ErrContractDataNotFound signals neither the handoff store nor the
	// redirect's own query parameters yielded usable payment terms. Terminal;
	// the user must contact support.
	ErrContractDataNotFound = errors.New("completion: contract data not found")
	// ErrMissingPaymentData signals a payment return with neither a success
	// session nor an explicit cancellation. Terminal, not retryable.
	ErrMissingPaymentData = errors.New("completion: missing payment data")
)

// QueryFallback carries payment parameters reconstructed from the signing
// redirect's query string, used when the handoff record has expired.
type QueryFallback struct {
	CompanyName string
	Amount      int64
	Currency    string
	ClientEmail string
}

// Payments is the checkout surface the coordinator drives.
type Payments interface {
	CreateCheckout(ctx context.Context, companyName string, amountMinorUnits int64, currencyCode, clientEmail, envelopeID string) (string, error)
	Verify(ctx context.Context, sessionID string) (payment.VerifyResult, error)
}

// Outcome classifies a payment return.
type Outcome string

const (
	OutcomePaid      Outcome = "paid"
	OutcomeCancelled Outcome = "cancelled"
	// OutcomeConfirmationFailed means the payer came back with a success
	// status but the gateway could not confirm payment. Distinct from a user
	// cancellation.
	OutcomeConfirmationFailed Outcome = "confirmation_failed"
)

// ReturnResult is the classified payment return.
type ReturnResult struct {
	Outcome       Outcome
	Verified      payment.VerifyResult
	FailureReason string
}

// Coordinator resolves handoff data after signing and classifies payment
// returns.
type Coordinator struct {
	store    handoff.Store
	payments Payments
}

// NewCoordinator wires a coordinator from its collaborators.
func NewCoordinator(store handoff.Store, payments Payments) *Coordinator {
	return &Coordinator{store: store, payments: payments}
}

// OnSigningComplete resolves payment terms for a signed envelope and mints
// the checkout URL to redirect the signer to. Handoff re-reads are
// idempotent; a store miss falls back to the redirect's own parameters.
func (c *Coordinator) OnSigningComplete(ctx context.Context, envelopeID string, fallback QueryFallback) (string, error) {
	rec, ok, err := c.store.Get(ctx, envelopeID)
	if err != nil {
		return "", fmt.Errorf("completion: read handoff for %s: %w", envelopeID, err)
	}
	if !ok {
		rec = handoff.Record{
			CompanyName: fallback.CompanyName,
			Amount:      fallback.Amount,
			Currency:    fallback.Currency,
			ClientEmail: fallback.ClientEmail,
		}
	}

	if rec.Amount <= 0 || rec.CompanyName == "" {
		return "", fmt.Errorf("%w: envelope %s", ErrContractDataNotFound, envelopeID)
	}

	checkoutURL, err := c.payments.CreateCheckout(ctx, rec.CompanyName, rec.Amount, rec.Currency, rec.ClientEmail, envelopeID)
	if err != nil {
		return "", fmt.Errorf("completion: create checkout for %s: %w", envelopeID, err)
	}

	return checkoutURL, nil
}

// OnPaymentReturn classifies the gateway's redirect. Success claims are
// always re-verified against the gateway; an unverifiable success is a
// confirmation failure, never silently treated as a cancel.
func (c *Coordinator) OnPaymentReturn(ctx context.Context, sessionID, status, envelopeID string) (ReturnResult, error) {
	switch {
	case status == "cancelled":
		return ReturnResult{Outcome: OutcomeCancelled}, nil

	case status == "success" && sessionID != "":
		verified, err := c.payments.Verify(ctx, sessionID)
		if err != nil {
			return ReturnResult{
				Outcome:       OutcomeConfirmationFailed,
				FailureReason: err.Error(),
			}, nil
		}
		return ReturnResult{Outcome: OutcomePaid, Verified: verified}, nil

	default:
		return ReturnResult{}, fmt.Errorf("%w: status %q, session %q", ErrMissingPaymentData, status, sessionID)
	}
}
