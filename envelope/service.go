package envelope

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"signflow/config"
	"signflow/credential"
	"signflow/esign"
	"signflow/handoff"
)

// CredentialGetter yields a live delegated-access credential for a principal.
type CredentialGetter interface {
	GetCredential(ctx context.Context, principal string) (credential.Record, error)
}

// SignClient covers the provider operations the orchestrator uses.
type SignClient interface {
	CreateEnvelope(ctx context.Context, def esign.EnvelopeDefinition) (esign.CreateEnvelopeResult, error)
	CreateRecipientView(ctx context.Context, envelopeID string, req esign.RecipientViewRequest) (string, error)
	GetEnvelope(ctx context.Context, envelopeID string) (esign.EnvelopeStatus, error)
}

// Service owns the envelope lifecycle: it builds the agreement payload,
// submits it, persists the payment handoff and mints the embedded signing
// view.
type Service struct {
	cfg       *config.Config
	creds     CredentialGetter
	store     handoff.Store
	newClient func(basePath, accountID, accessToken string) SignClient

	idGenerator func() string
}

// NewService wires an envelope orchestrator. The sign-client factory is
// called per send with the resolved credential's base path.
func NewService(cfg *config.Config, creds CredentialGetter, store handoff.Store) *Service {
	return &Service{
		cfg:   cfg,
		creds: creds,
		store: store,
		newClient: func(basePath, accountID, accessToken string) SignClient {
			return esign.New(basePath, accountID, accessToken)
		},
		idGenerator: func() string { return uuid.NewString() },
	}
}

// SendAgreement runs the full send flow. Every failure is reported as a
// result value; nothing is thrown past this boundary.
func (s *Service) SendAgreement(ctx context.Context, party PartyData, amountMinorUnits int64, contractDocument []byte) SendResult {
	if err := s.cfg.Validate(); err != nil {
		// Configuration problems abort before any credential work.
		return failure(NoEnvelopeID, err.Error())
	}

	party, err := sanitizeParty(party)
	if err != nil {
		return failure(NoEnvelopeID, err.Error())
	}
	if amountMinorUnits <= 0 {
		return failure(NoEnvelopeID, fmt.Sprintf("envelope: payment amount %d must be positive", amountMinorUnits))
	}
	if len(contractDocument) == 0 {
		return failure(NoEnvelopeID, "envelope: contract document is empty")
	}

	cred, err := s.creds.GetCredential(ctx, s.cfg.PrincipalID)
	if err != nil {
		return failure(NoEnvelopeID, authFailureMessage(err))
	}
	client := s.newClient(cred.BasePath, cred.AccountID, cred.AccessToken)

	clientUserID := s.idGenerator()
	def := buildDefinition(party, contractDocument, s.cfg.ApproverName, s.cfg.ApproverEmail, clientUserID)

	created, err := client.CreateEnvelope(ctx, def)
	if err != nil {
		return failure(NoEnvelopeID, fmt.Sprintf("%v: %v", ErrEnvelopeSend, err))
	}
	if created.EnvelopeID == "" || created.ErrorCode != "" {
		id := created.EnvelopeID
		if id == "" {
			id = NoEnvelopeID
		}
		return failure(id, fmt.Sprintf("%v: provider error %q: %s", ErrEnvelopeSend, created.ErrorCode, created.Message))
	}

	rec := handoff.Record{
		CompanyName: party.CompanyName,
		Amount:      amountMinorUnits,
		Currency:    party.Currency,
		ClientEmail: party.ClientEmail,
		ClientName:  party.ClientName,
	}
	if err := s.store.Put(ctx, created.EnvelopeID, rec, handoff.DefaultTTL); err != nil {
		return failure(created.EnvelopeID, fmt.Sprintf("envelope: store handoff for %s: %v", created.EnvelopeID, err))
	}

	// The view request must reuse the clientUserId baked into the envelope
	// or the provider refuses to issue an embedded view.
	signingLink, err := client.CreateRecipientView(ctx, created.EnvelopeID, esign.RecipientViewRequest{
		ReturnURL:            s.cfg.PublicBaseURL + "/signing/complete?envelopeId=" + created.EnvelopeID,
		AuthenticationMethod: "none",
		Email:                party.ClientEmail,
		UserName:             party.ClientName,
		ClientUserID:         clientUserID,
	})
	if err != nil {
		return failure(created.EnvelopeID, fmt.Sprintf("%v: %v", ErrViewGeneration, err))
	}

	return SendResult{
		Success:     true,
		SigningLink: signingLink,
		EnvelopeID:  created.EnvelopeID,
		Message:     "envelope sent, awaiting signature",
	}
}

// GetEnvelopeStatus is a read-only status query. It needs a fresh credential
// and is safe to poll.
func (s *Service) GetEnvelopeStatus(ctx context.Context, envelopeID string) (esign.EnvelopeStatus, error) {
	if envelopeID == "" || envelopeID == NoEnvelopeID {
		return esign.EnvelopeStatus{}, fmt.Errorf("envelope: missing envelope id")
	}

	cred, err := s.creds.GetCredential(ctx, s.cfg.PrincipalID)
	if err != nil {
		return esign.EnvelopeStatus{}, fmt.Errorf("envelope: authenticate status query: %w", err)
	}

	return s.newClient(cred.BasePath, cred.AccountID, cred.AccessToken).GetEnvelope(ctx, envelopeID)
}

func failure(envelopeID, message string) SendResult {
	return SendResult{
		Success:    false,
		EnvelopeID: envelopeID,
		Message:    message,
	}
}

// authFailureMessage preserves the consent detail when present so operators
// see the actionable grant URL instead of a generic auth failure.
func authFailureMessage(err error) string {
	var consent *credential.ConsentRequiredError
	if errors.As(err, &consent) {
		return fmt.Sprintf("envelope: authentication failed: consent required, grant it at %s", consent.ConsentURL)
	}
	return fmt.Sprintf("envelope: authentication failed: %v", err)
}
