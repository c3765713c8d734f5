package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"signflow/completion"
	"signflow/envelope"
	"signflow/esign"
	"signflow/payment"
	"signflow/webhooks"
)

type stubAgreements struct {
	result    envelope.SendResult
	status    esign.EnvelopeStatus
	statusErr error
	lastParty envelope.PartyData
	lastDoc   []byte
}

func (s *stubAgreements) SendAgreement(_ context.Context, party envelope.PartyData, amount int64, doc []byte) envelope.SendResult {
	s.lastParty = party
	s.lastDoc = doc
	return s.result
}

func (s *stubAgreements) GetEnvelopeStatus(_ context.Context, _ string) (esign.EnvelopeStatus, error) {
	return s.status, s.statusErr
}

type stubCompletion struct {
	checkoutURL string
	checkoutErr error
	returnRes   completion.ReturnResult
	returnErr   error
	envelopeID  string
	fallback    completion.QueryFallback
}

func (s *stubCompletion) OnSigningComplete(_ context.Context, envelopeID string, fallback completion.QueryFallback) (string, error) {
	s.envelopeID = envelopeID
	s.fallback = fallback
	return s.checkoutURL, s.checkoutErr
}

func (s *stubCompletion) OnPaymentReturn(_ context.Context, _, _, _ string) (completion.ReturnResult, error) {
	return s.returnRes, s.returnErr
}

type stubPayments struct {
	status payment.ConnectionStatus
}

func (s *stubPayments) TestConnection(_ context.Context) payment.ConnectionStatus {
	return s.status
}

func TestHandleSendAgreement_Success(t *testing.T) {
	agreements := &stubAgreements{result: envelope.SendResult{
		Success:     true,
		EnvelopeID:  "env-123",
		SigningLink: "https://sign.example.com/view/abc",
		Message:     "envelope sent, awaiting signature",
	}}
	server := &Server{agreements: agreements}

	doc := base64.StdEncoding.EncodeToString([]byte("%PDF contract"))
	body := `{"companyName":"Acme Corp","clientName":"John Smith","clientEmail":"john@acme.com","currency":"USD","amountMinorUnits":5000,"contractDocument":"` + doc + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/agreements", strings.NewReader(body))
	rec := httptest.NewRecorder()

	server.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success     bool   `json:"success"`
		EnvelopeID  string `json:"envelopeId"`
		SigningLink string `json:"signingLink"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.EnvelopeID != "env-123" || resp.SigningLink == "" {
		t.Fatalf("unexpected payload %+v", resp)
	}
	if string(agreements.lastDoc) != "%PDF contract" {
		t.Fatalf("expected document decoded before dispatch, got %q", agreements.lastDoc)
	}
}

func TestHandleSendAgreement_FailureIsResultNotPanic(t *testing.T) {
	server := &Server{agreements: &stubAgreements{result: envelope.SendResult{
		Success:    false,
		EnvelopeID: envelope.NoEnvelopeID,
		Message:    "config: missing required fields: integration_key",
	}}}

	req := httptest.NewRequest(http.MethodPost, "/api/agreements", strings.NewReader(`{"contractDocument":""}`))
	rec := httptest.NewRecorder()

	server.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "integration_key") {
		t.Fatalf("expected failure message carried, got %s", rec.Body.String())
	}
}

func TestHandleSendAgreement_BadDocument(t *testing.T) {
	server := &Server{agreements: &stubAgreements{}}

	req := httptest.NewRequest(http.MethodPost, "/api/agreements", strings.NewReader(`{"contractDocument":"not base64!!"}`))
	rec := httptest.NewRecorder()

	server.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleSigningComplete_RedirectsToCheckout(t *testing.T) {
	coord := &stubCompletion{checkoutURL: "https://pay.example.com/c/sess_abc"}
	server := &Server{completion: coord}

	req := httptest.NewRequest(http.MethodGet, "/signing/complete?envelope_id=env-123&company=Acme+Corp&amount=5000&currency=USD&email=john%40acme.com", nil)
	rec := httptest.NewRecorder()

	server.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "https://pay.example.com/c/sess_abc" {
		t.Fatalf("expected checkout redirect, got %q", got)
	}
	if coord.envelopeID != "env-123" {
		t.Fatalf("expected envelope_id accepted as parameter name, got %q", coord.envelopeID)
	}
	if coord.fallback.Amount != 5000 || coord.fallback.CompanyName != "Acme Corp" {
		t.Fatalf("expected query fallback parsed, got %+v", coord.fallback)
	}
}

func TestHandleSigningComplete_MissingEnvelopeID(t *testing.T) {
	server := &Server{completion: &stubCompletion{}}

	req := httptest.NewRequest(http.MethodGet, "/signing/complete", nil)
	rec := httptest.NewRecorder()

	server.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleSigningComplete_ContractDataNotFound(t *testing.T) {
	server := &Server{completion: &stubCompletion{checkoutErr: completion.ErrContractDataNotFound}}

	req := httptest.NewRequest(http.MethodGet, "/signing/complete?envelopeId=env-123", nil)
	rec := httptest.NewRecorder()

	server.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "contact support") {
		t.Fatalf("expected terminal support message, got %s", rec.Body.String())
	}
}

func TestHandlePaymentReturn_Outcomes(t *testing.T) {
	cases := []struct {
		name       string
		result     completion.ReturnResult
		err        error
		wantStatus int
		wantText   string
	}{
		{
			name:       "paid",
			result:     completion.ReturnResult{Outcome: completion.OutcomePaid, Verified: payment.VerifyResult{PaymentIntentID: "pi_1"}},
			wantStatus: http.StatusOK,
			wantText:   "pi_1",
		},
		{
			name:       "cancelled",
			result:     completion.ReturnResult{Outcome: completion.OutcomeCancelled},
			wantStatus: http.StatusOK,
			wantText:   "cancelled",
		},
		{
			name:       "confirmation failed",
			result:     completion.ReturnResult{Outcome: completion.OutcomeConfirmationFailed, FailureReason: "session not paid"},
			wantStatus: http.StatusBadGateway,
			wantText:   "could not be confirmed",
		},
		{
			name:       "missing data",
			err:        completion.ErrMissingPaymentData,
			wantStatus: http.StatusBadRequest,
			wantText:   "contact support",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := &Server{completion: &stubCompletion{returnRes: tc.result, returnErr: tc.err}}

			req := httptest.NewRequest(http.MethodGet, "/payment/return?payment_status=success&session_id=sess_abc&envelopeId=env-123", nil)
			rec := httptest.NewRecorder()

			server.routes().ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tc.wantText) {
				t.Fatalf("expected %q in body, got %s", tc.wantText, rec.Body.String())
			}
		})
	}
}

func TestHandlePaymentTest(t *testing.T) {
	server := &Server{payments: &stubPayments{status: payment.ConnectionStatus{OK: true, Mode: "test", Message: "gateway reachable"}}}

	req := httptest.NewRequest(http.MethodGet, "/api/payment/test", nil)
	rec := httptest.NewRecorder()

	server.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		OK   bool   `json:"ok"`
		Mode string `json:"mode"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.OK || resp.Mode != "test" {
		t.Fatalf("unexpected payload %+v", resp)
	}
}

func TestHandleEsignWebhook(t *testing.T) {
	secret := "whsec_test"
	server := &Server{verifier: webhooks.NewVerifier(secret)}

	body := `{"id":"evt_1","type":"envelope.completed"}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/esign", strings.NewReader(body))
	req.Header.Set(webhooks.SignatureHeader, webhooks.Sign(secret, []byte(body), time.Now()))
	rec := httptest.NewRecorder()

	server.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// Unsigned request is rejected.
	req = httptest.NewRequest(http.MethodPost, "/webhooks/esign", strings.NewReader(body))
	rec = httptest.NewRecorder()
	server.routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unsigned webhook, got %d", rec.Code)
	}
}

func TestWebhookRouteDisabledWithoutSecret(t *testing.T) {
	server := &Server{}

	req := httptest.NewRequest(http.MethodPost, "/webhooks/esign", strings.NewReader("{}"))
	rec := httptest.NewRecorder()

	server.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound && rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected webhook route absent, got %d", rec.Code)
	}
}
