package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"signflow/completion"
	"signflow/envelope"
	"signflow/esign"
	"signflow/httpx"
	"signflow/payment"
	"signflow/webhooks"
)

// envelopeIDParams are the query parameter names accepted for the envelope
// identifier on the signing-completion redirect.
var envelopeIDParams = []string{"envelopeId", "envelope_id", "envelopeID"}

type agreementService interface {
	SendAgreement(ctx context.Context, party envelope.PartyData, amountMinorUnits int64, contractDocument []byte) envelope.SendResult
	GetEnvelopeStatus(ctx context.Context, envelopeID string) (esign.EnvelopeStatus, error)
}

type completionService interface {
	OnSigningComplete(ctx context.Context, envelopeID string, fallback completion.QueryFallback) (string, error)
	OnPaymentReturn(ctx context.Context, sessionID, status, envelopeID string) (completion.ReturnResult, error)
}

type connectionTester interface {
	TestConnection(ctx context.Context) payment.ConnectionStatus
}

// Server wires the HTTP surface over the workflow services.
type Server struct {
	agreements agreementService
	completion completionService
	payments   connectionTester
	verifier   *webhooks.Verifier
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Post("/api/agreements", s.handleSendAgreement)
	r.Get("/api/agreements/{envelopeID}/status", s.handleEnvelopeStatus)
	r.Get("/api/payment/test", s.handlePaymentTest)

	r.Get("/signing/complete", s.handleSigningComplete)
	r.Get("/payment/return", s.handlePaymentReturn)

	if s.verifier != nil {
		r.Post("/webhooks/esign", s.handleEsignWebhook)
	}

	return r
}

type sendAgreementRequest struct {
	CompanyName      string `json:"companyName"`
	ClientName       string `json:"clientName"`
	ClientEmail      string `json:"clientEmail"`
	Currency         string `json:"currency"`
	AmountMinorUnits int64  `json:"amountMinorUnits"`
	ContractBase64   string `json:"contractDocument"`
}

func (s *Server) handleSendAgreement(w http.ResponseWriter, r *http.Request) {
	var req sendAgreementRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "BAD_JSON", err.Error())
		return
	}

	document, err := base64.StdEncoding.DecodeString(req.ContractBase64)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "BAD_DOCUMENT", "contractDocument must be base64-encoded")
		return
	}

	party := envelope.PartyData{
		CompanyName: req.CompanyName,
		ClientName:  req.ClientName,
		ClientEmail: req.ClientEmail,
		Currency:    req.Currency,
	}

	result := s.agreements.SendAgreement(r.Context(), party, req.AmountMinorUnits, document)
	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	httpx.WriteJSON(w, status, map[string]any{
		"request_id":  httpx.NewRequestID(),
		"success":     result.Success,
		"envelopeId":  result.EnvelopeID,
		"signingLink": result.SigningLink,
		"message":     result.Message,
	})
}

func (s *Server) handleEnvelopeStatus(w http.ResponseWriter, r *http.Request) {
	envelopeID := chi.URLParam(r, "envelopeID")

	status, err := s.agreements.GetEnvelopeStatus(r.Context(), envelopeID)
	if err != nil {
		httpx.WriteError(w, http.StatusBadGateway, "STATUS_QUERY_FAILED", err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"request_id":    httpx.NewRequestID(),
		"envelopeId":    envelopeID,
		"status":        status.Status,
		"createdDate":   status.CreatedDate,
		"sentDate":      status.SentDate,
		"completedDate": status.CompletedDate,
	})
}

func (s *Server) handlePaymentTest(w http.ResponseWriter, r *http.Request) {
	status := s.payments.TestConnection(r.Context())
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"request_id": httpx.NewRequestID(),
		"ok":         status.OK,
		"mode":       status.Mode,
		"message":    status.Message,
	})
}

func (s *Server) handleSigningComplete(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var envelopeID string
	for _, name := range envelopeIDParams {
		if v := q.Get(name); v != "" {
			envelopeID = v
			break
		}
	}
	if envelopeID == "" {
		writeTerminalPage(w, http.StatusBadRequest, "Missing envelope reference. Please contact support.")
		return
	}

	amount, _ := strconv.ParseInt(q.Get("amount"), 10, 64)
	fallback := completion.QueryFallback{
		CompanyName: q.Get("company"),
		Amount:      amount,
		Currency:    q.Get("currency"),
		ClientEmail: q.Get("email"),
	}

	checkoutURL, err := s.completion.OnSigningComplete(r.Context(), envelopeID, fallback)
	if err != nil {
		if errors.Is(err, completion.ErrContractDataNotFound) {
			writeTerminalPage(w, http.StatusNotFound, "We could not find your contract data. Please contact support.")
			return
		}
		writeTerminalPage(w, http.StatusBadGateway, "Payment could not be set up: "+err.Error())
		return
	}

	http.Redirect(w, r, checkoutURL, http.StatusSeeOther)
}

func (s *Server) handlePaymentReturn(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sessionID := q.Get("session_id")
	status := q.Get("payment_status")
	envelopeID := q.Get("envelopeId")

	result, err := s.completion.OnPaymentReturn(r.Context(), sessionID, status, envelopeID)
	if err != nil {
		writeTerminalPage(w, http.StatusBadRequest, "Missing payment data. Please contact support.")
		return
	}

	switch result.Outcome {
	case completion.OutcomePaid:
		writeTerminalPage(w, http.StatusOK, fmt.Sprintf("Payment received. Reference: %s. Thank you!", result.Verified.PaymentIntentID))
	case completion.OutcomeCancelled:
		writeTerminalPage(w, http.StatusOK, "Payment cancelled. You can restart checkout from the signing link.")
	case completion.OutcomeConfirmationFailed:
		writeTerminalPage(w, http.StatusBadGateway, "Payment could not be confirmed: "+result.FailureReason)
	}
}

func (s *Server) handleEsignWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "BAD_BODY", err.Error())
		return
	}

	result := s.verifier.Verify(r.Header, body, time.Now())
	if !result.Valid {
		httpx.WriteError(w, http.StatusUnauthorized, "INVALID_SIGNATURE", "webhook signature verification failed")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"request_id": httpx.NewRequestID(),
		"received":   true,
		"event_id":   result.ProviderEventID,
		"event_type": result.EventType,
	})
}

func writeTerminalPage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("content-type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, "<!doctype html><html><body><p>%s</p></body></html>", html.EscapeString(message))
}
