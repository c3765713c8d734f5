// Package esign is a thin typed client for the e-signature provider's REST
// API. It covers only the operations the workflow needs: envelope creation,
// embedded recipient views and status reads.
package esign

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	// Envelope payloads carry whole documents; submission gets a generous
	// deadline while metadata reads stay short.
	submitTimeout   = 190 * time.Second
	metadataTimeout = 15 * time.Second
)

// Client issues requests against a resolved account base path using a
// delegated access token. One Client per credential; construction is cheap.
type Client struct {
	basePath    string
	accountID   string
	accessToken string
	submit      *http.Client
	metadata    *http.Client
}

// New builds a client from a resolved credential.
func New(basePath, accountID, accessToken string) *Client {
	return &Client{
		basePath:    strings.TrimRight(basePath, "/"),
		accountID:   accountID,
		accessToken: accessToken,
		submit:      &http.Client{Timeout: submitTimeout},
		metadata:    &http.Client{Timeout: metadataTimeout},
	}
}

// Document is one file attached to an envelope, content base64-encoded.
type Document struct {
	DocumentBase64 string `json:"documentBase64"`
	Name           string `json:"name"`
	FileExtension  string `json:"fileExtension"`
	DocumentID     string `json:"documentId"`
}

// AnchorTab pins a tab to a literal marker string inside the document.
type AnchorTab struct {
	AnchorString  string `json:"anchorString"`
	AnchorUnits   string `json:"anchorUnits,omitempty"`
	AnchorXOffset string `json:"anchorXOffset,omitempty"`
	AnchorYOffset string `json:"anchorYOffset,omitempty"`
}

// Tabs groups the tab types the workflow places.
type Tabs struct {
	SignHereTabs   []AnchorTab `json:"signHereTabs,omitempty"`
	DateSignedTabs []AnchorTab `json:"dateSignedTabs,omitempty"`
}

// Signer is one recipient in the envelope's signing route.
type Signer struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	RecipientID  string `json:"recipientId"`
	RoutingOrder string `json:"routingOrder"`
	ClientUserID string `json:"clientUserId,omitempty"`
	Tabs         *Tabs  `json:"tabs,omitempty"`
}

// EnvelopeDefinition is the creation payload.
type EnvelopeDefinition struct {
	EmailSubject string     `json:"emailSubject"`
	Documents    []Document `json:"documents"`
	Recipients   struct {
		Signers []Signer `json:"signers"`
	} `json:"recipients"`
	Status string `json:"status"`
}

// CreateEnvelopeResult is the provider's creation response.
type CreateEnvelopeResult struct {
	EnvelopeID string `json:"envelopeId"`
	Status     string `json:"status"`
	ErrorCode  string `json:"errorCode"`
	Message    string `json:"message"`
}

// RecipientViewRequest asks for an embedded signing view. ClientUserID must
// match the value used when the envelope was built or the provider refuses
// to issue the view.
type RecipientViewRequest struct {
	ReturnURL            string `json:"returnUrl"`
	AuthenticationMethod string `json:"authenticationMethod"`
	Email                string `json:"email"`
	UserName             string `json:"userName"`
	ClientUserID         string `json:"clientUserId"`
}

// EnvelopeStatus is the read-only status projection of an envelope.
type EnvelopeStatus struct {
	Status        string `json:"status"`
	CreatedDate   string `json:"createdDateTime"`
	SentDate      string `json:"sentDateTime"`
	CompletedDate string `json:"completedDateTime"`
}

// CreateEnvelope submits an envelope definition and returns the provider's
// response, including any provider-side error code.
func (c *Client) CreateEnvelope(ctx context.Context, def EnvelopeDefinition) (CreateEnvelopeResult, error) {
	var result CreateEnvelopeResult
	path := fmt.Sprintf("%s/v2.1/accounts/%s/envelopes", c.basePath, c.accountID)
	if err := c.post(ctx, c.submit, path, def, &result); err != nil {
		return CreateEnvelopeResult{}, fmt.Errorf("esign: create envelope: %w", err)
	}
	return result, nil
}

// CreateRecipientView mints an embedded signing URL for one recipient of an
// existing envelope.
func (c *Client) CreateRecipientView(ctx context.Context, envelopeID string, req RecipientViewRequest) (string, error) {
	var result struct {
		URL string `json:"url"`
	}
	path := fmt.Sprintf("%s/v2.1/accounts/%s/envelopes/%s/views/recipient", c.basePath, c.accountID, envelopeID)
	if err := c.post(ctx, c.metadata, path, req, &result); err != nil {
		return "", fmt.Errorf("esign: create recipient view: %w", err)
	}
	if result.URL == "" {
		return "", fmt.Errorf("esign: create recipient view: provider returned no url")
	}
	return result.URL, nil
}

// GetEnvelope reads envelope status. Safe to poll.
func (c *Client) GetEnvelope(ctx context.Context, envelopeID string) (EnvelopeStatus, error) {
	path := fmt.Sprintf("%s/v2.1/accounts/%s/envelopes/%s", c.basePath, c.accountID, envelopeID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return EnvelopeStatus{}, fmt.Errorf("esign: get envelope: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.metadata.Do(httpReq)
	if err != nil {
		return EnvelopeStatus{}, fmt.Errorf("esign: get envelope: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return EnvelopeStatus{}, fmt.Errorf("esign: get envelope: provider returned %d", resp.StatusCode)
	}

	var status EnvelopeStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return EnvelopeStatus{}, fmt.Errorf("esign: decode envelope status: %w", err)
	}
	return status, nil
}

func (c *Client) post(ctx context.Context, client *http.Client, path string, payload, out any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.accessToken)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Provider errors arrive both as non-2xx statuses and as errorCode
	// fields in 2xx bodies; decode either way and let callers inspect.
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response (%d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= 300 {
		if r, ok := out.(*CreateEnvelopeResult); ok && r.Message != "" {
			return fmt.Errorf("provider returned %d: %s: %s", resp.StatusCode, r.ErrorCode, r.Message)
		}
		return fmt.Errorf("provider returned %d", resp.StatusCode)
	}
	return nil
}
