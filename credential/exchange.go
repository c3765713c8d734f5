package credential

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	jwtBearerGrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"

	// consentRedirectPath is the fixed redirect target baked into the
	// one-time consent-grant URL surfaced on ConsentRequiredError.
	consentRedirectPath = "/signing/consent"

	exchangeTimeout = 15 * time.Second
)

// ConsentRequiredError signals the integration has never been granted consent
// for the principal. Recovery is a one-time operator action at ConsentURL,
// not an automatic retry.
type ConsentRequiredError struct {
	ConsentURL string
}

func (e *ConsentRequiredError) Error() string {
	return fmt.Sprintf("credential: consent required, grant it at %s", e.ConsentURL)
}

// TokenExchangeError carries the provider's error code and description for
// any token-endpoint failure other than missing consent.
type TokenExchangeError struct {
	Code        string
	Description string
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("credential: token exchange failed: %s: %s", e.Code, e.Description)
}

// ExchangeClient talks to the signing provider's auth server: it swaps a
// signed assertion for an access token and resolves the operating account
// for that token.
type ExchangeClient struct {
	baseURL        string
	integrationKey string
	redirectBase   string
	httpClient     *http.Client
}

// NewExchangeClient builds a client for the given auth server host (no
// scheme). redirectBase is the public base URL used when constructing the
// consent-grant URL.
func NewExchangeClient(authHost, integrationKey, redirectBase string) *ExchangeClient {
	return &ExchangeClient{
		baseURL:        "https://" + authHost,
		integrationKey: integrationKey,
		redirectBase:   strings.TrimRight(redirectBase, "/"),
		httpClient:     &http.Client{Timeout: exchangeTimeout},
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	Error       string `json:"error"`
	ErrorDesc   string `json:"error_description"`
}

// Exchange submits a signed assertion to the token endpoint. A
// consent_required or invalid_grant response maps to ConsentRequiredError;
// every other provider error maps to TokenExchangeError.
func (c *ExchangeClient) Exchange(ctx context.Context, assertion string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", jwtBearerGrantType)
	form.Set("assertion", assertion)

	endpoint := c.baseURL + "/oauth/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("credential: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("credential: token endpoint: %w", err)
	}
	defer resp.Body.Close()

	var body tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("credential: decode token response: %w", err)
	}

	if body.Error != "" || resp.StatusCode != http.StatusOK {
		if body.Error == "consent_required" || body.Error == "invalid_grant" {
			return "", &ConsentRequiredError{ConsentURL: c.consentURL()}
		}
		return "", &TokenExchangeError{Code: body.Error, Description: body.ErrorDesc}
	}
	if body.AccessToken == "" {
		return "", &TokenExchangeError{Code: "empty_token", Description: "provider returned no access token"}
	}

	return body.AccessToken, nil
}

type userInfoResponse struct {
	Accounts []struct {
		AccountID string `json:"account_id"`
		IsDefault bool   `json:"is_default"`
		BaseURI   string `json:"base_uri"`
	} `json:"accounts"`
}

// ResolveAccount queries the user-info endpoint and selects the account
// flagged as default. When no account carries the flag the first entry wins;
// that tie-break is load-bearing and must stay deterministic.
func (c *ExchangeClient) ResolveAccount(ctx context.Context, accessToken string) (Record, error) {
	endpoint := c.baseURL + "/oauth/userinfo"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Record{}, fmt.Errorf("credential: build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Record{}, fmt.Errorf("credential: userinfo endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Record{}, fmt.Errorf("%w: userinfo returned %d", ErrAccountResolution, resp.StatusCode)
	}

	var body userInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Record{}, fmt.Errorf("credential: decode userinfo response: %w", err)
	}
	if len(body.Accounts) == 0 {
		return Record{}, ErrAccountResolution
	}

	selected := body.Accounts[0]
	for _, acct := range body.Accounts {
		if acct.IsDefault {
			selected = acct
			break
		}
	}

	return Record{
		AccessToken: accessToken,
		BasePath:    strings.TrimRight(selected.BaseURI, "/") + "/restapi",
		AccountID:   selected.AccountID,
	}, nil
}

func (c *ExchangeClient) consentURL() string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("scope", signatureScope)
	q.Set("client_id", c.integrationKey)
	q.Set("redirect_uri", c.redirectBase+consentRedirectPath)
	return fmt.Sprintf("%s/oauth/auth?%s", c.baseURL, q.Encode())
}
