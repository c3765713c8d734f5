// Package webhooks verifies provider-signed callbacks. The redirect flow is
// the baseline contract; this verification is an optional hardening layer
// mounted only when a shared secret is configured.
package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// SignatureHeader carries "t=<unix>,v1=<hex hmac>" pairs over the
	// timestamped-HMAC scheme.
	SignatureHeader = "X-Signature"

	// DefaultTolerance bounds the accepted clock skew between the provider's
	// timestamp and receipt.
	DefaultTolerance = 300 * time.Second
)

// Result reports a verification attempt. Invalid signatures are a Result,
// not an error; errors are reserved for unusable inputs.
type Result struct {
	Valid           bool
	ProviderEventID string
	EventType       string
	SkewSeconds     int
}

// Verifier checks the timestamped HMAC-SHA256 signature of a raw webhook
// body against a shared secret.
type Verifier struct {
	secret    string
	tolerance time.Duration
}

// NewVerifier builds a verifier for the given shared secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: secret, tolerance: DefaultTolerance}
}

// NewVerifierWithTolerance builds a verifier with an explicit skew bound.
func NewVerifierWithTolerance(secret string, tolerance time.Duration) *Verifier {
	return &Verifier{secret: secret, tolerance: tolerance}
}

// Verify checks rawBody against the signature header. The signed payload is
// "<timestamp>.<rawBody>"; comparison is constant-time, and a timestamp
// outside the tolerance window invalidates an otherwise correct signature.
func (v *Verifier) Verify(headers http.Header, rawBody []byte, receivedAt time.Time) Result {
	if strings.TrimSpace(v.secret) == "" {
		return Result{}
	}

	timestamp, signatures := parseSignatureHeader(headers.Values(SignatureHeader))
	timestampUnix, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil || timestampUnix <= 0 || len(signatures) == 0 {
		return Result{}
	}

	skew := int(receivedAt.UTC().Unix() - timestampUnix)
	if skew < 0 {
		skew = -skew
	}
	result := Result{SkewSeconds: skew}

	mac := hmac.New(sha256.New, []byte(v.secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte{'.'})
	mac.Write(rawBody)
	expected := mac.Sum(nil)

	matched := false
	for _, sigHex := range signatures {
		decoded, err := hex.DecodeString(sigHex)
		if err != nil {
			continue
		}
		if hmac.Equal(expected, decoded) {
			matched = true
			break
		}
	}
	if !matched {
		return result
	}
	if v.tolerance > 0 && time.Duration(skew)*time.Second > v.tolerance {
		return result
	}

	result.Valid = true
	var evt struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	}
	if err := json.Unmarshal(rawBody, &evt); err == nil {
		result.ProviderEventID = strings.TrimSpace(evt.ID)
		result.EventType = strings.TrimSpace(evt.Type)
	}
	return result
}

// Sign produces the header value for a body, exposed so tests and outbound
// callers can build valid signatures.
func Sign(secret string, body []byte, at time.Time) string {
	timestamp := strconv.FormatInt(at.UTC().Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte{'.'})
	mac.Write(body)
	return "t=" + timestamp + ",v1=" + hex.EncodeToString(mac.Sum(nil))
}

func parseSignatureHeader(values []string) (timestamp string, v1 []string) {
	joined := strings.TrimSpace(strings.Join(values, ","))
	if joined == "" {
		return "", nil
	}
	for _, part := range strings.Split(joined, ",") {
		p := strings.TrimSpace(part)
		switch {
		case strings.HasPrefix(p, "t="):
			timestamp = strings.TrimPrefix(p, "t=")
		case strings.HasPrefix(p, "v1="):
			v1 = append(v1, strings.TrimPrefix(p, "v1="))
		}
	}
	return timestamp, v1
}
