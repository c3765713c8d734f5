package config

import (
	"fmt"
	"strings"
)

// GatewayMode selects which payment gateway key pair a Service instance uses.
type GatewayMode string

const (
	GatewayModeTest GatewayMode = "test"
	GatewayModeLive GatewayMode = "live"
)

// Config carries every identifier the workflow needs. It is built once at
// startup and passed by reference into each component; no component reads
// process state after construction.
type Config struct {
	// Signing provider integration identity.
	IntegrationKey string
	PrincipalID    string
	AuthServerHost string

	// Internal counter-signer notified after the client signs.
	ApproverName  string
	ApproverEmail string

	// Payment gateway.
	GatewayAccountID string
	GatewayMode      GatewayMode
	TestSecretKey    string
	LiveSecretKey    string

	// Public base URL the providers redirect back to, e.g. "https://example.com".
	PublicBaseURL string

	// Optional shared secret for verifying provider webhooks. Empty disables
	// the webhook route; the redirect flow works without it.
	WebhookSecret string
}

// MissingFieldsError reports every required field absent from a Config.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("config: missing required fields: %s", strings.Join(e.Fields, ", "))
}

// Validate checks presence of every required identifier and aggregates all
// missing field names into a single error rather than failing on the first.
func (c *Config) Validate() error {
	var missing []string

	required := []struct {
		name  string
		value string
	}{
		{"integration_key", c.IntegrationKey},
		{"principal_id", c.PrincipalID},
		{"auth_server_host", c.AuthServerHost},
		{"approver_name", c.ApproverName},
		{"approver_email", c.ApproverEmail},
		{"gateway_account_id", c.GatewayAccountID},
		{"public_base_url", c.PublicBaseURL},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}

	switch c.GatewayMode {
	case GatewayModeLive:
		if strings.TrimSpace(c.LiveSecretKey) == "" {
			missing = append(missing, "live_secret_key")
		}
	default:
		if strings.TrimSpace(c.TestSecretKey) == "" {
			missing = append(missing, "test_secret_key")
		}
	}

	if len(missing) > 0 {
		return &MissingFieldsError{Fields: missing}
	}
	return nil
}

// SecretKey returns the gateway secret for the configured mode.
func (c *Config) SecretKey() string {
	if c.GatewayMode == GatewayModeLive {
		return c.LiveSecretKey
	}
	return c.TestSecretKey
}
