package credential

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// assertionLifetime is the iat→exp window of a signed assertion. The provider
// rejects assertions whose lifetime exceeds one hour.
const assertionLifetime = time.Hour

// signatureScope is the permission set requested with every assertion.
const signatureScope = "signature impersonation"

// AssertionBuilder constructs RS256-signed bearer assertions for the
// JWT-bearer grant. Assertions are ephemeral: one is generated for every
// exchange attempt and never reused.
type AssertionBuilder struct {
	keys KeyProvider
	now  func() time.Time
}

// NewAssertionBuilder creates a builder backed by the given key provider.
func NewAssertionBuilder(keys KeyProvider) *AssertionBuilder {
	return &AssertionBuilder{
		keys: keys,
		now:  time.Now,
	}
}

// Build signs a bearer assertion impersonating principal on behalf of the
// integration identified by integrationKey, addressed to audience (the auth
// server host). The raw assertion must not be logged by callers.
func (b *AssertionBuilder) Build(ctx context.Context, principal, integrationKey, audience string) (string, error) {
	key, err := b.keys.PrivateKey(ctx, principal)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrKeyUnavailable, err)
	}
	if key == nil {
		return "", ErrKeyUnavailable
	}

	issuedAt := b.now()
	claims := jwt.MapClaims{
		"iss":   integrationKey,
		"sub":   principal,
		"iat":   issuedAt.Unix(),
		"exp":   issuedAt.Add(assertionLifetime).Unix(),
		"aud":   audience,
		"scope": signatureScope,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigningUnavailable, err)
	}

	return signed, nil
}
