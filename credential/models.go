package credential

import (
	"context"
	"crypto/rsa"
	"errors"
	"time"
)

var (
	// ErrSigningUnavailable signals the RSA-SHA256 signing primitive could not
	// be used with the supplied key.
	ErrSigningUnavailable = errors.New("credential: rsa-sha256 signing unavailable")
	// ErrKeyUnavailable signals the key provider could not supply a private key.
	ErrKeyUnavailable = errors.New("credential: private key unavailable")
	// ErrAccountResolution signals the user-info endpoint returned no usable account.
	ErrAccountResolution = errors.New("credential: no account resolved for token")
)

// Record is a delegated-access credential resolved for one principal. Records
// are immutable once cached; concurrent writers may race but always store a
// structurally valid record, so last-write-wins is acceptable.
type Record struct {
	AccessToken string
	BasePath    string
	AccountID   string
}

// KeyProvider retrieves the RSA private key used to sign bearer assertions.
// Implementations must not log or cache keys on behalf of this package.
type KeyProvider interface {
	PrivateKey(ctx context.Context, principal string) (*rsa.PrivateKey, error)
}

// Cache stores credential records keyed by principal with an absolute expiry.
// Expired entries are never returned.
type Cache interface {
	Get(ctx context.Context, principal string) (Record, bool, error)
	Put(ctx context.Context, principal string, rec Record, ttl time.Duration) error
	Invalidate(ctx context.Context, principal string) error
}
