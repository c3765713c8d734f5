// Package handoff carries payment parameters across the signing redirect.
// Records are written once when an envelope is sent and read when the signer
// returns; re-reads are idempotent and records expire by retention window
// only, never on first use.
package handoff

import (
	"context"
	"time"
)

// DefaultTTL is the retention window for handoff records. If the signer
// takes longer than this the completion coordinator falls back to the
// redirect's own query parameters.
const DefaultTTL = 24 * time.Hour

// Record holds everything needed to price a checkout after signing.
type Record struct {
	CompanyName string
	Amount      int64 // minor units
	Currency    string
	ClientEmail string
	ClientName  string
}

// Store is a time-bounded key-value store keyed by envelope ID.
type Store interface {
	Put(ctx context.Context, envelopeID string, rec Record, ttl time.Duration) error
	Get(ctx context.Context, envelopeID string) (Record, bool, error)
}
