package handoff

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore implements Store backed by PostgreSQL. One writer per envelope id
// (the orchestrator), any number of readers (the coordinator), so no row
// contention exists; expired rows read as misses.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a PostgreSQL-backed handoff store.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// Put stores the payment parameters for an envelope with expiry now+ttl.
func (s *PGStore) Put(ctx context.Context, envelopeID string, rec Record, ttl time.Duration) error {
	const upsertSQL = `
		INSERT INTO handoff_records (envelope_id, company_name, amount, currency, client_email, client_name, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, now() + $7)
		ON CONFLICT (envelope_id) DO UPDATE
		SET company_name = EXCLUDED.company_name,
		    amount       = EXCLUDED.amount,
		    currency     = EXCLUDED.currency,
		    client_email = EXCLUDED.client_email,
		    client_name  = EXCLUDED.client_name,
		    expires_at   = EXCLUDED.expires_at
	`

	if _, err := s.pool.Exec(ctx, upsertSQL, envelopeID, rec.CompanyName, rec.Amount, rec.Currency, rec.ClientEmail, rec.ClientName, ttl); err != nil {
		return fmt.Errorf("handoff: put %s: %w", envelopeID, err)
	}
	return nil
}

// Get reads the record for an envelope. A miss is not an error; the caller
// has a query-parameter fallback.
func (s *PGStore) Get(ctx context.Context, envelopeID string) (Record, bool, error) {
	const selectSQL = `
		SELECT company_name, amount, currency, client_email, client_name
		FROM handoff_records
		WHERE envelope_id = $1 AND expires_at > now()
	`

	var rec Record
	err := s.pool.QueryRow(ctx, selectSQL, envelopeID).Scan(&rec.CompanyName, &rec.Amount, &rec.Currency, &rec.ClientEmail, &rec.ClientName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, false, nil
		}
		return Record{}, false, fmt.Errorf("handoff: get %s: %w", envelopeID, err)
	}

	return rec, true, nil
}
