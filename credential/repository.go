package credential

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGCache implements Cache backed by PostgreSQL so credential refreshes are
// shared across instances. Rows carry an absolute expiry; an expired row is
// treated as a miss and never returned.
type PGCache struct {
	pool *pgxpool.Pool
}

// NewPGCache creates a PostgreSQL-backed credential cache.
func NewPGCache(pool *pgxpool.Pool) *PGCache {
	return &PGCache{pool: pool}
}

// Get returns the live credential for principal, if any.
func (c *PGCache) Get(ctx context.Context, principal string) (Record, bool, error) {
	const selectSQL = `
		SELECT access_token, base_path, account_id
		FROM credential_cache
		WHERE principal_id = $1 AND expires_at > now()
	`

	var rec Record
	err := c.pool.QueryRow(ctx, selectSQL, principal).Scan(&rec.AccessToken, &rec.BasePath, &rec.AccountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, false, nil
		}
		return Record{}, false, fmt.Errorf("credential: cache get: %w", err)
	}

	return rec, true, nil
}

// Put stores rec for principal with absolute expiry now+ttl. Concurrent
// writers race benignly; the last structurally valid record wins.
func (c *PGCache) Put(ctx context.Context, principal string, rec Record, ttl time.Duration) error {
	const upsertSQL = `
		INSERT INTO credential_cache (principal_id, access_token, base_path, account_id, expires_at)
		VALUES ($1, $2, $3, $4, now() + $5)
		ON CONFLICT (principal_id) DO UPDATE
		SET access_token = EXCLUDED.access_token,
		    base_path    = EXCLUDED.base_path,
		    account_id   = EXCLUDED.account_id,
		    expires_at   = EXCLUDED.expires_at
	`

	if _, err := c.pool.Exec(ctx, upsertSQL, principal, rec.AccessToken, rec.BasePath, rec.AccountID, ttl); err != nil {
		return fmt.Errorf("credential: cache put: %w", err)
	}
	return nil
}

// Invalidate flushes the cached credential for principal. Operator-triggered
// recovery; a no-op when nothing is cached.
func (c *PGCache) Invalidate(ctx context.Context, principal string) error {
	if _, err := c.pool.Exec(ctx, `DELETE FROM credential_cache WHERE principal_id = $1`, principal); err != nil {
		return fmt.Errorf("credential: cache invalidate: %w", err)
	}
	return nil
}
