package credential

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
)

// cacheTTL is deliberately shorter than the one-hour token lifetime so a
// cached token always has remaining validity when handed out.
const cacheTTL = 40 * time.Minute

// Exchanger covers the two sequential remote calls of a credential refresh.
type Exchanger interface {
	Exchange(ctx context.Context, assertion string) (string, error)
	ResolveAccount(ctx context.Context, accessToken string) (Record, error)
}

// Builder produces a fresh signed assertion for each refresh attempt.
type Builder interface {
	Build(ctx context.Context, principal, integrationKey, audience string) (string, error)
}

// Service is the single entry point for obtaining delegated-access
// credentials. Cache misses trigger assertion build, token exchange and
// account resolution; concurrent misses for the same principal collapse into
// one refresh. Collapsing is an optimization, not a correctness requirement:
// the exchange is idempotent and side-effect-free on the provider.
type Service struct {
	cache          Cache
	builder        Builder
	exchanger      Exchanger
	integrationKey string
	authHost       string

	group singleflight.Group
}

// NewService wires a credential service from its collaborators.
func NewService(cache Cache, builder Builder, exchanger Exchanger, integrationKey, authHost string) *Service {
	return &Service{
		cache:          cache,
		builder:        builder,
		exchanger:      exchanger,
		integrationKey: integrationKey,
		authHost:       authHost,
	}
}

// GetCredential returns a live credential for principal, refreshing through
// the JWT-bearer grant on a cache miss. A record is only ever returned for
// the principal it was issued to.
func (s *Service) GetCredential(ctx context.Context, principal string) (Record, error) {
	rec, ok, err := s.cache.Get(ctx, principal)
	if err != nil {
		return Record{}, fmt.Errorf("credential: cache lookup: %w", err)
	}
	if ok {
		return rec, nil
	}

	v, err, _ := s.group.Do(principal, func() (any, error) {
		return s.refresh(ctx, principal)
	})
	if err != nil {
		return Record{}, err
	}
	return v.(Record), nil
}

// Invalidate flushes the cached credential for principal.
func (s *Service) Invalidate(ctx context.Context, principal string) error {
	return s.cache.Invalidate(ctx, principal)
}

func (s *Service) refresh(ctx context.Context, principal string) (Record, error) {
	assertion, err := s.builder.Build(ctx, principal, s.integrationKey, s.authHost)
	if err != nil {
		return Record{}, err
	}

	token, err := s.exchanger.Exchange(ctx, assertion)
	if err != nil {
		return Record{}, err
	}

	rec, err := s.exchanger.ResolveAccount(ctx, token)
	if err != nil {
		return Record{}, err
	}

	if err := s.cache.Put(ctx, principal, rec, cacheTTL); err != nil {
		return Record{}, fmt.Errorf("credential: cache store: %w", err)
	}

	return rec, nil
}
