package domain

import (
	"context"
	"time"
)

// RegionCache caches region lookups keyed by upstream credential.
type RegionCache interface {
	Get(ctx context.Context, key string) (RegionInfo, error)
	Set(ctx context.Context, key string, value RegionInfo, ttl time.Duration) error
}

// ProductFetcher looks up raw products for one term against the upstream catalog.
type ProductFetcher interface {
	FetchProducts(ctx context.Context, term, credential string) FetchResult
}

// RegionResolver determines the delivery region for an upstream credential.
// It never fails; unresolvable credentials yield an "unknown" region.
type RegionResolver interface {
	ResolveRegion(ctx context.Context, credential string) RegionInfo
}

// SessionRepository is the durable store for sessions and their product records.
// UpdateProgress must be an atomic increment so concurrent chunks of the same
// session never lose updates.
type SessionRepository interface {
	CreateSession(ctx context.Context, totalTerms int) (string, error)
	GetSession(ctx context.Context, sessionID string) (*Session, error)
	UpdateProgress(ctx context.Context, sessionID string, processedDelta, productsDelta int) error
	AppendProducts(ctx context.Context, sessionID string, records []ProductRecord) error
	GetProducts(ctx context.Context, sessionID string) ([]ProductRecord, error)
	GetStats(ctx context.Context, sessionID string) (SessionStats, error)
	DeleteSession(ctx context.Context, sessionID string) error
	DeleteSessionsOlderThan(ctx context.Context, cutoff time.Time) (int, error)
	Close() error
}
