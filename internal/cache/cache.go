// Package cache is the versioned, TTL-jittered read cache in front of the
// aggregation engine and other derived reads. Every failure inside it is
// treated as a miss; callers always fall through to the source of truth.
package cache

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"
	"royale-tracker/internal/constants"

	"github.com/rs/zerolog"
)

// versionKey holds the global cache version counter in the store.
const versionKey = "cache:version"

// Store is the raw key/value collaborator. Redis in production, an
// in-memory map in tests.
type Store interface {
	// Get returns (payload, found). A miss is not an error.
	Get(ctx context.Context, key string) (string, bool, error)
	SetEx(ctx context.Context, key, payload string, ttl time.Duration) error
	// Incr atomically increments a counter key and returns the new value.
	Incr(ctx context.Context, key string) (int64, error)
}

type Layer struct {
	store  Store
	logger zerolog.Logger

	// last version observed from the store, used when the store is
	// unreachable so key construction still succeeds (reads then miss
	// and fall through).
	lastVersion atomic.Int64
}

func NewLayer(store Store, logger zerolog.Logger) *Layer {
	return &Layer{store: store, logger: logger}
}

// Version reads the global cache version. Bumping it makes every key built
// under the old version unaddressable without deleting anything.
func (l *Layer) Version(ctx context.Context) int64 {
	raw, found, err := l.store.Get(ctx, versionKey)
	if err != nil {
		l.logger.Warn().Err(err).Msg("failed to read cache version, using last known")
		return l.lastVersion.Load()
	}
	if !found {
		return 0
	}

	var version int64
	if err := json.Unmarshal([]byte(raw), &version); err != nil {
		l.logger.Warn().Err(err).Str("raw", raw).Msg("malformed cache version, using last known")
		return l.lastVersion.Load()
	}
	l.lastVersion.Store(version)
	return version
}

// BumpVersion atomically increments the global version, invalidating every
// previously cached read. Old entries expire via their TTLs.
func (l *Layer) BumpVersion(ctx context.Context) (int64, error) {
	version, err := l.store.Incr(ctx, versionKey)
	if err != nil {
		return l.lastVersion.Load(), err
	}
	l.lastVersion.Store(version)
	return version, nil
}

// Get looks a value up, checking the key written ahead of the next version
// bump first and the current version second. Any store or decode failure is
// a miss.
func (l *Layer) Get(ctx context.Context, service, resource string, params Params, dest any) bool {
	version := l.Version(ctx)
	for _, key := range []string{
		BuildKey(version+1, service, resource, params),
		BuildKey(version, service, resource, params),
	} {
		if l.getAt(ctx, key, dest) {
			return true
		}
	}
	return false
}

// Set stores a value under the current version with a jittered TTL.
func (l *Layer) Set(ctx context.Context, service, resource string, params Params, value any, ttl time.Duration) {
	l.setAt(ctx, BuildKey(l.Version(ctx), service, resource, params), value, ttl)
}

// SetAhead stores a value under version+1. Once BumpVersion runs, the value
// is immediately addressable as current, so the cutover never stampedes the
// source of truth.
func (l *Layer) SetAhead(ctx context.Context, service, resource string, params Params, value any, ttl time.Duration) {
	l.setAt(ctx, BuildKey(l.Version(ctx)+1, service, resource, params), value, ttl)
}

func (l *Layer) getAt(ctx context.Context, key string, dest any) bool {
	raw, found, err := l.store.Get(ctx, key)
	if err != nil {
		l.logger.Warn().Err(err).Str("key", key).Msg("cache read failed, treating as miss")
		return false
	}
	if !found {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		l.logger.Warn().Err(err).Str("key", key).Msg("cache payload undecodable, treating as miss")
		return false
	}
	return true
}

func (l *Layer) setAt(ctx context.Context, key string, value any, ttl time.Duration) {
	payload, err := json.Marshal(value)
	if err != nil {
		l.logger.Warn().Err(err).Str("key", key).Msg("failed to encode cache payload")
		return
	}
	if err := l.store.SetEx(ctx, key, string(payload), JitterTTL(ttl)); err != nil {
		l.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

// JitterTTL spreads a base TTL by a uniform factor so keys refreshed in the
// same cycle do not all expire in the same instant.
func JitterTTL(ttl time.Duration) time.Duration {
	pct := constants.CacheTTLJitterPct
	factor := 1 - pct + 2*pct*randFloat()
	jittered := time.Duration(float64(ttl) * factor).Round(time.Second)
	if jittered < constants.MinCacheTTL {
		return constants.MinCacheTTL
	}
	return jittered
}
