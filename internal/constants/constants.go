package constants

import "time"

const (
	ProfileCacheTTL      = 5 * time.Minute
	BattlesCacheTTL      = 2 * time.Minute
	DeckStatsCacheTTL    = 10 * time.Minute
	CardStatsCacheTTL    = 10 * time.Minute
	DailyStatsCacheTTL   = 10 * time.Minute
	TotalBattlesCacheTTL = 5 * time.Minute
	GameModesCacheTTL    = 6 * time.Hour
)

const (
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RequestTimeout     = 30 * time.Second
	CacheTimeout       = 2 * time.Second
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
	DBBatchSize       = 100
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	// Cache keys longer than this collapse into a hash of the full key.
	CacheKeyMaxBytes = 512

	// TTL jitter spread around the base TTL.
	CacheTTLJitterPct = 0.10

	MinCacheTTL = 1 * time.Second
)

const (
	DefaultBattleLimit = 30
	MaxBattleLimit     = 50
)
