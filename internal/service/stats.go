// Package service sits between the HTTP handlers and the storage and
// aggregation layers. Every read endpoint goes through the versioned cache
// here; a cache failure is a miss and falls back to the source of truth.
package service

import (
	"context"
	"time"
	"royale-tracker/internal/cache"
	"royale-tracker/internal/constants"
	"royale-tracker/internal/stats"

	"github.com/rs/zerolog"
)

// cacheService namespaces every key this backend writes.
const cacheService = "crApi"

type StatsService struct {
	engine *stats.Engine
	cache  *cache.Layer
	logger zerolog.Logger
}

func NewStatsService(engine *stats.Engine, cacheLayer *cache.Layer, logger zerolog.Logger) *StatsService {
	return &StatsService{engine: engine, cache: cacheLayer, logger: logger}
}

func (s *StatsService) DeckStats(ctx context.Context, query stats.Query) (*stats.DeckStatsResult, error) {
	params := statsParams(query)

	var cached stats.DeckStatsResult
	if s.cache.Get(ctx, cacheService, "playerDecks", params, &cached) {
		return &cached, nil
	}

	result, err := s.engine.DeckStats(ctx, query)
	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, cacheService, "playerDecks", params, result, constants.DeckStatsCacheTTL)
	return result, nil
}

func (s *StatsService) CardStats(ctx context.Context, query stats.Query) (*stats.CardStatsResult, error) {
	params := statsParams(query)

	var cached stats.CardStatsResult
	if s.cache.Get(ctx, cacheService, "playerCards", params, &cached) {
		return &cached, nil
	}

	result, err := s.engine.CardStats(ctx, query)
	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, cacheService, "playerCards", params, result, constants.CardStatsCacheTTL)
	return result, nil
}

func (s *StatsService) DailyStats(ctx context.Context, query stats.Query) (*stats.DailyStatsResult, error) {
	params := statsParams(query)

	var cached stats.DailyStatsResult
	if s.cache.Get(ctx, cacheService, "playerDaily", params, &cached) {
		return &cached, nil
	}

	result, err := s.engine.DailyStats(ctx, query)
	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, cacheService, "playerDaily", params, result, constants.DailyStatsCacheTTL)
	return result, nil
}

// statsParams canonicalizes a query into cache key parameters. Empty
// optional parts are omitted so equivalent queries share one key.
func statsParams(query stats.Query) cache.Params {
	params := cache.Params{
		"playerTag": query.PlayerTag,
		"startDate": cache.FormatTime(query.StartDate),
		"endDate":   cache.FormatTime(query.EndDate),
	}
	if query.Location != nil && query.Location != time.UTC {
		params["timezone"] = query.Location.String()
	}
	if len(query.GameModes) > 0 {
		params["gameModes"] = cache.FormatList(query.GameModes)
	}
	return params
}
