// Package scraper drives the ingestion cycle: load tracked players, fetch
// and normalize every battle log under shared rate limiting, write the
// canonical records, refresh the catalog cache and bump the cache version.
package scraper

import (
	"context"
	"errors"
	"time"
	"royale-tracker/internal/api"
	"royale-tracker/internal/cache"
	"royale-tracker/internal/config"
	"royale-tracker/internal/constants"
	"royale-tracker/internal/domain"
	"royale-tracker/internal/normalizer"
	"royale-tracker/internal/ratelimit"
	"royale-tracker/internal/retry"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type BattleLogClient interface {
	GetBattleLog(ctx context.Context, playerTag string) ([]api.RawBattle, error)
}

type BattleWriter interface {
	InsertBatch(ctx context.Context, records []domain.BattleRecord) (domain.InsertResult, error)
}

type PlayerSource interface {
	GetActiveTags(ctx context.Context) ([]string, error)
	UpdateName(ctx context.Context, tag, name string) error
}

type CatalogStore interface {
	UpsertSeen(ctx context.Context, names []string, seenAt time.Time) error
	List(ctx context.Context) ([]domain.GameMode, error)
}

type Orchestrator struct {
	cfg        *config.Config
	client     BattleLogClient
	limiter    *ratelimit.Limiter
	retrier    *retry.Controller
	normalizer *normalizer.Normalizer
	battles    BattleWriter
	players    PlayerSource
	catalog    CatalogStore
	cache      *cache.Layer
	logger     zerolog.Logger
}

func NewOrchestrator(
	cfg *config.Config,
	client BattleLogClient,
	limiter *ratelimit.Limiter,
	retrier *retry.Controller,
	norm *normalizer.Normalizer,
	battles BattleWriter,
	players PlayerSource,
	catalog CatalogStore,
	cacheLayer *cache.Layer,
	logger zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		client:     client,
		limiter:    limiter,
		retrier:    retrier,
		normalizer: norm,
		battles:    battles,
		players:    players,
		catalog:    catalog,
		cache:      cacheLayer,
		logger:     logger,
	}
}

// Run loops scrape cycles until ctx is cancelled. Each cycle is paced to
// the configured target duration; an overrunning cycle starts the next one
// back to back.
func (o *Orchestrator) Run(ctx context.Context) {
	for {
		start := time.Now()
		if err := o.RunCycle(ctx); err != nil && !errors.Is(err, context.Canceled) {
			o.logger.Error().Err(err).Msg("scrape cycle failed")
		}

		elapsed := time.Since(start)
		sleep := o.cfg.CycleDuration - elapsed
		if sleep < 0 {
			o.logger.Warn().
				Dur("elapsed", elapsed).
				Dur("target", o.cfg.CycleDuration).
				Msg("scrape cycle overran its target, starting next cycle immediately")
			sleep = 0
		}

		o.logger.Info().Dur("elapsed", elapsed).Dur("sleep", sleep).Msg("scrape cycle finished")

		select {
		case <-ctx.Done():
			o.logger.Info().Msg("scraper stopping")
			return
		case <-time.After(sleep):
		}
	}
}

// RunCycle executes one full ingestion cycle. A maintenance signal from any
// player task cancels every sibling and abandons the rest of the cycle; it
// is retried in full at the next interval.
func (o *Orchestrator) RunCycle(ctx context.Context) error {
	cycleID, err := gonanoid.New()
	if err != nil {
		cycleID = "unknown"
	}
	logger := o.logger.With().Str("cycle_id", cycleID).Logger()

	tags, err := o.players.GetActiveTags(ctx)
	if err != nil {
		return err
	}
	logger.Info().Int("players", len(tags)).Msg("scrape cycle started")

	modes := newModeSet()

	g, gCtx := errgroup.WithContext(ctx)
	for _, tag := range tags {
		tag := tag
		g.Go(func() error {
			err := o.processPlayer(gCtx, tag, modes, logger)
			if err == nil {
				return nil
			}
			if errors.Is(err, api.ErrMaintenance) || errors.Is(err, context.Canceled) {
				// cancels the sibling tasks via the group context
				return err
			}
			// per-item failure, siblings continue
			logger.Warn().Err(err).Str("player_tag", tag).Msg("player scrape failed")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if errors.Is(err, api.ErrMaintenance) {
			logger.Warn().Msg("upstream in maintenance, cycle aborted")
			return nil
		}
		return err
	}

	o.refreshCatalog(ctx, modes.Values(), logger)

	version, err := o.cache.BumpVersion(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to bump cache version")
	} else {
		logger.Info().Int64("cache_version", version).Msg("cache version bumped")
	}

	return nil
}

func (o *Orchestrator) processPlayer(ctx context.Context, tag string, modes *modeSet, logger zerolog.Logger) error {
	var battles []api.RawBattle

	err := o.retrier.Do(ctx, "battlelog "+tag, func(ctx context.Context) error {
		// each attempt takes its own rate-limit slot
		if err := o.limiter.Acquire(ctx); err != nil {
			return err
		}

		fetchCtx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
		defer cancel()

		var err error
		battles, err = o.client.GetBattleLog(fetchCtx, tag)
		return err
	})
	if err != nil {
		return err
	}

	records := o.normalizer.NormalizeBattleLog(battles, tag)
	for _, record := range records {
		modes.Add(record.GameMode)
	}

	result, err := o.battles.InsertBatch(ctx, records)
	if err != nil {
		return err
	}

	logger.Info().
		Str("player_tag", tag).
		Int("fetched", len(battles)).
		Int("inserted", result.Inserted).
		Int("skipped_duplicate", result.SkippedDuplicate).
		Int("failed", result.Failed).
		Msg("player battles ingested")

	if name := latestPlayerName(records, tag); name != "" {
		if err := o.players.UpdateName(ctx, tag, name); err != nil {
			logger.Warn().Err(err).Str("player_tag", tag).Msg("failed to update player name")
		}
	}

	return nil
}

// refreshCatalog persists the modes seen this cycle and pre-warms the
// catalog cache at version+1, so the bump right after cuts over with no
// recompute stampede.
func (o *Orchestrator) refreshCatalog(ctx context.Context, seen []string, logger zerolog.Logger) {
	if len(seen) > 0 {
		if err := o.catalog.UpsertSeen(ctx, seen, time.Now().UTC()); err != nil {
			logger.Warn().Err(err).Msg("failed to upsert game modes")
		}
	}

	all, err := o.catalog.List(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to list game modes for catalog cache")
		return
	}

	names := make([]string, 0, len(all))
	for _, mode := range all {
		names = append(names, mode.Name)
	}

	o.cache.SetAhead(ctx, "crApi", "gameModes", nil, names, constants.GameModesCacheTTL)
	logger.Debug().Int("modes", len(names)).Msg("game mode catalog cache refreshed")
}

func latestPlayerName(records []domain.BattleRecord, tag string) string {
	for _, record := range records {
		if p := record.ReferenceParticipant(); p != nil && p.Tag == tag && p.Name != "" {
			return p.Name
		}
	}
	return ""
}
