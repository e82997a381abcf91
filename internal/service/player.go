package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
	"royale-tracker/internal/api"
	"royale-tracker/internal/cache"
	"royale-tracker/internal/constants"
	"royale-tracker/internal/domain"

	"github.com/rs/zerolog"
)

var (
	ErrInvalidTag     = errors.New("invalid player tag")
	ErrPlayerNotFound = errors.New("player not found upstream")
	ErrNotTracked     = errors.New("player is not tracked")
)

// ProfileClient is the slice of the upstream client the player service needs.
type ProfileClient interface {
	GetPlayer(ctx context.Context, playerTag string) (json.RawMessage, error)
	PlayerExists(ctx context.Context, playerTag string) (bool, error)
}

type PlayerStore interface {
	ListActive(ctx context.Context) ([]domain.Player, error)
	Track(ctx context.Context, tag string) error
	Untrack(ctx context.Context, tag string) (bool, error)
}

type BattleReader interface {
	GetLastBattles(ctx context.Context, playerTag string, before time.Time, limit int) ([]domain.BattleRecord, error)
	CountAll(ctx context.Context) (int64, error)
}

type GameModeLister interface {
	List(ctx context.Context) ([]domain.GameMode, error)
}

type PlayerService struct {
	players PlayerStore
	battles BattleReader
	modes   GameModeLister
	client  ProfileClient
	cache   *cache.Layer
	logger  zerolog.Logger
}

func NewPlayerService(
	players PlayerStore,
	battles BattleReader,
	modes GameModeLister,
	client ProfileClient,
	cacheLayer *cache.Layer,
	logger zerolog.Logger,
) *PlayerService {
	return &PlayerService{
		players: players,
		battles: battles,
		modes:   modes,
		client:  client,
		cache:   cacheLayer,
		logger:  logger,
	}
}

// NormalizeTag upper-cases a tag and restores the '#' prefix that URL paths
// usually drop. The result is not guaranteed valid.
func NormalizeTag(raw string) string {
	tag := strings.ToUpper(strings.TrimSpace(raw))
	tag = strings.TrimPrefix(tag, "%23")
	if !strings.HasPrefix(tag, "#") {
		tag = "#" + tag
	}
	return tag
}

func (s *PlayerService) List(ctx context.Context) ([]domain.Player, error) {
	return s.players.ListActive(ctx)
}

// Track verifies the tag against the upstream API before persisting it, so
// the scrape cycle never wastes budget on tags that cannot resolve.
func (s *PlayerService) Track(ctx context.Context, rawTag string) (string, error) {
	tag := NormalizeTag(rawTag)
	if !api.ValidTag(tag) {
		return "", ErrInvalidTag
	}

	exists, err := s.client.PlayerExists(ctx, tag)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", ErrPlayerNotFound
	}

	if err := s.players.Track(ctx, tag); err != nil {
		return "", err
	}

	s.logger.Info().Str("player_tag", tag).Msg("player tracked")
	return tag, nil
}

// Untrack deactivates a player. Its battle history stays queryable.
func (s *PlayerService) Untrack(ctx context.Context, rawTag string) error {
	tag := NormalizeTag(rawTag)
	if !api.ValidTag(tag) {
		return ErrInvalidTag
	}

	removed, err := s.players.Untrack(ctx, tag)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotTracked
	}

	s.logger.Info().Str("player_tag", tag).Msg("player untracked")
	return nil
}

// Profile returns the upstream profile payload untouched, cached briefly.
func (s *PlayerService) Profile(ctx context.Context, rawTag string) (json.RawMessage, error) {
	tag := NormalizeTag(rawTag)
	if !api.ValidTag(tag) {
		return nil, ErrInvalidTag
	}

	params := cache.Params{"playerTag": tag}

	var cached json.RawMessage
	if s.cache.Get(ctx, cacheService, "playerProfile", params, &cached) {
		return cached, nil
	}

	profile, err := s.client.GetPlayer(ctx, tag)
	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, cacheService, "playerProfile", params, profile, constants.ProfileCacheTTL)
	return profile, nil
}

// LastBattles returns a player's most recent stored battles before the given
// instant, newest first. The limit is clamped to the configured maximum.
func (s *PlayerService) LastBattles(ctx context.Context, rawTag string, before time.Time, limit int) ([]domain.BattleRecord, error) {
	tag := NormalizeTag(rawTag)
	if !api.ValidTag(tag) {
		return nil, ErrInvalidTag
	}

	if limit <= 0 {
		limit = constants.DefaultBattleLimit
	}
	if limit > constants.MaxBattleLimit {
		limit = constants.MaxBattleLimit
	}
	if before.IsZero() {
		before = time.Now().UTC()
	}

	params := cache.Params{
		"playerTag": tag,
		"before":    cache.FormatTime(before),
		"limit":     strconv.Itoa(limit),
	}

	var cached []domain.BattleRecord
	if s.cache.Get(ctx, cacheService, "playerBattles", params, &cached) {
		return cached, nil
	}

	battles, err := s.battles.GetLastBattles(ctx, tag, before, limit)
	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, cacheService, "playerBattles", params, battles, constants.BattlesCacheTTL)
	return battles, nil
}

// TotalBattles reports how many battles the tracker has stored overall.
func (s *PlayerService) TotalBattles(ctx context.Context) (int64, error) {
	var cached int64
	if s.cache.Get(ctx, cacheService, "totalBattles", nil, &cached) {
		return cached, nil
	}

	total, err := s.battles.CountAll(ctx)
	if err != nil {
		return 0, err
	}

	s.cache.Set(ctx, cacheService, "totalBattles", nil, total, constants.TotalBattlesCacheTTL)
	return total, nil
}

// GameModes lists every mode ever seen in an ingested battle. The scrape
// cycle pre-warms this entry ahead of each version bump, so a miss here is
// the cold-start path.
func (s *PlayerService) GameModes(ctx context.Context) ([]string, error) {
	var cached []string
	if s.cache.Get(ctx, cacheService, "gameModes", nil, &cached) {
		return cached, nil
	}

	modes, err := s.modes.List(ctx)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(modes))
	for _, mode := range modes {
		names = append(names, mode.Name)
	}

	s.cache.Set(ctx, cacheService, "gameModes", nil, names, constants.GameModesCacheTTL)
	return names, nil
}
