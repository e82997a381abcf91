package fx

import (
	"royale-tracker/internal/api"
	"royale-tracker/internal/cache"
	"royale-tracker/internal/config"
	"royale-tracker/internal/database"
	"royale-tracker/internal/logger"
	"royale-tracker/internal/normalizer"
	"royale-tracker/internal/ratelimit"
	"royale-tracker/internal/repository"
	"royale-tracker/internal/retry"
	"royale-tracker/internal/scraper"
	"royale-tracker/internal/server"
	"royale-tracker/internal/service"
	"royale-tracker/internal/stats"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func ProvideLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.RequestsPerSecond)
}

func ProvideRetrier(cfg *config.Config, log zerolog.Logger) *retry.Controller {
	return retry.NewController(cfg.MaxRetries, cfg.BaseBackoff, log)
}

func ProvideCacheLayer(store *cache.RedisStore, log zerolog.Logger) *cache.Layer {
	return cache.NewLayer(store, log)
}

func ProvideStatsEngine(battles *repository.BattleRepository, log zerolog.Logger) *stats.Engine {
	return stats.NewEngine(battles, log)
}

func ProvidePlayerService(
	players *repository.PlayerRepository,
	battles *repository.BattleRepository,
	modes *repository.GameModeRepository,
	client *api.CRClient,
	cacheLayer *cache.Layer,
	log zerolog.Logger,
) *service.PlayerService {
	return service.NewPlayerService(players, battles, modes, client, cacheLayer, log)
}

func ProvideOrchestrator(
	cfg *config.Config,
	client *api.CRClient,
	limiter *ratelimit.Limiter,
	retrier *retry.Controller,
	norm *normalizer.Normalizer,
	battles *repository.BattleRepository,
	players *repository.PlayerRepository,
	catalog *repository.GameModeRepository,
	cacheLayer *cache.Layer,
	log zerolog.Logger,
) *scraper.Orchestrator {
	return scraper.NewOrchestrator(cfg, client, limiter, retrier, norm, battles, players, catalog, cacheLayer, log)
}

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	// repos
	fx.Provide(repository.NewBattleRepository),
	fx.Provide(repository.NewPlayerRepository),
	fx.Provide(repository.NewGameModeRepository),
	// api client and ingestion plumbing
	fx.Provide(api.NewCRClient),
	fx.Provide(ProvideLimiter),
	fx.Provide(ProvideRetrier),
	fx.Provide(normalizer.New),
	// cache
	fx.Provide(cache.NewRedisStore),
	fx.Provide(ProvideCacheLayer),
	// stats
	fx.Provide(ProvideStatsEngine),
	// svc
	fx.Provide(service.NewStatsService),
	fx.Provide(ProvidePlayerService),
	// scraper
	fx.Provide(ProvideOrchestrator),
	// server
	fx.Provide(server.New),
)
