package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"royale-tracker/internal/api"
	"royale-tracker/internal/cache"
	"royale-tracker/internal/config"
	"royale-tracker/internal/constants"
	fxmodules "royale-tracker/internal/fx"
	"royale-tracker/internal/scraper"
	"royale-tracker/internal/server"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(runServer),
		fx.Invoke(runScraper),
	).Run()
}

func runServer(
	lc fx.Lifecycle,
	srv *server.Server,
	client *api.CRClient,
	cfg *config.Config,
	db *sql.DB,
	store *cache.RedisStore,
	logger zerolog.Logger,
) {
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: srv.Handler(),
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.CheckConnection(ctx); err != nil {
				return fmt.Errorf("clash royale API unreachable: %w", err)
			}

			go func() {
				logger.Info().Str("addr", httpServer.Addr).Msg("server starting")
				if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Fatal().Err(err).Msg("server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("server shutdown failed")
				return err
			}

			if err := store.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing redis connection")
			}
			if err := db.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing database connection")
			}

			logger.Info().Msg("server stopped gracefully")
			return nil
		},
	})
}

func runScraper(
	lc fx.Lifecycle,
	orch *scraper.Orchestrator,
	cfg *config.Config,
	logger zerolog.Logger,
) {
	if !cfg.ScrapeEnabled {
		logger.Info().Msg("scraping disabled, serving stored data only")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				orch.Run(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
				logger.Warn().Msg("scraper did not stop before shutdown deadline")
			}
			return nil
		},
	})
}
