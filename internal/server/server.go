// Package server exposes the tracker's read surface as a JSON HTTP API.
package server

import (
	"net/http"
	"royale-tracker/internal/middleware"
	"royale-tracker/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

type Server struct {
	players *service.PlayerService
	stats   *service.StatsService
	logger  zerolog.Logger
	router  chi.Router
}

func New(players *service.PlayerService, statsSvc *service.StatsService, logger zerolog.Logger) *Server {
	s := &Server{
		players: players,
		stats:   statsSvc,
		logger:  logger,
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) Handler() http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
	}).Handler(s.router)
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID(s.logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", s.handlePing)

		r.Route("/players", func(r chi.Router) {
			r.Get("/", s.handleListPlayers)
			r.Post("/{tag}", s.handleTrackPlayer)
			r.Delete("/{tag}", s.handleUntrackPlayer)
			r.Get("/{tag}/profile", s.handlePlayerProfile)
			r.Get("/{tag}/battles", s.handlePlayerBattles)
			r.Get("/{tag}/decks/stats", s.handleDeckStats)
			r.Get("/{tag}/cards/stats", s.handleCardStats)
			r.Get("/{tag}/daily/stats", s.handleDailyStats)
		})

		r.Get("/battles/total_count", s.handleTotalBattles)
		r.Get("/game_modes", s.handleGameModes)
	})

	return r
}
