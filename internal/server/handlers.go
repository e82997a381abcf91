package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
	"royale-tracker/internal/api"
	"royale-tracker/internal/service"
	"royale-tracker/internal/stats"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const dateLayout = "2006-01-02"

// defaultWindowDays is the stats window applied when the caller gives no
// date range: today and the six days before it.
const defaultWindowDays = 7

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := s.players.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"players": players})
}

func (s *Server) handleTrackPlayer(w http.ResponseWriter, r *http.Request) {
	tag, err := s.players.Track(r.Context(), chi.URLParam(r, "tag"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"tag": tag})
}

func (s *Server) handleUntrackPlayer(w http.ResponseWriter, r *http.Request) {
	if err := s.players.Untrack(r.Context(), chi.URLParam(r, "tag")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePlayerProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.players.Profile(r.Context(), chi.URLParam(r, "tag"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(profile)
}

func (s *Server) handlePlayerBattles(w http.ResponseWriter, r *http.Request) {
	var before time.Time
	if raw := r.URL.Query().Get("before"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeBadRequest(w, "before must be RFC 3339")
			return
		}
		before = parsed
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeBadRequest(w, "limit must be an integer")
			return
		}
		limit = parsed
	}

	battles, err := s.players.LastBattles(r.Context(), chi.URLParam(r, "tag"), before, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"battles": battles})
}

func (s *Server) handleDeckStats(w http.ResponseWriter, r *http.Request) {
	query, ok := s.parseStatsQuery(w, r)
	if !ok {
		return
	}
	result, err := s.stats.DeckStats(r.Context(), query)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCardStats(w http.ResponseWriter, r *http.Request) {
	query, ok := s.parseStatsQuery(w, r)
	if !ok {
		return
	}
	result, err := s.stats.CardStats(r.Context(), query)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDailyStats(w http.ResponseWriter, r *http.Request) {
	query, ok := s.parseStatsQuery(w, r)
	if !ok {
		return
	}
	result, err := s.stats.DailyStats(r.Context(), query)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTotalBattles(w http.ResponseWriter, r *http.Request) {
	total, err := s.players.TotalBattles(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"totalBattles": total})
}

func (s *Server) handleGameModes(w http.ResponseWriter, r *http.Request) {
	modes, err := s.players.GameModes(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"gameModes": modes})
}

// parseStatsQuery reads the shared stats parameters. Dates are calendar
// dates interpreted in the requested timezone; without a range the window
// defaults to the last seven days.
func (s *Server) parseStatsQuery(w http.ResponseWriter, r *http.Request) (stats.Query, bool) {
	tag := service.NormalizeTag(chi.URLParam(r, "tag"))
	if !api.ValidTag(tag) {
		writeBadRequest(w, "invalid player tag")
		return stats.Query{}, false
	}

	location := time.UTC
	if name := r.URL.Query().Get("timezone"); name != "" {
		loc, err := time.LoadLocation(name)
		if err != nil {
			writeBadRequest(w, "unknown timezone")
			return stats.Query{}, false
		}
		location = loc
	}

	endDate := time.Now().In(location)
	if raw := r.URL.Query().Get("endDate"); raw != "" {
		parsed, err := time.ParseInLocation(dateLayout, raw, location)
		if err != nil {
			writeBadRequest(w, "endDate must be YYYY-MM-DD")
			return stats.Query{}, false
		}
		endDate = parsed
	}

	startDate := endDate.AddDate(0, 0, -(defaultWindowDays - 1))
	if raw := r.URL.Query().Get("startDate"); raw != "" {
		parsed, err := time.ParseInLocation(dateLayout, raw, location)
		if err != nil {
			writeBadRequest(w, "startDate must be YYYY-MM-DD")
			return stats.Query{}, false
		}
		startDate = parsed
	}

	var gameModes []string
	if raw := r.URL.Query().Get("gameModes"); raw != "" {
		for _, mode := range strings.Split(raw, ",") {
			if mode = strings.TrimSpace(mode); mode != "" {
				gameModes = append(gameModes, mode)
			}
		}
	}

	return stats.Query{
		PlayerTag: tag,
		StartDate: startDate,
		EndDate:   endDate,
		Location:  location,
		GameModes: gameModes,
	}, true
}

// writeError maps service and upstream failures to response statuses.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	logger := zerolog.Ctx(r.Context())

	switch {
	case errors.Is(err, service.ErrInvalidTag):
		writeBadRequest(w, "invalid player tag")
	case errors.Is(err, service.ErrPlayerNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "player not found"})
	case errors.Is(err, service.ErrNotTracked):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "player is not tracked"})
	case errors.Is(err, stats.ErrInvalidWindow):
		writeBadRequest(w, "invalid date window")
	case errors.Is(err, api.ErrMaintenance):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "upstream API is in maintenance"})
	default:
		var statusErr *api.StatusError
		if errors.As(err, &statusErr) {
			switch statusErr.StatusCode {
			case http.StatusForbidden, http.StatusNotFound, http.StatusTooManyRequests:
				writeJSON(w, statusErr.StatusCode, map[string]string{"error": "upstream API error"})
				return
			}
		}
		logger.Error().Err(err).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
