// Package stats computes deck, card and daily statistics over canonical
// battle records.
package stats

import (
	"errors"
	"fmt"
	"time"
	"royale-tracker/internal/domain"
)

// ErrInvalidWindow marks a query whose date window cannot be evaluated.
var ErrInvalidWindow = errors.New("invalid stats window")

// Query selects records for one player over a calendar-date window in the
// caller's timezone, optionally restricted to a game-mode allow-list.
type Query struct {
	PlayerTag string
	StartDate time.Time // calendar date, time-of-day ignored
	EndDate   time.Time // calendar date, inclusive
	Location  *time.Location
	GameModes []string
}

// WindowUTC converts the calendar window once to absolute instants: local
// midnight of StartDate up to (exclusive) local midnight of the day after
// EndDate.
func (q Query) WindowUTC() (time.Time, time.Time, error) {
	if q.Location == nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: timezone is required", ErrInvalidWindow)
	}
	if q.EndDate.Before(q.StartDate) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start date %s is after end date %s",
			ErrInvalidWindow, q.StartDate.Format("2006-01-02"), q.EndDate.Format("2006-01-02"))
	}

	start := time.Date(q.StartDate.Year(), q.StartDate.Month(), q.StartDate.Day(), 0, 0, 0, 0, q.Location)
	endDay := q.EndDate.AddDate(0, 0, 1)
	end := time.Date(endDay.Year(), endDay.Month(), endDay.Day(), 0, 0, 0, 0, q.Location)

	return start.UTC(), end.UTC(), nil
}

type DeckCard struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	EvolutionLevel int    `json:"evolutionLevel"`
}

type DeckStats struct {
	Deck      []DeckCard `json:"deck"`
	Count     int        `json:"count"`
	Wins      int        `json:"wins"`
	WinRate   float64    `json:"winRate"`
	FirstSeen time.Time  `json:"firstSeen"`
	LastSeen  time.Time  `json:"lastSeen"`
	GameModes []string   `json:"gameModes"`
}

type DeckStatsResult struct {
	TotalBattles int         `json:"totalBattles"`
	Decks        []DeckStats `json:"decks"`
}

type CardStats struct {
	ID             int     `json:"id"`
	Name           string  `json:"name"`
	EvolutionLevel int     `json:"evolutionLevel"`
	Usage          int     `json:"usage"`
	Wins           int     `json:"wins"`
	WinRate        float64 `json:"winRate"`
	UsageRate      float64 `json:"usageRate"`
}

type CardStatsResult struct {
	TotalBattles int         `json:"totalBattles"`
	Cards        []CardStats `json:"cards"`
}

type DailyStats struct {
	Day           string  `json:"day"` // YYYY-MM-DD in the caller's timezone
	Battles       int     `json:"battles"`
	Victories     int     `json:"victories"`
	Defeats       int     `json:"defeats"`
	Draws         int     `json:"draws"`
	CrownsFor     int     `json:"crownsFor"`
	CrownsAgainst int     `json:"crownsAgainst"`
	ElixirLeaked  float64 `json:"elixirLeaked"`
	WinRate       float64 `json:"winRate"`
}

type DailyStatsResult struct {
	TotalBattles int          `json:"totalBattles"`
	Daily        []DailyStats `json:"daily"`
}

func deckOf(cards []domain.Card) []DeckCard {
	deck := make([]DeckCard, len(cards))
	for i, c := range cards {
		deck[i] = DeckCard{ID: c.ID, Name: c.Name, EvolutionLevel: c.EvolutionLevel}
	}
	return deck
}
