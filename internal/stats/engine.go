package stats

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"
	"royale-tracker/internal/domain"

	"github.com/rs/zerolog"
)

// Reader is the filtered-read capability the engine needs from storage.
type Reader interface {
	GetByFilter(ctx context.Context, playerTag string, start, end time.Time, gameModes []string) ([]domain.BattleRecord, error)
}

type Engine struct {
	reader Reader
	logger zerolog.Logger
}

func NewEngine(reader Reader, logger zerolog.Logger) *Engine {
	return &Engine{reader: reader, logger: logger}
}

// DeckStats groups the filtered records by the reference deck's signature.
// Zero matching records yields an empty result, never an error.
func (e *Engine) DeckStats(ctx context.Context, query Query) (*DeckStatsResult, error) {
	records, err := e.fetch(ctx, query)
	if err != nil {
		return nil, err
	}

	type group struct {
		deck      []DeckCard
		count     int
		wins      int
		firstSeen time.Time
		lastSeen  time.Time
		modes     map[string]struct{}
	}
	groups := map[string]*group{}

	for _, record := range records {
		participant := record.ReferenceParticipant()
		if participant == nil {
			continue
		}

		signature := domain.DeckSignature(participant.Cards)
		g, ok := groups[signature]
		if !ok {
			g = &group{
				deck:      deckOf(canonicalCards(participant.Cards)),
				firstSeen: record.BattleTime,
				lastSeen:  record.BattleTime,
				modes:     map[string]struct{}{},
			}
			groups[signature] = g
		}

		g.count++
		if record.GameResult == domain.ResultVictory {
			g.wins++
		}
		if record.BattleTime.Before(g.firstSeen) {
			g.firstSeen = record.BattleTime
		}
		if record.BattleTime.After(g.lastSeen) {
			g.lastSeen = record.BattleTime
		}
		g.modes[record.GameMode] = struct{}{}
	}

	decks := make([]DeckStats, 0, len(groups))
	for _, g := range groups {
		modes := make([]string, 0, len(g.modes))
		for mode := range g.modes {
			modes = append(modes, mode)
		}
		sort.Strings(modes)

		decks = append(decks, DeckStats{
			Deck:      g.deck,
			Count:     g.count,
			Wins:      g.wins,
			WinRate:   rate(g.wins, g.count),
			FirstSeen: g.firstSeen,
			LastSeen:  g.lastSeen,
			GameModes: modes,
		})
	}

	sort.Slice(decks, func(i, j int) bool {
		if decks[i].Count != decks[j].Count {
			return decks[i].Count > decks[j].Count
		}
		return decks[i].LastSeen.After(decks[j].LastSeen)
	})

	return &DeckStatsResult{TotalBattles: len(records), Decks: decks}, nil
}

// CardStats explodes each reference deck into (id, name, evolutionLevel)
// entries and aggregates usage and wins per entry.
func (e *Engine) CardStats(ctx context.Context, query Query) (*CardStatsResult, error) {
	records, err := e.fetch(ctx, query)
	if err != nil {
		return nil, err
	}

	type cardKey struct {
		id        int
		name      string
		evolution int
	}
	type group struct {
		usage int
		wins  int
	}
	groups := map[cardKey]*group{}

	for _, record := range records {
		participant := record.ReferenceParticipant()
		if participant == nil {
			continue
		}
		won := record.GameResult == domain.ResultVictory

		for _, card := range participant.Cards {
			key := cardKey{id: card.ID, name: card.Name, evolution: card.EvolutionLevel}
			g, ok := groups[key]
			if !ok {
				g = &group{}
				groups[key] = g
			}
			g.usage++
			if won {
				g.wins++
			}
		}
	}

	total := len(records)
	cards := make([]CardStats, 0, len(groups))
	for key, g := range groups {
		cards = append(cards, CardStats{
			ID:             key.id,
			Name:           key.name,
			EvolutionLevel: key.evolution,
			Usage:          g.usage,
			Wins:           g.wins,
			WinRate:        rate(g.wins, g.usage),
			UsageRate:      rate(g.usage, total),
		})
	}

	sort.Slice(cards, func(i, j int) bool {
		if cards[i].Usage != cards[j].Usage {
			return cards[i].Usage > cards[j].Usage
		}
		return cards[i].ID < cards[j].ID
	})

	return &CardStatsResult{TotalBattles: total, Cards: cards}, nil
}

// DailyStats rolls records up per calendar day in the caller's timezone.
func (e *Engine) DailyStats(ctx context.Context, query Query) (*DailyStatsResult, error) {
	records, err := e.fetch(ctx, query)
	if err != nil {
		return nil, err
	}

	groups := map[string]*DailyStats{}
	for _, record := range records {
		day := record.BattleTime.In(query.Location).Format("2006-01-02")
		g, ok := groups[day]
		if !ok {
			g = &DailyStats{Day: day}
			groups[day] = g
		}

		g.Battles++
		switch record.GameResult {
		case domain.ResultVictory:
			g.Victories++
		case domain.ResultDefeat:
			g.Defeats++
		case domain.ResultDraw:
			g.Draws++
		}

		g.CrownsFor += maxCrowns(record.Team)
		g.CrownsAgainst += maxCrowns(record.Opponent)
		if participant := record.ReferenceParticipant(); participant != nil {
			g.ElixirLeaked += participant.ElixirLeaked
		}
	}

	daily := make([]DailyStats, 0, len(groups))
	for _, g := range groups {
		g.WinRate = math.Round(rate(g.Victories, g.Battles)*100) / 100
		daily = append(daily, *g)
	}
	sort.Slice(daily, func(i, j int) bool { return daily[i].Day < daily[j].Day })

	return &DailyStatsResult{TotalBattles: len(records), Daily: daily}, nil
}

func (e *Engine) fetch(ctx context.Context, query Query) ([]domain.BattleRecord, error) {
	start, end, err := query.WindowUTC()
	if err != nil {
		return nil, fmt.Errorf("invalid query window: %w", err)
	}

	records, err := e.reader.GetByFilter(ctx, query.PlayerTag, start, end, query.GameModes)
	if err != nil {
		return nil, fmt.Errorf("failed to read battles: %w", err)
	}

	e.logger.Debug().
		Str("player_tag", query.PlayerTag).
		Time("start", start).
		Time("end", end).
		Strs("game_modes", query.GameModes).
		Int("records", len(records)).
		Msg("records filtered for aggregation")

	return records, nil
}

// canonicalCards returns the deck in signature order so equal decks render
// identically no matter the input order.
func canonicalCards(cards []domain.Card) []domain.Card {
	sorted := make([]domain.Card, len(cards))
	copy(sorted, cards)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].EvolutionLevel != sorted[j].EvolutionLevel {
			return sorted[i].EvolutionLevel > sorted[j].EvolutionLevel
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

func maxCrowns(side []domain.Participant) int {
	max := 0
	for _, p := range side {
		if p.Crowns > max {
			max = p.Crowns
		}
	}
	return max
}

func rate(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
