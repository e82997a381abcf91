package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

type GameResult string

const (
	ResultVictory GameResult = "victory"
	ResultDefeat  GameResult = "defeat"
	ResultDraw    GameResult = "draw"
)

// Card level is on the unified 1..15 scale; the normalizer remaps the
// legacy per-rarity levels the API still returns.
type Card struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	Level          int    `json:"level"`
	EvolutionLevel int    `json:"evolutionLevel"`
}

type Participant struct {
	Tag                string  `json:"tag"`
	Name               string  `json:"name"`
	Crowns             int     `json:"crowns"`
	KingTowerHitPoints int     `json:"kingTowerHitPoints"`
	PrincessTowersHP   []int   `json:"princessTowersHitPoints"`
	ElixirLeaked       float64 `json:"elixirLeaked"`
	Cards              []Card  `json:"cards"`
	SupportCards       []Card  `json:"supportCards"`
}

// BattleRecord is the canonical, storage-ready representation of one played
// match (one round, for duels). (ReferencePlayerTag, BattleTime) is the
// de-facto unique key; duplicate inserts are skipped, never fatal.
type BattleRecord struct {
	BattleTime         time.Time     `json:"battleTime"`
	ReferencePlayerTag string        `json:"referencePlayerTag"`
	Team               []Participant `json:"team"`
	Opponent           []Participant `json:"opponent"`
	GameMode           string        `json:"gameMode"`
	Arena              string        `json:"arena"`
	GameResult         GameResult    `json:"gameResult"`
}

// ReferenceParticipant returns the team member matching the reference tag,
// falling back to the first team member when the tag is absent (old logs).
func (b *BattleRecord) ReferenceParticipant() *Participant {
	for i := range b.Team {
		if b.Team[i].Tag == b.ReferencePlayerTag {
			return &b.Team[i]
		}
	}
	if len(b.Team) > 0 {
		return &b.Team[0]
	}
	return nil
}

// DeckSignature is the order-independent grouping key for a deck: the
// participant's (id, evolutionLevel) pairs sorted by evolution level
// descending, then id ascending. Any permutation of the same cards yields
// the same signature.
func DeckSignature(cards []Card) string {
	sorted := make([]Card, len(cards))
	copy(sorted, cards)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].EvolutionLevel != sorted[j].EvolutionLevel {
			return sorted[i].EvolutionLevel > sorted[j].EvolutionLevel
		}
		return sorted[i].ID < sorted[j].ID
	})

	parts := make([]string, len(sorted))
	for i, c := range sorted {
		parts[i] = fmt.Sprintf("%d:%d", c.ID, c.EvolutionLevel)
	}
	return strings.Join(parts, ",")
}

type Player struct {
	Tag       string
	Name      string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type GameMode struct {
	Name     string
	LastSeen time.Time
}

// InsertResult reports the outcome of a bulk battle insert. Duplicates of
// the (tag, battleTime) key are counted, not raised.
type InsertResult struct {
	Inserted         int
	SkippedDuplicate int
	Failed           int
}

func (r InsertResult) Total() int {
	return r.Inserted + r.SkippedDuplicate + r.Failed
}
