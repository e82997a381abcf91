// Package normalizer turns raw battle log payloads into canonical battle
// records: duel round expansion, card level remap, field pruning and result
// derivation.
package normalizer

import (
	"errors"
	"fmt"
	"time"
	"royale-tracker/internal/api"
	"royale-tracker/internal/domain"

	"github.com/rs/zerolog"
)

// ErrInvalidPayload marks a battle entry that fails structural validation.
// Such entries are skipped, never inserted; the cycle continues.
var ErrInvalidPayload = errors.New("invalid battle payload")

// The API still returns the legacy per-rarity level scale. On the unified
// scale rarities only differ in starting level: common 1, rare 3, epic 6,
// legendary 9, champion 11.
var rarityLevelOffsets = map[string]int{
	"common":    0,
	"rare":      2,
	"epic":      5,
	"legendary": 8,
	"champion":  10,
}

type Normalizer struct {
	logger zerolog.Logger
}

func New(logger zerolog.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// NormalizeBattleLog converts one player's battle log into canonical
// records. Invalid entries are logged and dropped.
func (n *Normalizer) NormalizeBattleLog(battles []api.RawBattle, referenceTag string) []domain.BattleRecord {
	records := make([]domain.BattleRecord, 0, len(battles))
	for _, battle := range battles {
		expanded, err := n.NormalizeBattle(battle, referenceTag)
		if err != nil {
			n.logger.Warn().
				Err(err).
				Str("player_tag", referenceTag).
				Str("battle_time", battle.BattleTime).
				Msg("skipping invalid battle payload")
			continue
		}
		records = append(records, expanded...)
	}
	return records
}

// NormalizeBattle produces the canonical records for one raw battle:
// exactly one for a regular match, one per round for a duel.
func (n *Normalizer) NormalizeBattle(battle api.RawBattle, referenceTag string) ([]domain.BattleRecord, error) {
	if err := validate(battle); err != nil {
		return nil, err
	}

	baseTime, err := time.Parse(api.BattleTimeLayout, battle.BattleTime)
	if err != nil {
		return nil, fmt.Errorf("%w: unparseable battleTime %q", ErrInvalidPayload, battle.BattleTime)
	}
	baseTime = baseTime.UTC()

	rounds := roundCount(battle)
	if rounds == 0 {
		record := buildRecord(battle, baseTime, referenceTag, -1)
		return []domain.BattleRecord{record}, nil
	}

	// One standalone record per duel round. Round i gets battleTime
	// base+i seconds so the expanded set stays strictly increasing and
	// distinct under the (tag, battleTime) key. An unrelated genuine
	// battle landing on the same offset is treated as a duplicate and
	// skipped at insert, a known limitation.
	records := make([]domain.BattleRecord, 0, rounds)
	for i := 0; i < rounds; i++ {
		record := buildRecord(battle, baseTime.Add(time.Duration(i)*time.Second), referenceTag, i)
		records = append(records, record)
	}
	return records, nil
}

func validate(battle api.RawBattle) error {
	if battle.BattleTime == "" {
		return fmt.Errorf("%w: missing battleTime", ErrInvalidPayload)
	}
	if battle.GameMode.Name == "" {
		return fmt.Errorf("%w: missing gameMode", ErrInvalidPayload)
	}
	if battle.Arena.Name == "" {
		return fmt.Errorf("%w: missing arena", ErrInvalidPayload)
	}
	if len(battle.Team) == 0 {
		return fmt.Errorf("%w: empty team", ErrInvalidPayload)
	}
	if len(battle.Opponent) == 0 {
		return fmt.Errorf("%w: empty opponent", ErrInvalidPayload)
	}
	for _, p := range append(append([]api.RawParticipant{}, battle.Team...), battle.Opponent...) {
		if p.Cards == nil && p.Rounds == nil {
			return fmt.Errorf("%w: participant %q has no cards", ErrInvalidPayload, p.Tag)
		}
	}
	return nil
}

// roundCount returns the duel round count, 0 for regular battles.
func roundCount(battle api.RawBattle) int {
	count := 0
	for _, p := range battle.Team {
		if len(p.Rounds) > count {
			count = len(p.Rounds)
		}
	}
	for _, p := range battle.Opponent {
		if len(p.Rounds) > count {
			count = len(p.Rounds)
		}
	}
	return count
}

// buildRecord assembles one canonical record. round < 0 means a regular
// battle; otherwise the participants' per-round values replace the outer
// fields.
func buildRecord(battle api.RawBattle, battleTime time.Time, referenceTag string, round int) domain.BattleRecord {
	team := normalizeSide(battle.Team, round)
	opponent := normalizeSide(battle.Opponent, round)

	return domain.BattleRecord{
		BattleTime:         battleTime,
		ReferencePlayerTag: referenceTag,
		Team:               team,
		Opponent:           opponent,
		GameMode:           battle.GameMode.Name,
		Arena:              battle.Arena.Name,
		GameResult:         deriveResult(team, opponent),
	}
}

func normalizeSide(side []api.RawParticipant, round int) []domain.Participant {
	participants := make([]domain.Participant, 0, len(side))
	for _, raw := range side {
		p := domain.Participant{
			Tag:                raw.Tag,
			Name:               raw.Name,
			Crowns:             raw.Crowns,
			KingTowerHitPoints: raw.KingTowerHitPoints,
			PrincessTowersHP:   raw.PrincessTowersHitPoints,
			ElixirLeaked:       raw.ElixirLeaked,
			Cards:              normalizeCards(raw.Cards),
			SupportCards:       normalizeCards(raw.SupportCards),
		}

		if round >= 0 && round < len(raw.Rounds) {
			r := raw.Rounds[round]
			p.Crowns = r.Crowns
			p.KingTowerHitPoints = r.KingTowerHitPoints
			p.PrincessTowersHP = r.PrincessTowersHitPoints
			p.ElixirLeaked = r.ElixirLeaked
			p.Cards = normalizeCards(r.Cards)
		}

		participants = append(participants, p)
	}
	return participants
}

// normalizeCards remaps levels onto the unified scale and prunes the
// metadata analytics never needs. ID and name are both kept so stored data
// survives card id changes.
func normalizeCards(cards []api.RawCard) []domain.Card {
	normalized := make([]domain.Card, 0, len(cards))
	for _, raw := range cards {
		normalized = append(normalized, domain.Card{
			ID:             raw.ID,
			Name:           raw.Name,
			Level:          raw.Level + rarityLevelOffsets[raw.Rarity],
			EvolutionLevel: raw.EvolutionLevel,
		})
	}
	return normalized
}

// deriveResult compares max crowns per side. Max rather than sum avoids
// double counting in multi-participant modes.
func deriveResult(team, opponent []domain.Participant) domain.GameResult {
	teamCrowns := maxCrowns(team)
	opponentCrowns := maxCrowns(opponent)

	switch {
	case teamCrowns > opponentCrowns:
		return domain.ResultVictory
	case teamCrowns < opponentCrowns:
		return domain.ResultDefeat
	default:
		return domain.ResultDraw
	}
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
