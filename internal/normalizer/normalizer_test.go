package normalizer

import (
	"testing"
	"time"
	"royale-tracker/internal/api"
	"royale-tracker/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const referenceTag = "#YYRJQY28"

func rawCard(id int, name, rarity string, level int) api.RawCard {
	return api.RawCard{
		ID:       id,
		Name:     name,
		Rarity:   rarity,
		Level:    level,
		MaxLevel: 14,
		IconUrls: map[string]any{"medium": "https://example.invalid/card.png"},
	}
}

func rawBattle(teamCrowns, opponentCrowns int) api.RawBattle {
	b := api.RawBattle{
		BattleTime: "20250801T191245.000Z",
	}
	b.GameMode.ID = 72000006
	b.GameMode.Name = "Ladder"
	b.Arena.ID = 54000050
	b.Arena.Name = "Legendary Arena"
	b.Team = []api.RawParticipant{{
		Tag:    referenceTag,
		Name:   "Morten",
		Crowns: teamCrowns,
		Cards:  []api.RawCard{rawCard(26000000, "Knight", "common", 14)},
	}}
	b.Opponent = []api.RawParticipant{{
		Tag:    "#OPPONENT1",
		Name:   "Rival",
		Crowns: opponentCrowns,
		Cards:  []api.RawCard{rawCard(26000001, "Archers", "common", 13)},
	}}
	return b
}

func TestCardLevelRemap(t *testing.T) {
	tests := []struct {
		rarity   string
		rawLevel int
		want     int
	}{
		{"common", 1, 1},
		{"rare", 1, 3},
		{"epic", 1, 6},
		{"legendary", 1, 9},
		{"champion", 1, 11},
		{"common", 14, 14},
		{"legendary", 6, 14},
	}

	for _, tt := range tests {
		t.Run(tt.rarity, func(t *testing.T) {
			cards := normalizeCards([]api.RawCard{rawCard(1, "Card", tt.rarity, tt.rawLevel)})
			require.Len(t, cards, 1)
			assert.Equal(t, tt.want, cards[0].Level)
		})
	}
}

func TestCardPruningKeepsIDAndName(t *testing.T) {
	cards := normalizeCards([]api.RawCard{rawCard(26000000, "Knight", "common", 14)})
	require.Len(t, cards, 1)
	assert.Equal(t, 26000000, cards[0].ID)
	assert.Equal(t, "Knight", cards[0].Name)
	assert.Equal(t, 0, cards[0].EvolutionLevel)
}

func TestResultDerivation(t *testing.T) {
	tests := []struct {
		name           string
		teamCrowns     int
		opponentCrowns int
		want           domain.GameResult
	}{
		{"victory", 3, 1, domain.ResultVictory},
		{"defeat", 1, 2, domain.ResultDefeat},
		{"draw", 0, 0, domain.ResultDraw},
	}

	n := New(zerolog.Nop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := n.NormalizeBattle(rawBattle(tt.teamCrowns, tt.opponentCrowns), referenceTag)
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.Equal(t, tt.want, records[0].GameResult)
		})
	}
}

func TestNormalizeBattleAttachesReferenceTagAndTime(t *testing.T) {
	n := New(zerolog.Nop())
	records, err := n.NormalizeBattle(rawBattle(2, 0), referenceTag)
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, referenceTag, records[0].ReferencePlayerTag)
	assert.Equal(t, time.Date(2025, 8, 1, 19, 12, 45, 0, time.UTC), records[0].BattleTime)
	assert.Equal(t, "Ladder", records[0].GameMode)
	assert.Equal(t, "Legendary Arena", records[0].Arena)
}

func TestDuelExpansion(t *testing.T) {
	battle := rawBattle(0, 0)
	battle.Team[0].Cards = nil
	battle.Opponent[0].Cards = nil
	battle.Team[0].Rounds = []api.RawRound{
		{Crowns: 1, Cards: []api.RawCard{rawCard(26000000, "Knight", "common", 14)}},
		{Crowns: 0, Cards: []api.RawCard{rawCard(26000002, "Giant", "rare", 12)}},
		{Crowns: 2, Cards: []api.RawCard{rawCard(26000003, "Witch", "epic", 9)}},
	}
	battle.Opponent[0].Rounds = []api.RawRound{
		{Crowns: 0, Cards: []api.RawCard{rawCard(26000010, "Golem", "epic", 9)}},
		{Crowns: 2, Cards: []api.RawCard{rawCard(26000011, "Miner", "legendary", 6)}},
		{Crowns: 1, Cards: []api.RawCard{rawCard(26000012, "Mortar", "common", 14)}},
	}

	n := New(zerolog.Nop())
	records, err := n.NormalizeBattle(battle, referenceTag)
	require.NoError(t, err)
	require.Len(t, records, 3)

	base := time.Date(2025, 8, 1, 19, 12, 45, 0, time.UTC)
	for i, record := range records {
		assert.Equal(t, base.Add(time.Duration(i)*time.Second), record.BattleTime, "round %d", i)
	}

	// round order and per-round values preserved
	assert.Equal(t, domain.ResultVictory, records[0].GameResult)
	assert.Equal(t, domain.ResultDefeat, records[1].GameResult)
	assert.Equal(t, domain.ResultVictory, records[2].GameResult)
	assert.Equal(t, "Giant", records[1].Team[0].Cards[0].Name)
	assert.Equal(t, 14, records[1].Team[0].Cards[0].Level) // rare 12 + 2
}

func TestValidationRejectsIncompletePayloads(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*api.RawBattle)
	}{
		{"missing battleTime", func(b *api.RawBattle) { b.BattleTime = "" }},
		{"unparseable battleTime", func(b *api.RawBattle) { b.BattleTime = "2025-08-01 19:12:45" }},
		{"missing gameMode", func(b *api.RawBattle) { b.GameMode.Name = "" }},
		{"missing arena", func(b *api.RawBattle) { b.Arena.Name = "" }},
		{"empty team", func(b *api.RawBattle) { b.Team = nil }},
		{"empty opponent", func(b *api.RawBattle) { b.Opponent = nil }},
		{"participant without cards", func(b *api.RawBattle) { b.Team[0].Cards = nil }},
	}

	n := New(zerolog.Nop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			battle := rawBattle(1, 0)
			tt.mutate(&battle)
			_, err := n.NormalizeBattle(battle, referenceTag)
			require.ErrorIs(t, err, ErrInvalidPayload)
		})
	}
}

func TestNormalizeBattleLogSkipsInvalidEntries(t *testing.T) {
	invalid := rawBattle(1, 0)
	invalid.Team = nil

	n := New(zerolog.Nop())
	records := n.NormalizeBattleLog([]api.RawBattle{rawBattle(3, 1), invalid, rawBattle(0, 0)}, referenceTag)
	assert.Len(t, records, 2)
}

func TestSupportCardsAreRemapped(t *testing.T) {
	battle := rawBattle(1, 0)
	battle.Team[0].SupportCards = []api.RawCard{rawCard(159000000, "Tower Princess", "rare", 12)}

	n := New(zerolog.Nop())
	records, err := n.NormalizeBattle(battle, referenceTag)
	require.NoError(t, err)
	require.Len(t, records[0].Team[0].SupportCards, 1)
	assert.Equal(t, 14, records[0].Team[0].SupportCards[0].Level)
}
