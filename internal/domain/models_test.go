package domain

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeckSignatureOrderInvariant(t *testing.T) {
	deck := []Card{
		{ID: 26000030, Name: "Skeletons", EvolutionLevel: 1},
		{ID: 26000000, Name: "Knight", EvolutionLevel: 1},
		{ID: 26000014, Name: "Musketeer", EvolutionLevel: 0},
		{ID: 28000000, Name: "Fireball", EvolutionLevel: 0},
		{ID: 26000010, Name: "Golem", EvolutionLevel: 0},
		{ID: 27000000, Name: "Cannon", EvolutionLevel: 0},
		{ID: 28000011, Name: "The Log", EvolutionLevel: 0},
		{ID: 26000038, Name: "Mega Knight", EvolutionLevel: 0},
	}

	want := DeckSignature(deck)
	for i := 0; i < 20; i++ {
		shuffled := make([]Card, len(deck))
		copy(shuffled, deck)
		rand.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		assert.Equal(t, want, DeckSignature(shuffled))
	}
}

func TestDeckSignatureSortsEvolutionFirstThenID(t *testing.T) {
	sig := DeckSignature([]Card{
		{ID: 5, EvolutionLevel: 0},
		{ID: 9, EvolutionLevel: 1},
		{ID: 3, EvolutionLevel: 0},
		{ID: 1, EvolutionLevel: 1},
	})
	assert.Equal(t, "1:1,9:1,3:0,5:0", sig)
}

func TestDeckSignatureDistinguishesEvolutionLevels(t *testing.T) {
	plain := DeckSignature([]Card{{ID: 1, EvolutionLevel: 0}, {ID: 2, EvolutionLevel: 0}})
	evolved := DeckSignature([]Card{{ID: 1, EvolutionLevel: 1}, {ID: 2, EvolutionLevel: 0}})
	assert.NotEqual(t, plain, evolved)
}

func TestReferenceParticipant(t *testing.T) {
	record := BattleRecord{
		ReferencePlayerTag: "#AAA",
		Team: []Participant{
			{Tag: "#TEAMMATE"},
			{Tag: "#AAA"},
		},
	}
	assert.Equal(t, "#AAA", record.ReferenceParticipant().Tag)

	// falls back to the first team member when the tag is absent
	record.ReferencePlayerTag = "#MISSING"
	assert.Equal(t, "#TEAMMATE", record.ReferenceParticipant().Tag)

	empty := BattleRecord{}
	assert.Nil(t, empty.ReferenceParticipant())
}
