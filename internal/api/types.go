package api

// BattleTimeLayout is the compact UTC format of battle timestamps
// ("20250801T191245.000Z").
const BattleTimeLayout = "20060102T150405.000Z"

// RawBattle is one battle log entry as the API returns it. The legacy level
// scale, icon metadata and clan blocks get dropped during normalization.
type RawBattle struct {
	// set on the maintenance sentinel payload instead of battle data
	Reason string `json:"reason"`

	BattleTime string `json:"battleTime"`
	Type       string `json:"type"`
	GameMode   struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"gameMode"`
	Arena struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"arena"`
	DeckSelection      string           `json:"deckSelection"`
	IsLadderTournament bool             `json:"isLadderTournament"`
	IsHostedMatch      bool             `json:"isHostedMatch"`
	LeagueNumber       int              `json:"leagueNumber"`
	Team               []RawParticipant `json:"team"`
	Opponent           []RawParticipant `json:"opponent"`
}

type RawParticipant struct {
	Tag                     string    `json:"tag"`
	Name                    string    `json:"name"`
	Crowns                  int       `json:"crowns"`
	KingTowerHitPoints      int       `json:"kingTowerHitPoints"`
	PrincessTowersHitPoints []int     `json:"princessTowersHitPoints"`
	ElixirLeaked            float64   `json:"elixirLeaked"`
	GlobalRank              int       `json:"globalRank"`
	Clan                    *RawClan  `json:"clan"`
	Cards                   []RawCard `json:"cards"`
	SupportCards            []RawCard `json:"supportCards"`

	// present on duel battles only, one entry per round
	Rounds []RawRound `json:"rounds"`
}

// RawRound carries the per-round values that replace the outer participant
// fields when a duel is expanded.
type RawRound struct {
	Crowns                  int       `json:"crowns"`
	KingTowerHitPoints      int       `json:"kingTowerHitPoints"`
	PrincessTowersHitPoints []int     `json:"princessTowersHitPoints"`
	ElixirLeaked            float64   `json:"elixirLeaked"`
	Cards                   []RawCard `json:"cards"`
}

type RawClan struct {
	Tag  string `json:"tag"`
	Name string `json:"name"`
}

type RawCard struct {
	ID                int            `json:"id"`
	Name              string         `json:"name"`
	Level             int            `json:"level"`
	MaxLevel          int            `json:"maxLevel"`
	Rarity            string         `json:"rarity"`
	EvolutionLevel    int            `json:"evolutionLevel"`
	MaxEvolutionLevel int            `json:"maxEvolutionLevel"`
	StarLevel         int            `json:"starLevel"`
	ElixirCost        int            `json:"elixirCost"`
	Used              bool           `json:"used"`
	IconUrls          map[string]any `json:"iconUrls"`
}
