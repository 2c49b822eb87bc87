package domain

import (
	"time"
)

type Player struct {
	Tag          string
	Name         string
	Trophies     int
	BestTrophies int
	Wins         int
	Losses       int
	BattleCount  int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Card struct {
	ID         int
	Name       string
	Rarity     string
	ElixirCost int
	IconURL    string
}

type Deck struct {
	ID        int64
	Hash      string
	AvgElixir float64
	CardIDs   []int
	CreatedAt time.Time
}

type Battle struct {
	ID         string
	BattleTime string // raw API timestamp, used for the battle id
	FoughtAt   time.Time
	BattleType string
	GameMode   string
	ArenaName  string
	IsLadder   bool
}

type BattlePlayer struct {
	BattleID         string
	TeamSide         int // 0 = team, 1 = opponent
	PlayerTag        string
	DeckID           int64
	StartingTrophies int
	TrophyChange     int
	Crowns           int
	IsWinner         bool
}

type CollectionRun struct {
	ID             string // nanoid
	StartedAt      time.Time
	FinishedAt     time.Time
	TagsTotal      int
	TagsUnresolved int
	BattlesSaved   int
}

type MetaSnapshot struct {
	ID          string // uuid
	TakenAt     time.Time
	SampleSize  int
	TotalDecks  int
	Description string
}

type CardStat struct {
	CardID      int
	GamesPlayed int
	GamesWon    int
	WinRate     float64
	PickRate    float64
}

type DeckStat struct {
	DeckID      int64
	GamesPlayed int
	GamesWon    int
	WinRate     float64
	PickRate    float64
}
