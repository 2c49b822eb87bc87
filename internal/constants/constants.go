package constants

import "time"

const (
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RequestTimeout     = 30 * time.Second
)

const (
	DBMaxOpenConns    = 1
	DBMaxIdleConns    = 1
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	DeckSize         = 8
	BattleLogCap     = 25
	ProgressLogEvery = 50
	RetryBaseDelay   = 500 * time.Millisecond
)

// Minimum sample floors and cutoffs for the report tables.
const (
	CardWinRateMinUses = 100
	MetaScoreMinUses   = 50
	PairMinUses        = 50
	TopUsedCards       = 25
	TopWinRateCards    = 20
	TopMetaCards       = 20
	TopSynergyPairs    = 20
	TopDecks           = 15
)

const (
	ShutdownTimeout = 5 * time.Second
)
