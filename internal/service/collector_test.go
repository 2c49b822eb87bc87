package service

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"royale-meta/internal/api"
	"royale-meta/internal/config"
	"royale-meta/internal/database"
	"royale-meta/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	cfg := &config.Config{DBPath: filepath.Join(t.TempDir(), "royale.db")}
	db, err := database.New(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newCollector(t *testing.T, clash *fakeClash) (*CollectorService, *sql.DB) {
	t.Helper()
	db := testDB(t)
	nop := zerolog.Nop()
	cfg := &config.Config{BattleLogLimit: 25}
	svc := NewCollectorService(
		clash,
		cfg,
		repository.NewPlayerRepository(db, nop),
		repository.NewCardRepository(db, nop),
		repository.NewDeckRepository(db, nop),
		repository.NewBattleRepository(db, nop),
		repository.NewRunRepository(db, nop),
		nop,
	)
	return svc, db
}

func catalog() []api.CardItem {
	items := make([]api.CardItem, 0, 8)
	for id := 1; id <= 8; id++ {
		items = append(items, api.CardItem{ID: id, Name: "Card", Rarity: "common", ElixirCost: id%5 + 1})
	}
	return items
}

func deck(ids ...int) []api.BattleLogCard {
	cards := make([]api.BattleLogCard, 0, len(ids))
	for _, id := range ids {
		cards = append(cards, api.BattleLogCard{ID: id, Name: "Card"})
	}
	return cards
}

func ladderBattle(battleTime string, team, opponent api.BattleLogPlayer) api.BattleLogEntry {
	entry := api.BattleLogEntry{
		Type:       "PvP",
		BattleTime: battleTime,
		Team:       []api.BattleLogPlayer{team},
		Opponent:   []api.BattleLogPlayer{opponent},
	}
	entry.GameMode.Name = "Ladder"
	return entry
}

func TestCollector_Idempotent(t *testing.T) {
	clash := newFakeClash()
	clash.cards = catalog()
	clash.players["#AAA"] = &api.PlayerResponse{Tag: "#AAA", Name: "One", Trophies: 5000}
	clash.battleLogs["#AAA"] = []api.BattleLogEntry{
		ladderBattle("20250830T120000.000Z",
			api.BattleLogPlayer{Tag: "#AAA", Crowns: 2, Cards: deck(1, 2, 3, 4, 5, 6, 7, 8)},
			api.BattleLogPlayer{Tag: "#BBB", Crowns: 1, Cards: deck(1, 2, 3, 4, 5, 6, 7, 8)}),
		ladderBattle("20250830T121000.000Z",
			api.BattleLogPlayer{Tag: "#AAA", Crowns: 0, Cards: deck(1, 2, 3, 4, 5, 6, 7, 8)},
			api.BattleLogPlayer{Tag: "#CCC", Crowns: 3, Cards: deck(1, 2, 3, 4, 5, 6, 7, 8)}),
	}

	svc, db := newCollector(t, clash)
	battles := repository.NewBattleRepository(db, zerolog.Nop())
	decks := repository.NewDeckRepository(db, zerolog.Nop())

	first, err := svc.Run(context.Background(), []string{"#AAA"})
	require.NoError(t, err)
	assert.Equal(t, 2, first.BattlesSaved)

	battleCount, participantCount, err := battles.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, battleCount)
	assert.Equal(t, 4, participantCount)

	second, err := svc.Run(context.Background(), []string{"#AAA"})
	require.NoError(t, err)
	assert.Equal(t, 0, second.BattlesSaved)

	battleCount2, participantCount2, err := battles.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, battleCount, battleCount2)
	assert.Equal(t, participantCount, participantCount2)

	deckCount, err := decks.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, deckCount)
}

func TestCollector_NotFoundRecordedAndBatchContinues(t *testing.T) {
	clash := newFakeClash()
	clash.cards = catalog()
	clash.players["#Y"] = &api.PlayerResponse{Tag: "#Y", Name: "Present", Trophies: 4200}

	svc, db := newCollector(t, clash)

	result, err := svc.Run(context.Background(), []string{"#X", "#Y"})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, []string{"#X"}, result.Unresolved)
	assert.Empty(t, result.Failed)

	players := repository.NewPlayerRepository(db, zerolog.Nop())
	stored, err := players.Get(context.Background(), "#Y")
	require.NoError(t, err)
	assert.Equal(t, "Present", stored.Name)

	_, err = players.Get(context.Background(), "#X")
	assert.Error(t, err)
}

func TestCollector_DeckDedupByCanonicalHash(t *testing.T) {
	clash := newFakeClash()
	clash.cards = catalog()
	clash.players["#AAA"] = &api.PlayerResponse{Tag: "#AAA", Trophies: 5000}
	// same eight cards, shuffled per battle
	clash.battleLogs["#AAA"] = []api.BattleLogEntry{
		ladderBattle("20250830T120000.000Z",
			api.BattleLogPlayer{Tag: "#AAA", Crowns: 1, Cards: deck(8, 7, 6, 5, 4, 3, 2, 1)},
			api.BattleLogPlayer{Tag: "#BBB", Crowns: 0, Cards: deck(3, 1, 4, 2, 8, 6, 5, 7)}),
		ladderBattle("20250830T121000.000Z",
			api.BattleLogPlayer{Tag: "#AAA", Crowns: 2, Cards: deck(1, 2, 3, 4, 5, 6, 7, 8)},
			api.BattleLogPlayer{Tag: "#DDD", Crowns: 1, Cards: deck(5, 6, 7, 8, 1, 2, 3, 4)}),
	}

	svc, db := newCollector(t, clash)

	result, err := svc.Run(context.Background(), []string{"#AAA"})
	require.NoError(t, err)
	assert.Equal(t, 2, result.BattlesSaved)

	decks := repository.NewDeckRepository(db, zerolog.Nop())
	count, err := decks.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCollector_PartialDeckStoredWithoutReference(t *testing.T) {
	clash := newFakeClash()
	clash.cards = catalog()
	clash.players["#AAA"] = &api.PlayerResponse{Tag: "#AAA", Trophies: 5000}
	clash.battleLogs["#AAA"] = []api.BattleLogEntry{
		ladderBattle("20250830T120000.000Z",
			api.BattleLogPlayer{Tag: "#AAA", Crowns: 1, Cards: deck(1, 2, 3)},
			api.BattleLogPlayer{Tag: "#BBB", Crowns: 0, Cards: deck(4, 5)}),
	}

	svc, db := newCollector(t, clash)

	result, err := svc.Run(context.Background(), []string{"#AAA"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.BattlesSaved)

	decks := repository.NewDeckRepository(db, zerolog.Nop())
	count, err := decks.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
