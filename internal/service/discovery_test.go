package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"royale-meta/internal/api"
	"royale-meta/internal/config"
	"royale-meta/internal/tags"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClash serves canned API responses keyed by tag and counts lookups so
// tests can assert each tag is processed at most once.
type fakeClash struct {
	players     map[string]*api.PlayerResponse
	battleLogs  map[string][]api.BattleLogEntry
	cards       []api.CardItem
	playerCalls map[string]int
	logCalls    map[string]int
}

func newFakeClash() *fakeClash {
	return &fakeClash{
		players:     make(map[string]*api.PlayerResponse),
		battleLogs:  make(map[string][]api.BattleLogEntry),
		playerCalls: make(map[string]int),
		logCalls:    make(map[string]int),
	}
}

func (f *fakeClash) GetPlayer(_ context.Context, tag string) (*api.PlayerResponse, error) {
	f.playerCalls[tag]++
	player, ok := f.players[tag]
	if !ok {
		return nil, api.ErrNotFound
	}
	return player, nil
}

func (f *fakeClash) GetBattleLog(_ context.Context, tag string) ([]api.BattleLogEntry, error) {
	f.logCalls[tag]++
	return f.battleLogs[tag], nil
}

func (f *fakeClash) GetCards(_ context.Context) ([]api.CardItem, error) {
	return f.cards, nil
}

func pvpBattle(battleTime, selfTag string, opponents ...api.BattleLogPlayer) api.BattleLogEntry {
	entry := api.BattleLogEntry{
		Type:       "PvP",
		BattleTime: battleTime,
		Team:       []api.BattleLogPlayer{{Tag: selfTag}},
		Opponent:   opponents,
	}
	entry.GameMode.Name = "Ladder"
	return entry
}

func discoveryConfig(t *testing.T, target int) *config.Config {
	t.Helper()
	return &config.Config{
		TagFile:         filepath.Join(t.TempDir(), "player_tags.txt"),
		SeedTags:        []string{"#AAA"},
		TargetPerBucket: target,
		BucketBounds:    []int{4000, 8000, 10000},
		RequestInterval: time.Millisecond,
	}
}

func TestDiscovery_BucketsOpponentsByStartingTrophies(t *testing.T) {
	clash := newFakeClash()
	clash.players["#AAA"] = &api.PlayerResponse{Tag: "#AAA", Trophies: 3500}
	clash.battleLogs["#AAA"] = []api.BattleLogEntry{
		pvpBattle("20250830T120000.000Z", "#AAA",
			api.BattleLogPlayer{Tag: "#BBB", StartingTrophies: 3500}),
		pvpBattle("20250830T121000.000Z", "#AAA",
			api.BattleLogPlayer{Tag: "#CCC", StartingTrophies: 4200}),
		// self-reference must not be re-enqueued
		pvpBattle("20250830T122000.000Z", "#AAA",
			api.BattleLogPlayer{Tag: "#AAA", StartingTrophies: 3500}),
	}

	svc := NewDiscoveryService(clash, discoveryConfig(t, 10), zerolog.Nop())
	result, err := svc.Crawl(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"#AAA", "#BBB"}, result.TagsByBucket[0])
	assert.Equal(t, []string{"#CCC"}, result.TagsByBucket[1])
	assert.Equal(t, 3, result.Total())
	assert.Equal(t, 0, result.Failed)

	// one battle log fetch per tag, never a repeat
	for tag, calls := range clash.logCalls {
		assert.Equal(t, 1, calls, "tag %s fetched %d times", tag, calls)
	}
	// only the seed needs a profile lookup
	assert.Equal(t, 1, clash.playerCalls["#AAA"])
	assert.Zero(t, clash.playerCalls["#BBB"])
}

func TestDiscovery_RespectsBucketTarget(t *testing.T) {
	clash := newFakeClash()
	clash.players["#AAA"] = &api.PlayerResponse{Tag: "#AAA", Trophies: 3500}
	clash.battleLogs["#AAA"] = []api.BattleLogEntry{
		pvpBattle("20250830T120000.000Z", "#AAA",
			api.BattleLogPlayer{Tag: "#BBB", StartingTrophies: 3600},
			api.BattleLogPlayer{Tag: "#DDD", StartingTrophies: 3700}),
	}

	svc := NewDiscoveryService(clash, discoveryConfig(t, 1), zerolog.Nop())
	result, err := svc.Crawl(context.Background())
	require.NoError(t, err)

	for i, bucket := range result.TagsByBucket {
		assert.LessOrEqual(t, len(bucket), 1, "bucket %d over target", i)
	}
	assert.Equal(t, []string{"#AAA"}, result.TagsByBucket[0])
}

func TestDiscovery_FailedSeedSkipped(t *testing.T) {
	clash := newFakeClash()

	cfg := discoveryConfig(t, 5)
	cfg.SeedTags = []string{"#GONE", "#AAA"}
	clash.players["#AAA"] = &api.PlayerResponse{Tag: "#AAA", Trophies: 9000}

	svc := NewDiscoveryService(clash, cfg, zerolog.Nop())
	result, err := svc.Crawl(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, []string{"#AAA"}, result.TagsByBucket[2])
}

func TestDiscovery_NoSeeds(t *testing.T) {
	cfg := discoveryConfig(t, 5)
	cfg.SeedTags = nil

	svc := NewDiscoveryService(newFakeClash(), cfg, zerolog.Nop())
	_, err := svc.Crawl(context.Background())
	assert.Error(t, err)
}

func TestDiscovery_RunWritesTagFile(t *testing.T) {
	clash := newFakeClash()
	clash.players["#AAA"] = &api.PlayerResponse{Tag: "#AAA", Trophies: 3500}
	clash.battleLogs["#AAA"] = []api.BattleLogEntry{
		pvpBattle("20250830T120000.000Z", "#AAA",
			api.BattleLogPlayer{Tag: "#CCC", StartingTrophies: 4200}),
	}

	cfg := discoveryConfig(t, 10)
	svc := NewDiscoveryService(clash, cfg, zerolog.Nop())
	_, err := svc.Run(context.Background())
	require.NoError(t, err)

	got, err := tags.Read(cfg.TagFile)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"#AAA", "#CCC"}, got)
}
