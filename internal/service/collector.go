package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"royale-meta/internal/api"
	"royale-meta/internal/config"
	"royale-meta/internal/constants"
	"royale-meta/internal/domain"
	"royale-meta/internal/repository"

	"github.com/rs/zerolog"
)

// CollectorService materializes player profiles and battle logs for a list of
// discovered tags. Re-running it over the same tag list changes no row
// counts: players upsert by tag, decks deduplicate by canonical hash, battles
// deduplicate by content id.
type CollectorService struct {
	client  ClashClient
	cfg     *config.Config
	players *repository.PlayerRepository
	cards   *repository.CardRepository
	decks   *repository.DeckRepository
	battles *repository.BattleRepository
	runs    *repository.RunRepository
	logger  zerolog.Logger

	cardCache map[int]domain.Card
}

func NewCollectorService(
	client ClashClient,
	cfg *config.Config,
	players *repository.PlayerRepository,
	cards *repository.CardRepository,
	decks *repository.DeckRepository,
	battles *repository.BattleRepository,
	runs *repository.RunRepository,
	logger zerolog.Logger,
) *CollectorService {
	return &CollectorService{
		client:  client,
		cfg:     cfg,
		players: players,
		cards:   cards,
		decks:   decks,
		battles: battles,
		runs:    runs,
		logger:  logger,
	}
}

// CollectResult summarizes one batch run. Unresolved holds tags the API
// reported as not found; they are warnings, not failures.
type CollectResult struct {
	RunID        string
	Processed    int
	Unresolved   []string
	Failed       []string
	BattlesSaved int
}

func (s *CollectorService) Run(ctx context.Context, tagList []string) (*CollectResult, error) {
	if err := s.syncCards(ctx); err != nil {
		return nil, err
	}

	runID, err := s.runs.Open(ctx, len(tagList))
	if err != nil {
		return nil, err
	}

	result := &CollectResult{RunID: runID}
	for _, raw := range tagList {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tag := domain.NormalizeTag(raw)
		result.Processed++

		saved, err := s.collectTag(ctx, tag)
		switch {
		case errors.Is(err, api.ErrNotFound):
			s.logger.Warn().Str("tag", tag).Msg("player not found, recorded as unresolvable")
			result.Unresolved = append(result.Unresolved, tag)
		case err != nil:
			s.logger.Error().Err(err).Str("tag", tag).Msg("failed to collect tag, continuing")
			result.Failed = append(result.Failed, tag)
		default:
			result.BattlesSaved += saved
		}

		if result.Processed%constants.ProgressLogEvery == 0 {
			s.logger.Info().
				Int("processed", result.Processed).
				Int("total", len(tagList)).
				Int("battles_saved", result.BattlesSaved).
				Msg("collection progress")
		}
	}

	if err := s.runs.Close(ctx, runID, len(result.Unresolved)+len(result.Failed), result.BattlesSaved); err != nil {
		s.logger.Warn().Err(err).Str("run_id", runID).Msg("failed to close collection run")
	}

	s.logger.Info().
		Str("run_id", runID).
		Int("processed", result.Processed).
		Int("unresolved", len(result.Unresolved)).
		Int("failed", len(result.Failed)).
		Int("battles_saved", result.BattlesSaved).
		Msg("collection complete")

	return result, nil
}

// syncCards loads the closed card catalog into the database and the
// in-memory cache used for average elixir computation.
func (s *CollectorService) syncCards(ctx context.Context) error {
	items, err := s.client.GetCards(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch card catalog: %w", err)
	}

	cards := make([]domain.Card, 0, len(items))
	for _, item := range items {
		cards = append(cards, domain.Card{
			ID:         item.ID,
			Name:       item.Name,
			Rarity:     item.Rarity,
			ElixirCost: item.ElixirCost,
			IconURL:    item.IconUrls.Medium,
		})
	}
	if err := s.cards.UpsertBatch(ctx, cards); err != nil {
		return err
	}

	s.cardCache, err = s.cards.GetAll(ctx)
	if err != nil {
		return err
	}
	s.logger.Info().Int("cards", len(s.cardCache)).Msg("card catalog synced")
	return nil
}

// collectTag fetches one player's profile and battle log and persists them.
// Returns the number of newly recorded battles.
func (s *CollectorService) collectTag(ctx context.Context, tag string) (int, error) {
	profile, err := s.client.GetPlayer(ctx, tag)
	if err != nil {
		return 0, err
	}

	player := &domain.Player{
		Tag:          domain.NormalizeTag(profile.Tag),
		Name:         profile.Name,
		Trophies:     profile.Trophies,
		BestTrophies: profile.BestTrophies,
		Wins:         profile.Wins,
		Losses:       profile.Losses,
		BattleCount:  profile.BattleCount,
	}
	if player.Tag == "" {
		player.Tag = tag
	}
	if err := s.players.Upsert(ctx, player); err != nil {
		return 0, err
	}

	battles, err := s.client.GetBattleLog(ctx, tag)
	if err != nil {
		return 0, err
	}
	if len(battles) > s.cfg.BattleLogLimit {
		battles = battles[:s.cfg.BattleLogLimit]
	}

	saved := 0
	for _, battle := range battles {
		ok, err := s.saveBattle(ctx, battle)
		if err != nil {
			s.logger.Debug().Err(err).Str("tag", tag).Msg("failed to save battle, continuing")
			continue
		}
		if ok {
			saved++
		}
	}
	return saved, nil
}

// saveBattle records one battle and both participants once. Returns false
// when the battle was already present or carries no usable participants.
func (s *CollectorService) saveBattle(ctx context.Context, entry api.BattleLogEntry) (bool, error) {
	if len(entry.Team) == 0 || len(entry.Opponent) == 0 {
		return false, nil
	}
	team := entry.Team[0]
	opponent := entry.Opponent[0]
	teamTag := domain.NormalizeTag(team.Tag)
	opponentTag := domain.NormalizeTag(opponent.Tag)
	if teamTag == "" || opponentTag == "" {
		return false, nil
	}

	battleID := domain.BattleID(entry.BattleTime, teamTag, opponentTag)
	exists, err := s.battles.Exists(ctx, battleID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	battle := &domain.Battle{
		ID:         battleID,
		BattleTime: entry.BattleTime,
		BattleType: entry.Type,
		GameMode:   entry.GameMode.Name,
		ArenaName:  entry.Arena.Name,
		IsLadder:   isLadderBattle(entry),
	}
	if t, err := api.ParseBattleTime(entry.BattleTime); err == nil {
		battle.FoughtAt = t
	}

	participants := make([]domain.BattlePlayer, 0, 2)
	for side, p := range []api.BattleLogPlayer{team, opponent} {
		tag := domain.NormalizeTag(p.Tag)
		if err := s.players.EnsureExists(ctx, tag); err != nil {
			return false, err
		}

		deckID, err := s.resolveDeck(ctx, p.Cards)
		if err != nil {
			return false, err
		}

		other := opponent
		if side == 1 {
			other = team
		}
		participants = append(participants, domain.BattlePlayer{
			BattleID:         battleID,
			TeamSide:         side,
			PlayerTag:        tag,
			DeckID:           deckID,
			StartingTrophies: p.StartingTrophies,
			TrophyChange:     p.TrophyChange,
			Crowns:           p.Crowns,
			IsWinner:         p.Crowns > other.Crowns,
		})
	}

	if err := s.battles.Insert(ctx, battle, participants); err != nil {
		return false, err
	}
	return true, nil
}

// resolveDeck maps a battle side's cards to a deck id, creating the deck the
// first time the canonical hash is seen. Sides without a full 8-card deck
// (2v2, boat battles) are stored with no deck reference.
func (s *CollectorService) resolveDeck(ctx context.Context, cards []api.BattleLogCard) (int64, error) {
	if len(cards) != constants.DeckSize {
		return 0, nil
	}

	cardIDs := make([]int, 0, constants.DeckSize)
	totalElixir := 0
	for _, c := range cards {
		if c.ID == 0 {
			return 0, nil
		}
		cardIDs = append(cardIDs, c.ID)
		if cached, ok := s.cardCache[c.ID]; ok {
			totalElixir += cached.ElixirCost
		} else if err := s.cards.EnsureExists(ctx, c.ID); err != nil {
			return 0, err
		}
	}

	avgElixir := float64(totalElixir) / float64(constants.DeckSize)
	return s.decks.GetOrCreate(ctx, cardIDs, avgElixir)
}

// isLadderBattle keeps the classification used by the analysis queries:
// ranked 1v1 ladder and Path of Legend only.
func isLadderBattle(entry api.BattleLogEntry) bool {
	if entry.Type != "PvP" {
		return false
	}
	mode := entry.GameMode.Name
	return strings.Contains(mode, "Ladder") ||
		strings.Contains(mode, "PathOfLegend") ||
		strings.Contains(mode, "Ranked")
}
