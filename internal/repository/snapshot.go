package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"royale-meta/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type SnapshotRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewSnapshotRepository(sqlDB *sql.DB, logger zerolog.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		db:     sqlDB,
		logger: logger,
	}
}

// Save persists a meta snapshot with its per-card and per-deck aggregates in
// one transaction and returns the snapshot id.
func (r *SnapshotRepository) Save(ctx context.Context, snapshot *domain.MetaSnapshot, cardStats []domain.CardStat, deckStats []domain.DeckStat) (string, error) {
	id := snapshot.ID
	if id == "" {
		id = uuid.New().String()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO meta_snapshots (snapshot_id, taken_at, sample_size, total_decks, description)
		VALUES (?, ?, ?, ?, ?)`,
		id, time.Now().UTC(), snapshot.SampleSize, snapshot.TotalDecks, snapshot.Description,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert snapshot: %w", err)
	}

	for _, cs := range cardStats {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO card_snapshot_stats (snapshot_id, card_id, games_played, games_won, win_rate, pick_rate)
			VALUES (?, ?, ?, ?, ?, ?)`,
			id, cs.CardID, cs.GamesPlayed, cs.GamesWon, cs.WinRate, cs.PickRate,
		)
		if err != nil {
			return "", fmt.Errorf("failed to insert card stat %d: %w", cs.CardID, err)
		}
	}

	for _, ds := range deckStats {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO deck_snapshot_stats (snapshot_id, deck_id, games_played, games_won, win_rate, pick_rate)
			VALUES (?, ?, ?, ?, ?, ?)`,
			id, ds.DeckID, ds.GamesPlayed, ds.GamesWon, ds.WinRate, ds.PickRate,
		)
		if err != nil {
			return "", fmt.Errorf("failed to insert deck stat %d: %w", ds.DeckID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}

	r.logger.Info().
		Str("snapshot_id", id).
		Int("sample_size", snapshot.SampleSize).
		Int("total_decks", snapshot.TotalDecks).
		Msg("meta snapshot saved")
	return id, nil
}
