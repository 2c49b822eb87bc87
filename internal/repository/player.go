package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"royale-meta/internal/domain"

	"github.com/rs/zerolog"
)

type PlayerRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewPlayerRepository(sqlDB *sql.DB, logger zerolog.Logger) *PlayerRepository {
	return &PlayerRepository{
		db:     sqlDB,
		logger: logger,
	}
}

// Upsert inserts the player or refreshes its statistics. Idempotent by tag.
func (r *PlayerRepository) Upsert(ctx context.Context, player *domain.Player) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO players (player_tag, name, trophies, best_trophies, wins, losses, battle_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (player_tag) DO UPDATE SET
			name = excluded.name,
			trophies = excluded.trophies,
			best_trophies = excluded.best_trophies,
			wins = excluded.wins,
			losses = excluded.losses,
			battle_count = excluded.battle_count,
			updated_at = excluded.updated_at`,
		player.Tag, player.Name, player.Trophies, player.BestTrophies,
		player.Wins, player.Losses, player.BattleCount, time.Now().UTC(), time.Now().UTC(),
	)
	if err != nil {
		r.logger.Error().Err(err).Str("tag", player.Tag).Msg("failed to upsert player")
		return fmt.Errorf("failed to upsert player %s: %w", player.Tag, err)
	}
	return nil
}

// EnsureExists inserts a bare player row when the tag is unseen. Battle
// participants reference players by tag, so the row must exist before the
// battle_players insert even when the full profile was never fetched.
func (r *PlayerRepository) EnsureExists(ctx context.Context, tag string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO players (player_tag) VALUES (?)
		ON CONFLICT (player_tag) DO NOTHING`,
		tag,
	)
	if err != nil {
		return fmt.Errorf("failed to ensure player %s: %w", tag, err)
	}
	return nil
}

func (r *PlayerRepository) Get(ctx context.Context, tag string) (*domain.Player, error) {
	var p domain.Player
	err := r.db.QueryRowContext(ctx, `
		SELECT player_tag, name, trophies, best_trophies, wins, losses, battle_count, created_at, updated_at
		FROM players WHERE player_tag = ?`,
		tag,
	).Scan(&p.Tag, &p.Name, &p.Trophies, &p.BestTrophies, &p.Wins, &p.Losses, &p.BattleCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PlayerRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM players`).Scan(&n)
	return n, err
}
