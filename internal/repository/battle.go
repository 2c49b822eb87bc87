package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"royale-meta/internal/domain"

	"github.com/rs/zerolog"
)

type BattleRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewBattleRepository(sqlDB *sql.DB, logger zerolog.Logger) *BattleRepository {
	return &BattleRepository{
		db:     sqlDB,
		logger: logger,
	}
}

func (r *BattleRepository) Exists(ctx context.Context, battleID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM battles WHERE battle_id = ?`, battleID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check battle %s: %w", battleID, err)
	}
	return true, nil
}

// Insert writes a battle and its two participant rows in one transaction.
// Battles are immutable once recorded; callers check Exists first and skip
// duplicates, so a conflict here is treated as already-recorded.
func (r *BattleRepository) Insert(ctx context.Context, battle *domain.Battle, participants []domain.BattlePlayer) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO battles (battle_id, battle_time, fought_at, battle_type, game_mode, arena_name, is_ladder)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (battle_id) DO NOTHING`,
		battle.ID, battle.BattleTime, battle.FoughtAt, battle.BattleType,
		battle.GameMode, battle.ArenaName, battle.IsLadder,
	)
	if err != nil {
		return fmt.Errorf("failed to insert battle %s: %w", battle.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return tx.Commit()
	}

	for _, p := range participants {
		var deckID any
		if p.DeckID != 0 {
			deckID = p.DeckID
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO battle_players (battle_id, team_side, player_tag, deck_id, starting_trophies, trophy_change, crowns, is_winner)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			p.BattleID, p.TeamSide, p.PlayerTag, deckID,
			p.StartingTrophies, p.TrophyChange, p.Crowns, p.IsWinner,
		)
		if err != nil {
			return fmt.Errorf("failed to insert battle player %s/%d: %w", p.BattleID, p.TeamSide, err)
		}
	}

	return tx.Commit()
}

// LadderDeckResult is one side of a stored ladder battle: the deck played
// and whether it won.
type LadderDeckResult struct {
	DeckID int64
	Won    bool
}

// LadderDeckResults streams every ladder battle side that has a deck
// attached, the analyzer's read-side input.
func (r *BattleRepository) LadderDeckResults(ctx context.Context) ([]LadderDeckResult, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT bp.deck_id, bp.is_winner
		FROM battle_players bp
		JOIN battles b ON b.battle_id = bp.battle_id
		WHERE b.is_ladder = TRUE AND bp.deck_id IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("failed to query ladder results: %w", err)
	}
	defer rows.Close()

	var out []LadderDeckResult
	for rows.Next() {
		var res LadderDeckResult
		if err := rows.Scan(&res.DeckID, &res.Won); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r *BattleRepository) Counts(ctx context.Context) (battles, participants int, err error) {
	if err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM battles`).Scan(&battles); err != nil {
		return 0, 0, err
	}
	if err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM battle_players`).Scan(&participants); err != nil {
		return 0, 0, err
	}
	return battles, participants, nil
}
