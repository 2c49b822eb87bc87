package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"royale-meta/internal/domain"

	"github.com/rs/zerolog"
)

type DeckRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewDeckRepository(sqlDB *sql.DB, logger zerolog.Logger) *DeckRepository {
	return &DeckRepository{
		db:     sqlDB,
		logger: logger,
	}
}

// GetOrCreate resolves a card set to its deck row, inserting the deck and its
// deck_cards junction rows the first time the canonical hash is seen. Two
// battles with set-equal decks always resolve to the same deck id.
func (r *DeckRepository) GetOrCreate(ctx context.Context, cardIDs []int, avgElixir float64) (int64, error) {
	hash, err := domain.DeckHash(cardIDs)
	if err != nil {
		return 0, err
	}

	var id int64
	err = r.db.QueryRowContext(ctx, `SELECT deck_id FROM decks WHERE deck_hash = ?`, hash).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to look up deck: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO decks (deck_hash, avg_elixir) VALUES (?, ?)`,
		hash, avgElixir,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert deck: %w", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read deck id: %w", err)
	}

	for _, cardID := range cardIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO deck_cards (deck_id, card_id) VALUES (?, ?) ON CONFLICT DO NOTHING`,
			id, cardID,
		); err != nil {
			return 0, fmt.Errorf("failed to insert deck card %d: %w", cardID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	r.logger.Debug().Int64("deck_id", id).Str("hash", hash[:8]).Msg("new deck recorded")
	return id, nil
}

// GetCards returns the card ids of a deck in ascending order.
func (r *DeckRepository) GetCards(ctx context.Context, deckID int64) ([]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT card_id FROM deck_cards WHERE deck_id = ? ORDER BY card_id`, deckID)
	if err != nil {
		return nil, fmt.Errorf("failed to query deck cards: %w", err)
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *DeckRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM decks`).Scan(&n)
	return n, err
}
