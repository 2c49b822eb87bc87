package repository

import (
	"context"
	"database/sql"
	"fmt"

	"royale-meta/internal/domain"

	"github.com/rs/zerolog"
)

type CardRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewCardRepository(sqlDB *sql.DB, logger zerolog.Logger) *CardRepository {
	return &CardRepository{
		db:     sqlDB,
		logger: logger,
	}
}

// UpsertBatch syncs the card catalog in one transaction. The catalog is a
// closed reference set; re-syncing only refreshes names and costs.
func (r *CardRepository) UpsertBatch(ctx context.Context, cards []domain.Card) error {
	if len(cards) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, card := range cards {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO cards (card_id, name, rarity, elixir_cost, icon_url)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (card_id) DO UPDATE SET
				name = excluded.name,
				rarity = excluded.rarity,
				elixir_cost = excluded.elixir_cost,
				icon_url = excluded.icon_url`,
			card.ID, card.Name, card.Rarity, card.ElixirCost, card.IconURL,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert card %d: %w", card.ID, err)
		}
	}

	return tx.Commit()
}

// EnsureExists inserts a stub row for a card id seen in a battle before the
// catalog knows it. deck_cards holds a foreign key into cards, so the row
// must exist; the next catalog sync fills in the real name and cost.
func (r *CardRepository) EnsureExists(ctx context.Context, cardID int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cards (card_id, name) VALUES (?, ?)
		ON CONFLICT (card_id) DO NOTHING`,
		cardID, fmt.Sprintf("Card_%d", cardID),
	)
	if err != nil {
		return fmt.Errorf("failed to ensure card %d: %w", cardID, err)
	}
	return nil
}

func (r *CardRepository) GetAll(ctx context.Context) (map[int]domain.Card, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT card_id, name, rarity, elixir_cost, icon_url FROM cards`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer rows.Close()

	cards := make(map[int]domain.Card)
	for rows.Next() {
		var c domain.Card
		if err := rows.Scan(&c.ID, &c.Name, &c.Rarity, &c.ElixirCost, &c.IconURL); err != nil {
			return nil, err
		}
		cards[c.ID] = c
	}
	return cards, rows.Err()
}
