package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type RunRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewRunRepository(sqlDB *sql.DB, logger zerolog.Logger) *RunRepository {
	return &RunRepository{
		db:     sqlDB,
		logger: logger,
	}
}

// Open records the start of a collection run and returns its id.
func (r *RunRepository) Open(ctx context.Context, tagsTotal int) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("failed to generate nanoid: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO collection_runs (run_id, started_at, tags_total)
		VALUES (?, ?, ?)`,
		id, time.Now().UTC(), tagsTotal,
	)
	if err != nil {
		return "", fmt.Errorf("failed to open collection run: %w", err)
	}

	r.logger.Info().Str("run_id", id).Int("tags", tagsTotal).Msg("collection run opened")
	return id, nil
}

func (r *RunRepository) Close(ctx context.Context, runID string, unresolved, battlesSaved int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE collection_runs
		SET finished_at = ?, tags_unresolved = ?, battles_saved = ?
		WHERE run_id = ?`,
		time.Now().UTC(), unresolved, battlesSaved, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to close collection run %s: %w", runID, err)
	}
	return nil
}
