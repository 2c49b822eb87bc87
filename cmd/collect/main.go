package main

import (
	"context"
	"database/sql"

	"royale-meta/internal/config"
	fxmodules "royale-meta/internal/fx"
	"royale-meta/internal/service"
	"royale-meta/internal/tags"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(runCollection),
	).Run()
}

func runCollection(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	svc *service.CollectorService,
	cfg *config.Config,
	db *sql.DB,
	logger zerolog.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				tagList, err := tags.Read(cfg.TagFile)
				if err != nil {
					logger.Error().Err(err).Str("path", cfg.TagFile).Msg("failed to read tag file")
					_ = shutdowner.Shutdown(fx.ExitCode(1))
					return
				}

				result, err := svc.Run(context.Background(), tagList)
				if err != nil {
					logger.Error().Err(err).Msg("batch collection failed")
					_ = shutdowner.Shutdown(fx.ExitCode(1))
					return
				}

				// Per-tag failures are warnings; the batch still succeeds.
				for _, tag := range result.Unresolved {
					logger.Warn().Str("tag", tag).Msg("unresolved tag")
				}
				logger.Info().
					Str("run_id", result.RunID).
					Int("processed", result.Processed).
					Int("battles_saved", result.BattlesSaved).
					Msg("batch collection finished")
				_ = shutdowner.Shutdown()
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return db.Close()
		},
	})
}
