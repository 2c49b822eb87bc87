package main

import (
	"context"
	"database/sql"

	fxmodules "royale-meta/internal/fx"
	"royale-meta/internal/service"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(runAnalysis),
	).Run()
}

func runAnalysis(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	svc *service.AnalyzerService,
	db *sql.DB,
	logger zerolog.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				snapshotID, err := svc.Run(context.Background())
				if err != nil {
					logger.Error().Err(err).Msg("meta analysis failed")
					_ = shutdowner.Shutdown(fx.ExitCode(1))
					return
				}
				logger.Info().Str("snapshot_id", snapshotID).Msg("meta analysis finished")
				_ = shutdowner.Shutdown()
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return db.Close()
		},
	})
}
