package main

import (
	"context"

	fxmodules "royale-meta/internal/fx"
	"royale-meta/internal/service"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(runDiscovery),
	).Run()
}

func runDiscovery(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	svc *service.DiscoveryService,
	logger zerolog.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				result, err := svc.Run(context.Background())
				if err != nil {
					logger.Error().Err(err).Msg("tag discovery failed")
					_ = shutdowner.Shutdown(fx.ExitCode(1))
					return
				}
				logger.Info().
					Int("tags", result.Total()).
					Int("failed_lookups", result.Failed).
					Msg("tag discovery finished")
				_ = shutdowner.Shutdown()
			}()
			return nil
		},
	})
}
