package fx

import (
	"royale-meta/internal/api"
	"royale-meta/internal/config"
	"royale-meta/internal/database"
	"royale-meta/internal/logger"
	"royale-meta/internal/repository"
	"royale-meta/internal/service"

	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	// repos
	fx.Provide(repository.NewPlayerRepository),
	fx.Provide(repository.NewCardRepository),
	fx.Provide(repository.NewDeckRepository),
	fx.Provide(repository.NewBattleRepository),
	fx.Provide(repository.NewRunRepository),
	fx.Provide(repository.NewSnapshotRepository),
	// api client
	fx.Provide(
		api.NewClient,
		func(c *api.Client) service.ClashClient { return c },
	),
	// svc
	fx.Provide(service.NewDiscoveryService),
	fx.Provide(service.NewCollectorService),
	fx.Provide(service.NewAnalyzerService),
)
