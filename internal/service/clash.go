package service

import (
	"context"

	"royale-meta/internal/api"
)

// ClashClient is the slice of the API client the services depend on.
// *api.Client satisfies it; tests substitute fakes.
type ClashClient interface {
	GetPlayer(ctx context.Context, tag string) (*api.PlayerResponse, error)
	GetBattleLog(ctx context.Context, tag string) ([]api.BattleLogEntry, error)
	GetCards(ctx context.Context) ([]api.CardItem, error)
}
