package database

import (
	"context"
)

type GameRepository interface {
	ListGames(ctx context.Context) ([]Game, error)
	SearchGames(ctx context.Context, filter GameFilter) ([]Game, error)
	GetGame(ctx context.Context, id int64) (*Game, error)
	GetGameCount(ctx context.Context) (int, error)

	CreateGame(ctx context.Context, game Game) (*Game, error)
	UpdateGame(ctx context.Context, game Game) (*Game, error)
	DeleteGame(ctx context.Context, id int64) (bool, error)

	DeleteAllGames(ctx context.Context) error
	BulkInsertGames(ctx context.Context, games []Game) (int, error)
}
