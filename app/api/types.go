package api

import (
	"context"
	"time"

	"github.com/lysyi3m/game-catalog/app/database"
	"github.com/lysyi3m/game-catalog/app/feed"
	"github.com/lysyi3m/game-catalog/app/tasks"
	"github.com/samber/lo"
)

type PopulatorInterface interface {
	Run(ctx context.Context) (*tasks.Report, error)
}

var _ PopulatorInterface = (*tasks.Populator)(nil)

type Handler struct {
	gameRepo  database.GameRepository
	populator PopulatorInterface
	sources   []feed.Source
	version   string
}

type gameRequest struct {
	PublisherID string `json:"publisherId"`
	Name        string `json:"name" binding:"required"`
	Platform    string `json:"platform" binding:"required,oneof=ios android"`
	StoreID     string `json:"storeId" binding:"required"`
	BundleID    string `json:"bundleId"`
	AppVersion  string `json:"appVersion"`
	IsPublished bool   `json:"isPublished"`
}

func (r gameRequest) toGame(id int64) database.Game {
	return database.Game{
		ID:          id,
		PublisherID: r.PublisherID,
		Name:        r.Name,
		Platform:    r.Platform,
		StoreID:     r.StoreID,
		BundleID:    r.BundleID,
		AppVersion:  r.AppVersion,
		IsPublished: r.IsPublished,
	}
}

// searchRequest platform "all" matches every platform; empty skips the filter.
type searchRequest struct {
	Platform string `json:"platform" binding:"omitempty,oneof=ios android all"`
	Name     string `json:"name"`
}

type gameResponse struct {
	ID          int64     `json:"id"`
	PublisherID string    `json:"publisherId"`
	Name        string    `json:"name"`
	Platform    string    `json:"platform"`
	StoreID     string    `json:"storeId"`
	BundleID    string    `json:"bundleId"`
	AppVersion  string    `json:"appVersion"`
	IsPublished bool      `json:"isPublished"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type searchResponse struct {
	Count int            `json:"count"`
	Rows  []gameResponse `json:"rows"`
}

func toGameResponse(game database.Game) gameResponse {
	return gameResponse{
		ID:          game.ID,
		PublisherID: game.PublisherID,
		Name:        game.Name,
		Platform:    game.Platform,
		StoreID:     game.StoreID,
		BundleID:    game.BundleID,
		AppVersion:  game.AppVersion,
		IsPublished: game.IsPublished,
		CreatedAt:   game.CreatedAt,
		UpdatedAt:   game.UpdatedAt,
	}
}

func toGameResponses(games []database.Game) []gameResponse {
	return lo.Map(games, func(game database.Game, _ int) gameResponse {
		return toGameResponse(game)
	})
}
