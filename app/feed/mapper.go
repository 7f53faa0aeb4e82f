package feed

import (
	"github.com/lysyi3m/game-catalog/app/database"
)

// ToGame converts a ranked entry into a published game for platform. Every
// text field is sanitized; ok is false when the sanitized name or store ID
// ends up empty or platform is not one the catalog stores.
func ToGame(entry Entry, platform string) (game database.Game, ok bool) {
	game = database.Game{
		PublisherID: Sanitize(entry.PublisherID),
		Name:        Sanitize(entry.Name),
		Platform:    platform,
		StoreID:     Sanitize(entry.AppID),
		BundleID:    Sanitize(entry.BundleID),
		AppVersion:  Sanitize(entry.Version),
		IsPublished: true,
	}

	return game, database.IsValidPlatform(platform) && game.Name != "" && game.StoreID != ""
}
