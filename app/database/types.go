package database

import (
	"time"
)

const (
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
)

func IsValidPlatform(platform string) bool {
	return platform == PlatformIOS || platform == PlatformAndroid
}

type Game struct {
	ID          int64
	PublisherID string
	Name        string
	Platform    string // ios or android
	StoreID     string // App Store / Play Store identifier
	BundleID    string
	AppVersion  string
	IsPublished bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// GameFilter narrows SearchGames. Empty fields match everything.
type GameFilter struct {
	Platforms []string
	Name      string // substring match
}
