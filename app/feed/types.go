package feed

import (
	"time"
)

// Entry is one application listed in a ranking feed. Only Rating is used
// for ordering; it is never persisted.
type Entry struct {
	Name        string
	AppID       string
	OS          string
	BundleID    string
	Version     string
	PublisherID string
	Rating      float64 // math.Inf(-1) when missing or not numeric
}

// Source is a remote ranking feed for one platform.
type Source struct {
	URL      string `yaml:"url"`
	Timeout  int    `yaml:"timeout"` // seconds, 0 uses the fetcher default
	Platform string `yaml:"-"`       // derived from URL
}

func (s Source) GetTimeout(fallback time.Duration) time.Duration {
	if s.Timeout <= 0 {
		return fallback
	}
	return time.Duration(s.Timeout) * time.Second
}

type sourcesFile struct {
	Sources []Source `yaml:"sources"`
}
