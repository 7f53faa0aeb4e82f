package feed

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/lysyi3m/game-catalog/app/database"
	"gopkg.in/yaml.v3"
)

var DefaultSourceURLs = []string{
	"https://interview-marketing-eng-dev.s3.eu-west-1.amazonaws.com/android.top100.json",
	"https://interview-marketing-eng-dev.s3.eu-west-1.amazonaws.com/ios.top100.json",
}

func DefaultSources() []Source {
	sources := make([]Source, 0, len(DefaultSourceURLs))
	for _, u := range DefaultSourceURLs {
		sources = append(sources, NewSource(u))
	}
	return sources
}

func NewSource(rawURL string) Source {
	return Source{URL: rawURL, Platform: PlatformFromURL(rawURL)}
}

// PlatformFromURL tags a feed by its address: android feeds mention
// "android", everything else is treated as iOS.
func PlatformFromURL(rawURL string) string {
	if strings.Contains(strings.ToLower(rawURL), database.PlatformAndroid) {
		return database.PlatformAndroid
	}
	return database.PlatformIOS
}

// LoadSources reads the feed list from a YAML file. A missing file yields
// DefaultSources.
func LoadSources(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Debug("Sources file not found, using defaults", "path", path)
		return DefaultSources(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var file sourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i := range file.Sources {
		file.Sources[i].URL = strings.TrimSpace(file.Sources[i].URL)
		file.Sources[i].Platform = PlatformFromURL(file.Sources[i].URL)
	}

	if err := validateSources(file.Sources); err != nil {
		return nil, fmt.Errorf("invalid sources file %s: %w", path, err)
	}

	return file.Sources, nil
}

// LongestTimeout is the largest fetch timeout any source can take. It is
// never less than fallback.
func LongestTimeout(sources []Source, fallback time.Duration) time.Duration {
	longest := fallback
	for _, source := range sources {
		longest = max(longest, source.GetTimeout(fallback))
	}
	return longest
}

func validateSources(sources []Source) error {
	if len(sources) == 0 {
		return fmt.Errorf("at least one source is required")
	}

	seen := make(map[string]string, len(sources))
	for i, source := range sources {
		if source.URL == "" {
			return fmt.Errorf("source at index %d: URL is required", i)
		}

		u, err := url.Parse(source.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("source at index %d: invalid URL %q", i, source.URL)
		}

		if source.Timeout < 0 {
			return fmt.Errorf("source at index %d: timeout must be non-negative", i)
		}

		if other, ok := seen[source.Platform]; ok {
			return fmt.Errorf("source at index %d: platform %s already served by %s", i, source.Platform, other)
		}
		seen[source.Platform] = source.URL
	}

	return nil
}
