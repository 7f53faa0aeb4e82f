package feed

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(name, appID string, rating float64) Entry {
	return Entry{Name: name, AppID: appID, Rating: rating}
}

func TestRankerSortsDescendingAndTruncates(t *testing.T) {
	entries := make([]Entry, 0, 150)
	for i := 0; i < 150; i++ {
		entries = append(entries, entry(fmt.Sprintf("app-%d", i), fmt.Sprintf("%d", i), float64(i)))
	}

	ranked := NewRanker().Run(entries)
	require.Len(t, ranked, MaxEntries)

	for i := 1; i < len(ranked); i++ {
		assert.Greater(t, ranked[i-1].Rating, ranked[i].Rating)
	}
	assert.Equal(t, "app-149", ranked[0].Name)
	assert.Equal(t, "app-50", ranked[len(ranked)-1].Name)
}

func TestRankerFewerThanLimit(t *testing.T) {
	ranked := NewRanker().Run([]Entry{entry("a", "1", 1), entry("b", "2", 3)})

	require.Len(t, ranked, 2)
	assert.Equal(t, "b", ranked[0].Name)
	assert.Equal(t, "a", ranked[1].Name)
}

func TestRankerIsStableForEqualRatings(t *testing.T) {
	entries := []Entry{
		entry("first", "1", 2),
		entry("high", "2", 5),
		entry("second", "3", 2),
		entry("third", "4", 2),
	}

	ranked := NewRanker().Run(entries)

	names := make([]string, 0, len(ranked))
	for _, e := range ranked {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"high", "first", "second", "third"}, names)
}

func TestRankerMissingRatingSortsLast(t *testing.T) {
	entries := []Entry{
		entry("unrated", "1", math.Inf(-1)),
		entry("negative", "2", -10),
		entry("rated", "3", 1),
	}

	ranked := NewRanker().Run(entries)

	require.Len(t, ranked, 3)
	assert.Equal(t, "rated", ranked[0].Name)
	assert.Equal(t, "negative", ranked[1].Name)
	assert.Equal(t, "unrated", ranked[2].Name)
}

func TestRankerFiltersAfterTruncation(t *testing.T) {
	entries := make([]Entry, 0, 110)
	for i := 0; i < 100; i++ {
		// top 100 by rating, every tenth one invalid
		name := fmt.Sprintf("top-%d", i)
		if i%10 == 0 {
			name = ""
		}
		entries = append(entries, entry(name, fmt.Sprintf("%d", i), float64(1000-i)))
	}
	for i := 0; i < 10; i++ {
		entries = append(entries, entry(fmt.Sprintf("low-%d", i), fmt.Sprintf("low%d", i), float64(i)))
	}

	ranked := NewRanker().Run(entries)

	assert.Len(t, ranked, 90)
	for _, e := range ranked {
		assert.NotEmpty(t, e.Name)
		assert.NotEmpty(t, e.AppID)
		assert.NotContains(t, e.Name, "low-")
	}
}

func TestRankerDropsEntriesWithoutAppID(t *testing.T) {
	ranked := NewRanker().Run([]Entry{entry("a", "", 3), entry("", "2", 2), entry("c", "3", 1)})

	require.Len(t, ranked, 1)
	assert.Equal(t, "c", ranked[0].Name)
}

func TestRankerDoesNotMutateInput(t *testing.T) {
	entries := []Entry{entry("a", "1", 1), entry("b", "2", 2)}

	NewRanker().Run(entries)

	assert.Equal(t, "a", entries[0].Name)
	assert.Equal(t, "b", entries[1].Name)
}

func TestRankerEmpty(t *testing.T) {
	assert.Empty(t, NewRanker().Run(nil))
}
