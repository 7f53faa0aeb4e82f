package feed

import (
	"cmp"
	"slices"

	"github.com/samber/lo"
)

// MaxEntries is how many top-rated entries a source contributes at most.
const MaxEntries = 100

type Ranker struct {
	limit int
}

func NewRanker() *Ranker {
	return &Ranker{limit: MaxEntries}
}

// Run orders entries by rating (highest first, ties keep feed order), keeps
// the top entries and then drops those without a name or app ID. Invalid
// entries inside the top slice are not replaced by lower-ranked ones.
func (r *Ranker) Run(entries []Entry) []Entry {
	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b Entry) int {
		return cmp.Compare(b.Rating, a.Rating)
	})

	top := sorted[:min(r.limit, len(sorted))]

	return lo.Filter(top, func(entry Entry, _ int) bool {
		return entry.Name != "" && entry.AppID != ""
	})
}
