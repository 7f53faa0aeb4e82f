package tasks

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lysyi3m/game-catalog/app/database"
	"github.com/lysyi3m/game-catalog/app/errs"
	"github.com/lysyi3m/game-catalog/app/feed"
	"github.com/samber/lo"
)

// GameStore is the part of the repository the populate run writes to.
type GameStore interface {
	DeleteAllGames(ctx context.Context) error
	BulkInsertGames(ctx context.Context, games []database.Game) (int, error)
}

type Report struct {
	RunID    string
	Outcomes []Outcome // same order as the configured sources
	Inserted int
	Failed   int
	Duration time.Duration
}

type Populator struct {
	store   GameStore
	fetcher *feed.Fetcher
	parser  *feed.Parser
	ranker  *feed.Ranker
	sources []feed.Source
}

func NewPopulator(store GameStore, fetcher *feed.Fetcher, parser *feed.Parser, ranker *feed.Ranker, sources []feed.Source) *Populator {
	return &Populator{
		store:   store,
		fetcher: fetcher,
		parser:  parser,
		ranker:  ranker,
		sources: sources,
	}
}

// Run replaces the catalog with the current contents of every source.
// The store is cleared once before any source is fetched; if that fails the
// run is aborted with a pipeline error. After that, source failures are
// recorded in the report and Run returns a nil error.
func (p *Populator) Run(ctx context.Context) (*Report, error) {
	started := time.Now()
	runID := uuid.NewString()

	slog.Info("Populate started", "run_id", runID, "sources", len(p.sources))

	if err := p.store.DeleteAllGames(ctx); err != nil {
		slog.Error("Populate aborted", "run_id", runID, "error", err)
		return nil, errs.Pipeline("failed to clear games", err)
	}

	// in-flight sources run to completion even if the caller goes away
	ingestCtx := context.WithoutCancel(ctx)

	outcomes := make([]Outcome, len(p.sources))

	var wg sync.WaitGroup
	for i, source := range p.sources {
		wg.Add(1)
		go func(i int, source feed.Source) {
			defer wg.Done()

			task := NewIngestSourceTask(runID, source, p.store, p.fetcher, p.parser, p.ranker)
			outcomes[i] = task.Execute(ingestCtx)
		}(i, source)
	}
	wg.Wait()

	report := &Report{
		RunID:    runID,
		Outcomes: outcomes,
		Inserted: lo.SumBy(outcomes, func(o Outcome) int { return o.Inserted }),
		Failed:   lo.CountBy(outcomes, func(o Outcome) bool { return !o.Succeeded() }),
		Duration: time.Since(started),
	}

	slog.Info("Populate completed",
		"run_id", runID,
		"duration", report.Duration,
		"inserted", report.Inserted,
		"failed", report.Failed)

	return report, nil
}
