package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/game-catalog/app/database"
	"github.com/lysyi3m/game-catalog/app/feed"
)

// Outcome is the settled result of ingesting one source. Error is nil on
// success.
type Outcome struct {
	TaskID   string
	Platform string
	Source   string
	Inserted int
	Error    error
}

func (o Outcome) Succeeded() bool {
	return o.Error == nil
}

type IngestSourceTask struct {
	Task
	RunID   string
	Feed    feed.Source
	store   GameStore
	fetcher *feed.Fetcher
	parser  *feed.Parser
	ranker  *feed.Ranker
}

func NewIngestSourceTask(runID string, source feed.Source, store GameStore, fetcher *feed.Fetcher, parser *feed.Parser, ranker *feed.Ranker) *IngestSourceTask {
	return &IngestSourceTask{
		Task:    NewTask(TaskTypeIngestSource, source.URL),
		RunID:   runID,
		Feed:    source,
		store:   store,
		fetcher: fetcher,
		parser:  parser,
		ranker:  ranker,
	}
}

// Execute makes a single attempt at fetch, parse, rank and insert. Failures
// are reported in the outcome and never returned.
func (t *IngestSourceTask) Execute(ctx context.Context) Outcome {
	t.Start()

	outcome := Outcome{TaskID: t.GetID(), Platform: t.Feed.Platform, Source: t.GetSource()}

	inserted, total, err := t.ingest(ctx)
	if err != nil {
		outcome.Error = err
		slog.Error("Task failed",
			"type", string(t.GetType()),
			"task_id", t.GetID(),
			"run_id", t.RunID,
			"platform", t.Feed.Platform,
			"source", t.GetSource(),
			"duration", t.GetDuration(),
			"error", err)
		return outcome
	}

	outcome.Inserted = inserted

	slog.Info("Task completed",
		"type", string(t.GetType()),
		"task_id", t.GetID(),
		"run_id", t.RunID,
		"platform", t.Feed.Platform,
		"source", t.GetSource(),
		"duration", t.GetDuration(),
		"total", total,
		"inserted", inserted)

	return outcome
}

func (t *IngestSourceTask) ingest(ctx context.Context) (int, int, error) {
	data, err := t.fetcher.Run(ctx, t.Feed)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to fetch feed: %w", err)
	}

	entries, err := t.parser.Run(data)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to parse feed: %w", err)
	}

	ranked := t.ranker.Run(entries)

	games := make([]database.Game, 0, len(ranked))
	for _, entry := range ranked {
		game, ok := feed.ToGame(entry, t.Feed.Platform)
		if !ok {
			slog.Debug("Dropping entry empty after sanitizing", "run_id", t.RunID, "app_id", entry.AppID)
			continue
		}
		games = append(games, game)
	}

	inserted, err := t.store.BulkInsertGames(ctx, games)
	if err != nil {
		return 0, len(entries), fmt.Errorf("failed to store games: %w", err)
	}

	return inserted, len(entries), nil
}
