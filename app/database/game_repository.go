package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
)

const gamesTable = "games"

// Rows per INSERT statement; keeps bulk inserts well under SQLite's
// bound-parameter limit.
const bulkInsertChunkSize = 100

var gameColumns = []string{
	"id", "publisher_id", "name", "platform", "store_id", "bundle_id",
	"app_version", "is_published", "created_at", "updated_at",
}

var gameInsertColumns = gameColumns[1:]

type gameRepository struct {
	db *DB
}

var _ GameRepository = (*gameRepository)(nil)

func NewGameRepository(db *DB) GameRepository {
	return &gameRepository{db: db}
}

func (r *gameRepository) ListGames(ctx context.Context) ([]Game, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(gameColumns...).From(gamesTable).OrderBy("id")

	query, args := sb.Build()
	games, err := r.queryGames(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	return games, nil
}

func (r *gameRepository) SearchGames(ctx context.Context, filter GameFilter) ([]Game, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(gameColumns...).From(gamesTable)

	if len(filter.Platforms) > 0 {
		sb.Where(sb.In("platform", sqlbuilder.Flatten(filter.Platforms)...))
	}
	if filter.Name != "" {
		sb.Where(sb.Like("name", "%"+filter.Name+"%"))
	}
	sb.OrderBy("id")

	query, args := sb.Build()
	games, err := r.queryGames(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search games: %w", err)
	}
	return games, nil
}

func (r *gameRepository) GetGame(ctx context.Context, id int64) (*Game, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(gameColumns...).From(gamesTable).Where(sb.Equal("id", id))

	query, args := sb.Build()
	var game Game
	err := scanGame(r.db.QueryRowContext(ctx, query, args...), &game)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game by ID: %w", err)
	}

	return &game, nil
}

func (r *gameRepository) GetGameCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM games").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get game count: %w", err)
	}
	return count, nil
}

func (r *gameRepository) CreateGame(ctx context.Context, game Game) (*Game, error) {
	now := time.Now().UTC()
	game.CreatedAt = now
	game.UpdatedAt = now

	ib := sqlbuilder.SQLite.NewInsertBuilder()
	ib.InsertInto(gamesTable).Cols(gameInsertColumns...).Values(insertValues(game)...)

	query, args := ib.Build()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get created game ID: %w", err)
	}
	game.ID = id

	return &game, nil
}

// UpdateGame overwrites every mutable field. It returns nil when no game
// with game.ID exists.
func (r *gameRepository) UpdateGame(ctx context.Context, game Game) (*Game, error) {
	ub := sqlbuilder.SQLite.NewUpdateBuilder()
	ub.Update(gamesTable).Set(
		ub.Assign("publisher_id", game.PublisherID),
		ub.Assign("name", game.Name),
		ub.Assign("platform", game.Platform),
		ub.Assign("store_id", game.StoreID),
		ub.Assign("bundle_id", game.BundleID),
		ub.Assign("app_version", game.AppVersion),
		ub.Assign("is_published", game.IsPublished),
		ub.Assign("updated_at", time.Now().UTC()),
	).Where(ub.Equal("id", game.ID))

	query, args := ub.Build()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update game: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read updated rows: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}

	return r.GetGame(ctx, game.ID)
}

func (r *gameRepository) DeleteGame(ctx context.Context, id int64) (bool, error) {
	del := sqlbuilder.SQLite.NewDeleteBuilder()
	del.DeleteFrom(gamesTable).Where(del.Equal("id", id))

	query, args := del.Build()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to delete game: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read deleted rows: %w", err)
	}

	return affected > 0, nil
}

func (r *gameRepository) DeleteAllGames(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM games")
	if err != nil {
		return fmt.Errorf("failed to delete all games: %w", err)
	}
	return nil
}

// BulkInsertGames inserts all games in a single transaction.
func (r *gameRepository) BulkInsertGames(ctx context.Context, games []Game) (int, error) {
	if len(games) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for start := 0; start < len(games); start += bulkInsertChunkSize {
		end := min(start+bulkInsertChunkSize, len(games))

		ib := sqlbuilder.SQLite.NewInsertBuilder()
		ib.InsertInto(gamesTable).Cols(gameInsertColumns...)
		for _, game := range games[start:end] {
			game.CreatedAt = now
			game.UpdatedAt = now
			ib.Values(insertValues(game)...)
		}

		query, args := ib.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return 0, fmt.Errorf("failed to bulk insert games: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit bulk insert: %w", err)
	}

	return len(games), nil
}

func (r *gameRepository) queryGames(ctx context.Context, query string, args ...interface{}) ([]Game, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	games := []Game{}
	for rows.Next() {
		var game Game
		if err := scanGame(rows, &game); err != nil {
			return nil, fmt.Errorf("failed to scan game row: %w", err)
		}
		games = append(games, game)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating game rows: %w", err)
	}

	return games, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanGame(row rowScanner, game *Game) error {
	return row.Scan(
		&game.ID, &game.PublisherID, &game.Name, &game.Platform, &game.StoreID,
		&game.BundleID, &game.AppVersion, &game.IsPublished,
		&game.CreatedAt, &game.UpdatedAt,
	)
}

func insertValues(game Game) []interface{} {
	return []interface{}{
		game.PublisherID, game.Name, game.Platform, game.StoreID, game.BundleID,
		game.AppVersion, game.IsPublished, game.CreatedAt, game.UpdatedAt,
	}
}
