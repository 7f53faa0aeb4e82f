package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/game-catalog/app/database"
	"github.com/lysyi3m/game-catalog/app/errs"
	"github.com/lysyi3m/game-catalog/app/feed"
	"github.com/lysyi3m/game-catalog/app/tasks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPopulator struct {
	report *tasks.Report
	err    error
	calls  int
}

func (m *mockPopulator) Run(ctx context.Context) (*tasks.Report, error) {
	m.calls++
	return m.report, m.err
}

type testServer struct {
	http.Handler
	repo      database.GameRepository
	populator *mockPopulator
}

func newTestServer(t *testing.T, apiAccessKey string, staticDir string) *testServer {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "games.db")
	db, err := database.NewConnection(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, _, err = database.RunMigrations(dbPath)
	require.NoError(t, err)

	repo := database.NewGameRepository(db)
	populator := &mockPopulator{report: &tasks.Report{RunID: "run-1"}}
	handler := NewHandler(repo, populator, feed.DefaultSources(), "test")

	return &testServer{
		Handler:   NewServer(handler, apiAccessKey, staticDir),
		repo:      repo,
		populator: populator,
	}
}

func (s *testServer) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func (s *testServer) seed(t *testing.T, name, platform, storeID string) database.Game {
	t.Helper()

	game, err := s.repo.CreateGame(context.Background(), database.Game{
		Name:        name,
		Platform:    platform,
		StoreID:     storeID,
		IsPublished: true,
	})
	require.NoError(t, err)
	return *game
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type errorBody struct {
	Message string            `json:"message"`
	Errors  []errs.FieldError `json:"errors"`
}

func TestListGamesEmpty(t *testing.T) {
	s := newTestServer(t, "", "")

	w := s.do(http.MethodGet, "/api/games", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestCreateAndListGames(t *testing.T) {
	s := newTestServer(t, "", "")

	w := s.do(http.MethodPost, "/api/games",
		`{"publisherId":"p1","name":"Helix Jump","platform":"android","storeId":"com.h8games.helixjump","bundleId":"com.h8games.helixjump","appVersion":"3.1","isPublished":true}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	created := decode[gameResponse](t, w)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "Helix Jump", created.Name)
	assert.Equal(t, "android", created.Platform)
	assert.True(t, created.IsPublished)

	list := decode[[]gameResponse](t, s.do(http.MethodGet, "/api/games", ""))
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)
	assert.Equal(t, "p1", list[0].PublisherID)
}

func TestCreateGameValidation(t *testing.T) {
	s := newTestServer(t, "", "")

	w := s.do(http.MethodPost, "/api/games", `{"name":"","platform":"windows"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	body := decode[errorBody](t, w)
	assert.Equal(t, "Invalid request body", body.Message)

	fields := make(map[string]string)
	for _, fe := range body.Errors {
		fields[fe.Field] = fe.Error
	}
	assert.Equal(t, "is required", fields["name"])
	assert.Equal(t, "must be one of: ios android", fields["platform"])
	assert.Equal(t, "is required", fields["storeId"])
}

func TestCreateGameMalformedBody(t *testing.T) {
	s := newTestServer(t, "", "")

	w := s.do(http.MethodPost, "/api/games", `{"name":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Malformed request body", decode[errorBody](t, w).Message)
}

func TestSearchGames(t *testing.T) {
	s := newTestServer(t, "", "")
	s.seed(t, "Clash of Clans", database.PlatformIOS, "1")
	s.seed(t, "Clash Royale", database.PlatformAndroid, "2")
	s.seed(t, "Subway Surfers", database.PlatformAndroid, "3")

	tests := []struct {
		name     string
		body     string
		expected []string
	}{
		{name: "by name", body: `{"name":"Clash"}`, expected: []string{"Clash of Clans", "Clash Royale"}},
		{name: "by platform", body: `{"platform":"android"}`, expected: []string{"Clash Royale", "Subway Surfers"}},
		{name: "all platforms with name", body: `{"platform":"all","name":"Royale"}`, expected: []string{"Clash Royale"}},
		{name: "no filters", body: `{}`, expected: []string{"Clash of Clans", "Clash Royale", "Subway Surfers"}},
		{name: "no match", body: `{"platform":"ios","name":"Subway"}`, expected: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodPost, "/api/games/search", tt.body)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			result := decode[searchResponse](t, w)
			names := make([]string, 0, len(result.Rows))
			for _, row := range result.Rows {
				names = append(names, row.Name)
			}
			assert.Equal(t, len(tt.expected), result.Count)
			assert.Equal(t, tt.expected, names)
		})
	}
}

func TestSearchGamesWithoutBody(t *testing.T) {
	s := newTestServer(t, "", "")
	s.seed(t, "Clash of Clans", database.PlatformIOS, "1")
	s.seed(t, "Subway Surfers", database.PlatformAndroid, "2")

	w := s.do(http.MethodPost, "/api/games/search", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	result := decode[searchResponse](t, w)
	assert.Equal(t, 2, result.Count)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, "Clash of Clans", result.Rows[0].Name)
	assert.Equal(t, "Subway Surfers", result.Rows[1].Name)
}

func TestSearchGamesInvalidPlatform(t *testing.T) {
	s := newTestServer(t, "", "")

	w := s.do(http.MethodPost, "/api/games/search", `{"platform":"windows"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateGame(t *testing.T) {
	s := newTestServer(t, "", "")
	game := s.seed(t, "Old Name", database.PlatformIOS, "1")

	w := s.do(http.MethodPut, "/api/games/"+itoa(game.ID),
		`{"name":"New Name","platform":"android","storeId":"2","appVersion":"2.0","isPublished":false}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	updated := decode[gameResponse](t, w)
	assert.Equal(t, game.ID, updated.ID)
	assert.Equal(t, "New Name", updated.Name)
	assert.Equal(t, "android", updated.Platform)
	assert.Equal(t, "2.0", updated.AppVersion)
	assert.False(t, updated.IsPublished)
}

func TestUpdateGameErrors(t *testing.T) {
	s := newTestServer(t, "", "")
	valid := `{"name":"Name","platform":"ios","storeId":"1"}`

	w := s.do(http.MethodPut, "/api/games/999", valid)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Game not found", decode[errorBody](t, w).Message)

	w = s.do(http.MethodPut, "/api/games/abc", valid)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "id", decode[errorBody](t, w).Errors[0].Field)

	game := s.seed(t, "Name", database.PlatformIOS, "1")
	w = s.do(http.MethodPut, "/api/games/"+itoa(game.ID), `{"name":"Name"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteGame(t *testing.T) {
	s := newTestServer(t, "", "")
	game := s.seed(t, "Doomed", database.PlatformIOS, "1")

	w := s.do(http.MethodDelete, "/api/games/"+itoa(game.ID), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":`+itoa(game.ID)+`}`, w.Body.String())

	w = s.do(http.MethodDelete, "/api/games/"+itoa(game.ID), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPopulateGames(t *testing.T) {
	s := newTestServer(t, "", "")
	s.populator.report = &tasks.Report{RunID: "run-42", Inserted: 150, Failed: 1}

	w := s.do(http.MethodPut, "/api/games/populate", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Equal(t, "run-42", w.Header().Get("X-Populate-Run"))
	assert.Equal(t, "150", w.Header().Get("X-Populate-Inserted"))
	assert.Equal(t, "1", w.Header().Get("X-Populate-Failed"))
	assert.Equal(t, 1, s.populator.calls)
}

func TestPopulateGamesPipelineFailure(t *testing.T) {
	s := newTestServer(t, "", "")
	s.populator.err = errs.Pipeline("failed to clear games", errors.New("database is locked"))

	w := s.do(http.MethodPut, "/api/games/populate", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "failed to clear games", decode[errorBody](t, w).Message)
}

func TestUnexpectedErrorUsesGenericMessage(t *testing.T) {
	s := newTestServer(t, "", "")
	s.populator.err = errors.New("boom")

	w := s.do(http.MethodPut, "/api/games/populate", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Something broke!", decode[errorBody](t, w).Message)
	assert.NotContains(t, w.Body.String(), "boom")
}

func TestPanicUsesGenericMessage(t *testing.T) {
	s := newTestServer(t, "", "")
	s.Handler.(*gin.Engine).GET("/explode", func(c *gin.Context) {
		panic("kaboom")
	})

	w := s.do(http.MethodGet, "/explode", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Something broke!", decode[errorBody](t, w).Message)
	assert.NotContains(t, w.Body.String(), "kaboom")
}

func TestAuthProtectsMutatingRoutes(t *testing.T) {
	s := newTestServer(t, "secret", "")
	body := `{"name":"Game","platform":"ios","storeId":"1"}`

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/api/games", body).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/api/games", body, "X-API-Key", "wrong").Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPut, "/api/games/populate", "").Code)
	assert.Zero(t, s.populator.calls)

	assert.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/games", body, "X-API-Key", "secret").Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodPut, "/api/games/populate", "", "Authorization", "Bearer secret").Code)

	// reads stay public
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/games", "").Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/games/search", `{}`).Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, "", "")
	s.seed(t, "One", database.PlatformIOS, "1")

	w := s.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	health := decode[map[string]interface{}](t, w)
	assert.Equal(t, float64(1), health["games"])
	assert.Equal(t, float64(2), health["sources"])
	assert.Equal(t, "test", health["version"])
	assert.NotEmpty(t, health["timestamp"])
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, "", "")

	w := s.do(http.MethodOptions, "/api/games/1", "")

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "DELETE")
}

func TestStaticFiles(t *testing.T) {
	staticDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "app.js"), []byte("console.log('hi')"), 0644))

	s := newTestServer(t, "", staticDir)

	w := s.do(http.MethodGet, "/app.js", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "console.log('hi')", w.Body.String())

	w = s.do(http.MethodGet, "/missing.js", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/../../etc/passwd", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
