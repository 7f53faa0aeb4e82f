package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/lysyi3m/game-catalog/app/database"
	"github.com/lysyi3m/game-catalog/app/errs"
	"github.com/lysyi3m/game-catalog/app/feed"
)

func NewHandler(gameRepo database.GameRepository, populator PopulatorInterface, sources []feed.Source, version string) *Handler {
	return &Handler{
		gameRepo:  gameRepo,
		populator: populator,
		sources:   sources,
		version:   version,
	}
}

func (h *Handler) ListGames(c *gin.Context) {
	games, err := h.gameRepo.ListGames(c.Request.Context())
	if err != nil {
		_ = c.Error(errs.Unexpected(err))
		return
	}

	c.JSON(http.StatusOK, toGameResponses(games))
}

func (h *Handler) CreateGame(c *gin.Context) {
	var req gameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	game, err := h.gameRepo.CreateGame(c.Request.Context(), req.toGame(0))
	if err != nil {
		_ = c.Error(errs.Unexpected(err))
		return
	}

	c.JSON(http.StatusOK, toGameResponse(*game))
}

func (h *Handler) SearchGames(c *gin.Context) {
	// a bodyless search lists every game
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		_ = c.Error(bindError(err))
		return
	}

	filter := database.GameFilter{Name: req.Name}
	switch req.Platform {
	case "":
	case "all":
		filter.Platforms = []string{database.PlatformIOS, database.PlatformAndroid}
	default:
		filter.Platforms = []string{req.Platform}
	}

	games, err := h.gameRepo.SearchGames(c.Request.Context(), filter)
	if err != nil {
		_ = c.Error(errs.Unexpected(err))
		return
	}

	c.JSON(http.StatusOK, searchResponse{
		Count: len(games),
		Rows:  toGameResponses(games),
	})
}

func (h *Handler) UpdateGame(c *gin.Context) {
	id, err := gameID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var req gameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	game, err := h.gameRepo.UpdateGame(c.Request.Context(), req.toGame(id))
	if err != nil {
		_ = c.Error(errs.Unexpected(err))
		return
	}
	if game == nil {
		_ = c.Error(errs.NotFound("Game not found"))
		return
	}

	c.JSON(http.StatusOK, toGameResponse(*game))
}

func (h *Handler) DeleteGame(c *gin.Context) {
	id, err := gameID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	deleted, err := h.gameRepo.DeleteGame(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(errs.Unexpected(err))
		return
	}
	if !deleted {
		_ = c.Error(errs.NotFound("Game not found"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id})
}

// PopulateGames replaces the catalog from the configured sources. The body
// is empty; per-source results are reported in headers.
func (h *Handler) PopulateGames(c *gin.Context) {
	report, err := h.populator.Run(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.Header("X-Populate-Run", report.RunID)
	c.Header("X-Populate-Inserted", strconv.Itoa(report.Inserted))
	c.Header("X-Populate-Failed", strconv.Itoa(report.Failed))

	c.Status(http.StatusOK)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"version":   h.version,
		"sources":   len(h.sources),
	}

	if gameCount, err := h.gameRepo.GetGameCount(c.Request.Context()); err == nil {
		health["games"] = gameCount
	} else {
		slog.Warn("Failed to count games", "error", err)
	}

	c.JSON(http.StatusOK, health)
}

func gameID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errs.Validation("Invalid game ID", errs.FieldError{Field: "id", Error: "must be a positive integer"})
	}
	return id, nil
}

// bindError turns a binding failure into a validation error listing every
// offending field by its JSON name.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errs.Validation("Malformed request body")
	}

	fields := make([]errs.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, errs.FieldError{Field: fe.Field(), Error: describeTag(fe)})
	}
	return errs.Validation("Invalid request body", fields...)
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "failed " + fe.Tag() + " validation"
	}
}
