package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/lysyi3m/game-catalog/app/errs"
)

const unexpectedMessage = "Something broke!"

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler, apiAccessKey string, staticDir string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	useJSONFieldNames()

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		slog.Error("Request panicked", "method", c.Request.Method, "path", c.Request.URL.Path, "panic", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": unexpectedMessage})
	}))

	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, X-API-Key, Authorization")
		c.Header("Access-Control-Expose-Headers", "X-Populate-Run, X-Populate-Inserted, X-Populate-Failed")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	r.Use(errorHandler())

	setupRoutes(r, handler, apiAccessKey)
	setupStatic(r, staticDir)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey string) {
	r.GET("/health", handler.GetHealth)

	games := r.Group("/api/games")
	{
		games.GET("", handler.ListGames)
		games.POST("/search", handler.SearchGames)
	}

	mutating := games.Group("")
	if apiAccessKey != "" {
		mutating.Use(authMiddleware(apiAccessKey))
		slog.Info("Mutating API endpoints require authentication")
	}
	{
		mutating.POST("", handler.CreateGame)
		mutating.PUT("/populate", handler.PopulateGames)
		mutating.PUT("/:id", handler.UpdateGame)
		mutating.DELETE("/:id", handler.DeleteGame)
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":     "Game Catalog",
			"version":     handler.version,
			"description": "Game catalog populated from mobile store top rankings",
			"endpoints": map[string]string{
				"games":    "/api/games",
				"search":   "/api/games/search (POST)",
				"populate": "/api/games/populate (PUT)",
				"health":   "/health",
			},
			"api_status": map[string]interface{}{
				"auth_required": apiAccessKey != "",
				"header":        "X-API-Key",
			},
		})
	})

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}

// setupStatic serves files from staticDir for any GET that matched no route.
func setupStatic(r *gin.Engine, staticDir string) {
	var fileServer http.Handler
	if staticDir != "" {
		if info, err := os.Stat(staticDir); err == nil && info.IsDir() {
			fileServer = http.FileServer(http.Dir(staticDir))
		} else {
			slog.Debug("Static directory not found, static files disabled", "path", staticDir)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		if fileServer != nil && (c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead) {
			name := filepath.Join(staticDir, filepath.FromSlash(filepath.Clean("/"+c.Request.URL.Path)))
			if info, err := os.Stat(name); err == nil && !info.IsDir() {
				fileServer.ServeHTTP(c.Writer, c.Request)
				return
			}
		}

		c.JSON(http.StatusNotFound, gin.H{"message": "Not found"})
	})
}

// errorHandler writes the response for the last error a handler recorded.
func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}

		kind := errs.KindOf(last.Err)
		status := errs.Status(kind)

		var e *errs.Error
		if kind == errs.KindUnexpected || !errors.As(last.Err, &e) {
			slog.Error("Request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "error", last.Err)
			c.JSON(status, gin.H{"message": unexpectedMessage})
			return
		}

		if kind == errs.KindPipeline {
			slog.Error("Request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "kind", kind.String(), "error", last.Err)
		}

		body := gin.H{"message": e.Message}
		if len(e.Fields) > 0 {
			body["errors"] = e.Fields
		}
		c.JSON(status, body)
	}
}

func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")

		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			return
		}

		if providedKey != apiAccessKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			return
		}

		c.Next()
	}
}

// useJSONFieldNames makes validation errors report request fields by their
// JSON names.
func useJSONFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
}
