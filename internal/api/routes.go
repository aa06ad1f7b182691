// routes.go - Route and middleware registration
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pdf-tools/backend/internal/catalog"
	"github.com/pdf-tools/backend/internal/config"
)

// FileListBodyLimit caps the file metadata list; file content is never sent.
const FileListBodyLimit = "64K"

// Dependencies holds all handler dependencies
type Dependencies struct {
	Catalog       *catalog.Catalog
	Sessions      SessionManager
	Upload        UploadSettings
	StreamTimeout time.Duration
	Version       string
	Logger        *slog.Logger
}

// Handlers holds all handler instances
type Handlers struct {
	Health  HealthHandler
	Tools   ToolHandler
	Session SessionHandler
	Stream  StreamHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:  NewHealthHandler(deps.Version, deps.Sessions),
		Tools:   NewToolHandler(deps.Catalog, deps.Upload),
		Session: NewSessionHandler(deps.Sessions, deps.Logger),
		Stream:  NewStreamHandler(deps.Sessions, deps.StreamTimeout, deps.Logger),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	apiGroup := e.Group("/api")

	apiGroup.GET("/health", handlers.Health.HandleHealth)

	// Tool catalog
	apiGroup.GET("/tools", handlers.Tools.HandleListTools)
	apiGroup.GET("/tools/:id", handlers.Tools.HandleGetTool)
	apiGroup.GET("/config/upload", handlers.Tools.HandleUploadConfig)

	// Session flow
	sessionGroup := apiGroup.Group("/sessions")
	sessionGroup.POST("", handlers.Session.HandleCreateSession)
	sessionGroup.GET("", handlers.Session.HandleListSessions)
	sessionGroup.GET("/:sessionId", handlers.Session.HandleGetSession)
	sessionGroup.DELETE("/:sessionId", handlers.Session.HandleDeleteSession)
	sessionGroup.PUT("/:sessionId/tool", handlers.Session.HandleSelectTool)
	sessionGroup.PUT("/:sessionId/files", handlers.Session.HandleChooseFiles, middleware.BodyLimit(FileListBodyLimit))
	sessionGroup.POST("/:sessionId/process", handlers.Session.HandleProcess)
	sessionGroup.GET("/:sessionId/download", handlers.Session.HandleDownload)
	sessionGroup.POST("/:sessionId/keepalive", handlers.Session.HandleKeepAlive)

	// Streams
	sessionGroup.GET("/:sessionId/progress", handlers.Stream.HandleProgressStream)
	sessionGroup.GET("/:sessionId/ws", handlers.Stream.HandleWebSocket)
}

// SetupMiddleware configures the error handler and common middleware
func SetupMiddleware(e *echo.Echo, cfg *config.AppConfig, logger *slog.Logger) {
	e.HTTPErrorHandler = NewErrorHandler(cfg.SlogLevel() == slog.LevelDebug)

	if cfg.Advanced.EnableRequestLogging {
		e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
			Skipper:      skipNoisyPaths,
			LogStatus:    true,
			LogURI:       true,
			LogMethod:    true,
			LogLatency:   true,
			LogError:     true,
			HandleError:  true,
			LogRemoteIP:  true,
			LogRequestID: true,
			LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
				level := slog.LevelInfo
				if v.Error != nil || v.Status >= http.StatusInternalServerError {
					level = slog.LevelError
				}
				logger.LogAttrs(context.Background(), level, "request",
					slog.String("method", v.Method),
					slog.String("uri", v.URI),
					slog.Int("status", v.Status),
					slog.Duration("latency", v.Latency),
					slog.String("remote_ip", v.RemoteIP),
				)
				return nil
			},
		}))
	}

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("panic recovered", "path", c.Request().URL.Path, "err", err, "stack", string(stack))
			return err
		},
	}))

	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return strings.HasSuffix(path, "/progress") ||
				strings.HasSuffix(path, "/ws") ||
				c.Request().Header.Get("Accept") == "text/event-stream"
		},
		ErrorMessage: "Request timeout",
	}))

	if cfg.Processing.EnableCompression {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
			Level: cfg.Processing.CompressionLevel,
			Skipper: func(c echo.Context) bool {
				path := c.Request().URL.Path
				return strings.HasSuffix(path, "/progress") ||
					strings.HasSuffix(path, "/ws") ||
					c.Request().Header.Get("Accept") == "text/event-stream"
			},
		}))
	}

	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	if cfg.Server.EnableCORS {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.AllowOriginList(),
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}
}

// skipNoisyPaths keeps health checks and stream polling out of the request log
func skipNoisyPaths(c echo.Context) bool {
	path := c.Request().URL.Path
	return path == "/api/health" ||
		strings.HasSuffix(path, "/progress") ||
		strings.HasSuffix(path, "/keepalive")
}
