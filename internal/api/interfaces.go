// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"github.com/labstack/echo/v4"
	"github.com/pdf-tools/backend/internal/flow"
	"github.com/pdf-tools/backend/internal/models"
	"github.com/pdf-tools/backend/internal/session"
)

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// ToolHandler serves the tool catalog
type ToolHandler interface {
	HandleListTools(c echo.Context) error
	HandleGetTool(c echo.Context) error
	HandleUploadConfig(c echo.Context) error
}

// SessionHandler maps the flow transitions onto HTTP
type SessionHandler interface {
	HandleCreateSession(c echo.Context) error
	HandleListSessions(c echo.Context) error
	HandleGetSession(c echo.Context) error
	HandleDeleteSession(c echo.Context) error
	HandleSelectTool(c echo.Context) error
	HandleChooseFiles(c echo.Context) error
	HandleProcess(c echo.Context) error
	HandleDownload(c echo.Context) error
	HandleKeepAlive(c echo.Context) error
}

// StreamHandler pushes snapshots to clients
type StreamHandler interface {
	HandleProgressStream(c echo.Context) error
	HandleWebSocket(c echo.Context) error
}

// SessionManager defines the interface for session management
// This allows mocking in tests
type SessionManager interface {
	Create() (*session.SessionState, error)
	List() []models.SessionInfo
	Controller(id string) (*flow.Controller, error)
	Touch(id string) bool
	Close(id string) error
	Len() int
}

var _ SessionManager = (*session.Manager)(nil)
