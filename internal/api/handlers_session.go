// handlers_session.go - Session and flow transition handlers
package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pdf-tools/backend/internal/flow"
	"github.com/pdf-tools/backend/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

// MIMEMsgpack is the content type for MessagePack snapshots.
const MIMEMsgpack = "application/msgpack"

// SessionHandlerImpl implements the SessionHandler interface
type SessionHandlerImpl struct {
	sessions SessionManager
	logger   *slog.Logger
}

// NewSessionHandler creates a new session handler instance
func NewSessionHandler(sessions SessionManager, logger *slog.Logger) SessionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionHandlerImpl{
		sessions: sessions,
		logger:   logger,
	}
}

// HandleCreateSession starts a fresh flow, the equivalent of a page load
func (h *SessionHandlerImpl) HandleCreateSession(c echo.Context) error {
	state, err := h.sessions.Create()
	if err != nil {
		return fromDomainError(err, "")
	}

	return c.JSON(http.StatusCreated, models.SessionResponse{
		ID:       state.ID,
		Snapshot: state.Controller.Snapshot(),
	})
}

// HandleListSessions returns a summary of live sessions, most recently used first
func (h *SessionHandlerImpl) HandleListSessions(c echo.Context) error {
	return c.JSON(http.StatusOK, h.sessions.List())
}

// HandleGetSession returns the current snapshot as JSON or MessagePack
func (h *SessionHandlerImpl) HandleGetSession(c echo.Context) error {
	id, ctrl, err := h.controller(c)
	if err != nil {
		return err
	}

	resp := models.SessionResponse{ID: id, Snapshot: ctrl.Snapshot()}
	if wantsMsgpack(c) {
		data, err := msgpack.Marshal(resp)
		if err != nil {
			return NewInternalError("failed to encode snapshot", err)
		}
		return c.Blob(http.StatusOK, MIMEMsgpack, data)
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleDeleteSession discards a session, the equivalent of closing the page
func (h *SessionHandlerImpl) HandleDeleteSession(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	if err := h.sessions.Close(id); err != nil {
		return fromDomainError(err, id)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleSelectTool sets the session's selected tool
func (h *SessionHandlerImpl) HandleSelectTool(c echo.Context) error {
	id, ctrl, err := h.controller(c)
	if err != nil {
		return err
	}

	var req selectToolRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if err := req.validate(); err != nil {
		return err
	}

	snap, err := ctrl.SelectTool(req.ToolID)
	if err != nil {
		return fromDomainError(err, id)
	}
	return c.JSON(http.StatusOK, models.SessionResponse{ID: id, Snapshot: snap})
}

// HandleChooseFiles replaces the staged file list. Only file metadata is
// accepted; a body carrying file content is rejected unread.
func (h *SessionHandlerImpl) HandleChooseFiles(c echo.Context) error {
	id, ctrl, err := h.controller(c)
	if err != nil {
		return err
	}

	files, err := readFileRefs(c)
	if err != nil {
		return err
	}

	snap, err := ctrl.ChooseFiles(files)
	if err != nil {
		return fromDomainError(err, id)
	}

	h.logger.Debug("files chosen", "session", id, "count", len(files))
	return c.JSON(http.StatusOK, models.SessionResponse{ID: id, Snapshot: snap})
}

// HandleProcess starts the simulated processing run
func (h *SessionHandlerImpl) HandleProcess(c echo.Context) error {
	id, ctrl, err := h.controller(c)
	if err != nil {
		return err
	}

	snap, err := ctrl.Process()
	if err != nil {
		return fromDomainError(err, id)
	}
	return c.JSON(http.StatusAccepted, models.SessionResponse{ID: id, Snapshot: snap})
}

// HandleDownload is available once processing has completed. No file is produced.
func (h *SessionHandlerImpl) HandleDownload(c echo.Context) error {
	id, ctrl, err := h.controller(c)
	if err != nil {
		return err
	}

	if _, err := ctrl.Download(); err != nil {
		return fromDomainError(err, id)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleKeepAlive extends session lifetime for an open page
func (h *SessionHandlerImpl) HandleKeepAlive(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	if ok := h.sessions.Touch(id); !ok {
		return NewNotFoundError("session", id)
	}
	return c.NoContent(http.StatusNoContent)
}

// controller resolves the sessionId path parameter and touches the session.
func (h *SessionHandlerImpl) controller(c echo.Context) (string, *flow.Controller, error) {
	id := c.Param("sessionId")
	if id == "" {
		return "", nil, NewValidationError("sessionId")
	}

	ctrl, err := h.sessions.Controller(id)
	if err != nil {
		return id, nil, fromDomainError(err, id)
	}
	return id, ctrl, nil
}

// Request/Response types

type selectToolRequest struct {
	ToolID models.ToolID `json:"toolId"`
}

func (r *selectToolRequest) validate() error {
	if r.ToolID == "" {
		return NewValidationError("toolId")
	}
	return nil
}

type chooseFilesRequest struct {
	Files []models.FileRef `json:"files"`
}

func (r *chooseFilesRequest) validate() error {
	if r.Files == nil {
		return NewValidationError("files")
	}
	for _, f := range r.Files {
		if strings.TrimSpace(f.Name) == "" {
			return NewValidationError("files.name")
		}
		if f.Size < 0 {
			return NewValidationError("files.size")
		}
	}
	return nil
}

// Helper functions

func readFileRefs(c echo.Context) ([]models.FileRef, error) {
	ctype := c.Request().Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(ctype, echo.MIMEApplicationJSON) {
		return nil, NewUnsupportedMediaTypeError(ctype)
	}

	var req chooseFilesRequest
	if err := c.Bind(&req); err != nil {
		return nil, NewBadRequestError("invalid JSON body", err)
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	return req.Files, nil
}

func wantsMsgpack(c echo.Context) bool {
	if c.QueryParam("format") == "msgpack" {
		return true
	}
	accept := c.Request().Header.Get(echo.HeaderAccept)
	return strings.Contains(accept, MIMEMsgpack) || strings.Contains(accept, "application/x-msgpack")
}
