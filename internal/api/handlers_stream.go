// handlers_stream.go - SSE and WebSocket snapshot streams
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pdf-tools/backend/internal/models"
)

// WebSocket message types
const (
	// Client -> Server messages
	MsgTypePing    = "ping"
	MsgTypeRefresh = "refresh"

	// Server -> Client messages
	MsgTypePong     = "pong"
	MsgTypeSnapshot = "snapshot"
	MsgTypeClosed   = "closed"
	MsgTypeError    = "error"
)

const (
	ssePollInterval = 100 * time.Millisecond
	wsWriteTimeout  = 10 * time.Second
)

// WSMessage is the envelope for every WebSocket frame
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// StreamHandlerImpl implements the StreamHandler interface
type StreamHandlerImpl struct {
	sessions      SessionManager
	upgrader      websocket.Upgrader
	streamTimeout time.Duration
	logger        *slog.Logger
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(sessions SessionManager, streamTimeout time.Duration, logger *slog.Logger) StreamHandler {
	if streamTimeout <= 0 {
		streamTimeout = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamHandlerImpl{
		sessions: sessions,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
		},
		streamTimeout: streamTimeout,
		logger:        logger,
	}
}

// HandleProgressStream streams snapshots via SSE until the current run is
// no longer processing.
func (h *StreamHandlerImpl) HandleProgressStream(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	ctrl, err := h.sessions.Controller(id)
	if err != nil {
		return fromDomainError(err, id)
	}

	// Set SSE headers
	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	last := ctrl.Snapshot()
	h.sendSSEData(c, models.SessionResponse{ID: id, Snapshot: last})
	if !last.Processing {
		return nil
	}

	ticker := time.NewTicker(ssePollInterval)
	defer ticker.Stop()

	timeout := time.NewTimer(h.streamTimeout)
	defer timeout.Stop()

	for {
		select {
		case <-ticker.C:
			if !h.sessions.Touch(id) {
				h.sendSSEError(c, "session not found")
				return nil
			}

			snap := ctrl.Snapshot()
			if snap.Version != last.Version {
				h.sendSSEData(c, models.SessionResponse{ID: id, Snapshot: snap})
				last = snap
			}

			if !snap.Processing {
				return nil
			}

		case <-timeout.C:
			h.sendSSEError(c, "stream timeout")
			return nil

		case <-c.Request().Context().Done():
			return nil
		}
	}
}

// HandleWebSocket upgrades the connection and pushes a snapshot after every change
func (h *StreamHandlerImpl) HandleWebSocket(c echo.Context) error {
	id := c.Param("sessionId")
	if id == "" {
		return NewValidationError("sessionId")
	}

	ctrl, err := h.sessions.Controller(id)
	if err != nil {
		return fromDomainError(err, id)
	}

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "session", id, "err", err)
		return nil
	}
	defer ws.Close()

	updates, cancel := ctrl.Subscribe()
	defer cancel()

	stop := make(chan struct{})
	defer close(stop)

	incoming := make(chan WSMessage)
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			var msg WSMessage
			if err := ws.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.logger.Debug("websocket read error", "session", id, "err", err)
				}
				return
			}
			select {
			case incoming <- msg:
			case <-stop:
				return
			}
		}
	}()

	h.logger.Debug("websocket connected", "session", id)

	if err := h.sendSnapshot(ws, id, ctrl.Snapshot()); err != nil {
		return nil
	}

	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				_ = h.send(ws, WSMessage{Type: MsgTypeClosed, ID: id})
				return nil
			}
			h.sessions.Touch(id)
			if err := h.sendSnapshot(ws, id, snap); err != nil {
				return nil
			}

		case msg := <-incoming:
			var err error
			switch msg.Type {
			case MsgTypePing:
				h.sessions.Touch(id)
				err = h.send(ws, WSMessage{Type: MsgTypePong, ID: id})
			case MsgTypeRefresh:
				err = h.sendSnapshot(ws, id, ctrl.Snapshot())
			default:
				err = h.send(ws, WSMessage{
					Type:    MsgTypeError,
					ID:      id,
					Payload: mustJSON(map[string]string{"message": "unknown message type: " + msg.Type, "code": "INVALID_TYPE"}),
				})
			}
			if err != nil {
				return nil
			}

		case <-readerDone:
			h.logger.Debug("websocket disconnected", "session", id)
			return nil
		}
	}
}

func (h *StreamHandlerImpl) sendSnapshot(ws *websocket.Conn, id string, snap models.Snapshot) error {
	return h.send(ws, WSMessage{Type: MsgTypeSnapshot, ID: id, Payload: mustJSON(snap)})
}

func (h *StreamHandlerImpl) send(ws *websocket.Conn, msg WSMessage) error {
	msg.Timestamp = time.Now().UnixMilli()
	_ = ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return ws.WriteJSON(msg)
}

func (h *StreamHandlerImpl) sendSSEData(c echo.Context, data interface{}) {
	jsonData, _ := json.Marshal(data)
	fmt.Fprintf(c.Response(), "data: %s\n\n", jsonData)
	c.Response().Flush()
}

func (h *StreamHandlerImpl) sendSSEError(c echo.Context, message string) {
	h.sendSSEData(c, map[string]string{"error": message})
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`null`)
	}
	return data
}
