package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"MarketPulse/internal/broadcast"
	"MarketPulse/internal/usecase"
	xlogger "MarketPulse/pkg/logger"
)

// WSHandler upgrades subscriber connections and feeds them into the
// broadcast hub. Every subscriber receives the full current state on
// connect and a full state object on every subsequent change.
type WSHandler struct {
	logger    *xlogger.Logger
	refresher *usecase.Refresher
	hub       *broadcast.Hub
	upgrader  websocket.Upgrader
}

func NewWSHandler(logger *xlogger.Logger, refresher *usecase.Refresher, hub *broadcast.Hub) *WSHandler {
	return &WSHandler{
		logger:    logger,
		refresher: refresher,
		hub:       hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *WSHandler) Subscribe(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", xlogger.Error(err))
		return err
	}

	ws := &wsConn{conn: conn}

	// Snapshot before registration so the subscriber never starts with a
	// broadcast it cannot contextualize.
	if err := writeJSON(ws, h.refresher.State()); err != nil {
		_ = conn.Close()
		return nil
	}
	h.hub.Register(ws)

	// Drain the read side to notice disconnects; inbound payloads are
	// ignored.
	go func() {
		defer h.hub.Unregister(ws)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	return nil
}

// wsConn narrows *websocket.Conn to the hub's write-side interface. The
// snapshot write happens before registration and the hub serializes its
// own writes, so the connection never sees concurrent writers.
type wsConn struct {
	conn *websocket.Conn
}

func (w *wsConn) WriteMessage(messageType int, data []byte) error {
	return w.conn.WriteMessage(messageType, data)
}

func (w *wsConn) Close() error { return w.conn.Close() }

func writeJSON(c broadcast.Conn, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.TextMessage, data)
}
