package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
)

// client is one observer connection watching a single exam.
type client struct {
	conn   *websocket.Conn
	send   chan []byte
	examID string
}

// serve runs one observer connection to completion. The first frame is
// an immediate snapshot so the dashboard never waits a full tick.
func (h *Hub) serve(ctx context.Context, conn *websocket.Conn, examID string) {
	c := &client{
		conn:   conn,
		send:   make(chan []byte, h.sendBuffer),
		examID: examID,
	}
	if !h.register(c) {
		deadline := time.Now().Add(h.writeTimeout)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "hub stopped"), deadline)
		_ = conn.Close()
		return
	}

	if view, err := h.viewer.LiveView(ctx, examID); err == nil {
		if payload, err := json.Marshal(Frame{Type: FrameSnapshot, View: &view}); err == nil {
			select {
			case c.send <- payload:
			default:
			}
		}
	}

	go h.writePump(c)
	h.readPump(c)
}

// writePump owns all writes on the connection: queued frames, pings,
// and the closing handshake.
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()
	defer c.conn.Close()

	for {
		select {
		case payload, ok := <-c.send:
			deadline := time.Now().Add(h.writeTimeout)
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
				return
			}
			_ = c.conn.SetWriteDeadline(deadline)
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(h.writeTimeout)
			if err := c.conn.WriteControl(websocket.PingMessage, []byte("ping"), deadline); err != nil {
				return
			}
		}
	}
}

// readPump drains the connection until it drops. Observers send nothing
// meaningful today; reading keeps pong control frames flowing and
// detects the close.
func (h *Hub) readPump(c *client) {
	defer h.unregister(c)
	defer c.conn.Close()

	pongWait := 2 * h.pingInterval
	c.conn.SetReadLimit(h.readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
