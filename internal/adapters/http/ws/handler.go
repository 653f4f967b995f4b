package ws

import (
	"net/http"

	"github.com/gorilla/websocket"
)

// Handler upgrades observer requests onto the hub.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewHandler creates a websocket handler feeding hub.
func NewHandler(hub *Hub) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Register attaches the websocket route to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /exams/{examID}/live/ws", h.HandleLiveSocket)
}

// HandleLiveSocket serves GET /exams/{examID}/live/ws.
func (h *Handler) HandleLiveSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}
	h.hub.serve(r.Context(), conn, r.PathValue("examID"))
}
