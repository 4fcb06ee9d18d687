package api

import (
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"amazon-ads-analyzer/internal/pipeline"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Dashboard is same-origin in production; CORS is already wide open on
	// the API, so mirror that here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsHub fans pipeline progress events out to connected dashboard clients.
type wsHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func newWSHub() *wsHub {
	return &wsHub{clients: map[*websocket.Conn]struct{}{}}
}

func (h *wsHub) add(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()
}

func (h *wsHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}

// broadcast sends an event to every client, dropping connections that fail.
func (h *wsHub) broadcast(ev pipeline.ProgressEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteJSON(ev); err != nil {
			delete(h.clients, conn)
			conn.Close()
		}
	}
}

// WS upgrades the connection and keeps it registered until the client goes
// away. The read loop only exists to detect disconnects.
func (h *APIHandler) WS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Websocket upgrade failed: %v", err)
		return
	}
	h.hub.add(conn)
	go func() {
		defer h.hub.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
