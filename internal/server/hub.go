package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gmllt/dtnboard/internal/render"
)

const writeWait = 5 * time.Second

type frameMessage struct {
	Event string `json:"event"`
	Seq   uint64 `json:"seq"`
	HTML  string `json:"html"`
}

// sendBuffer is how many frames a tab may fall behind before it is dropped.
const sendBuffer = 16

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub pushes every rendered frame to the open tabs. Each tab has its own
// writer goroutine, so a stalled tab never holds up Publish.
type Hub struct {
	mu          sync.Mutex
	connections map[*client]bool
	last        []byte
	logger      *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{connections: make(map[*client]bool), logger: logger}
}

// Publish implements render.Publisher.
func (h *Hub) Publish(f render.Frame) {
	message, err := json.Marshal(frameMessage{Event: "render", Seq: f.Seq, HTML: string(f.HTML)})
	if err != nil {
		h.logger.Error("Failed to marshal frame", slog.String("error", err.Error()))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = message
	for c := range h.connections {
		select {
		case c.send <- message:
		default:
			h.logger.Warn("Dropping WebSocket client that fell behind")
			h.unregisterLocked(c)
		}
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[c] = true
	if h.last != nil {
		c.send <- h.last
	}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unregisterLocked(c)
}

func (h *Hub) unregisterLocked(c *client) {
	if h.connections[c] {
		delete(h.connections, c)
		close(c.send)
	}
}

// writePump owns all writes to c.conn and closes it once c.send is closed.
func (h *Hub) writePump(c *client) {
	defer c.conn.Close()
	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			h.logger.Warn("Failed to send WebSocket message", slog.String("error", err.Error()))
			h.unregister(c)
			return
		}
	}
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.connections)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// same-origin only; single-user board served to the local browser
		origin := r.Header.Get("Origin")
		return origin == "" || origin == "http://"+r.Host || origin == "https://"+r.Host
	},
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.register(c)
	go h.writePump(c)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.unregister(c)
			return
		}
	}
}
