package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/eval-bench/eval-bench/internal/metrics"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// same-host dashboard and local development clients
		return true
	},
}

// StreamMessage is the envelope pushed to subscribers.
type StreamMessage struct {
	Type      string    `json:"type"` // run_progress, queue_state
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

type client struct {
	conn *websocket.Conn
	// runID filters run_progress messages; empty means all runs
	runID string

	writeMu sync.Mutex
}

// Hub tracks connected subscribers and fans updates out to them. There is
// no buffering for a dead peer: a failed write closes the connection and
// the subscriber reconciles with a snapshot read on reconnect.
type Hub struct {
	logger  *slog.Logger
	mu      sync.RWMutex
	clients map[*client]bool
}

func newHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*client]bool),
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = true
	count := len(h.clients)
	h.mu.Unlock()

	metrics.WSSubscribers.Set(float64(count))
	h.logger.Info("Progress subscriber connected", "total", count)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()

	_ = c.conn.Close()
	metrics.WSSubscribers.Set(float64(count))
	h.logger.Info("Progress subscriber disconnected", "remaining", count)
}

// broadcast sends msg to every subscriber interested in runID (empty runID
// means a queue level message that everyone receives). Write failures drop
// the subscriber.
func (h *Hub) broadcast(runID string, msg StreamMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to marshal stream message", "error", err.Error())
		return
	}

	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		if runID != "" && c.runID != "" && c.runID != runID {
			continue
		}
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.write(websocket.TextMessage, data); err != nil {
			h.remove(c)
		}
	}
}

// ping sends a heartbeat to every subscriber and drops the unresponsive.
func (h *Hub) ping() {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.write(websocket.PingMessage, nil); err != nil {
			h.remove(c)
		}
	}
}

func (c *client) write(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteMessage(messageType, data)
}

// readPump drains client frames to keep the connection alive and detect
// disconnects. Subscribers never send application data.
func (h *Hub) readPump(c *client) {
	defer h.remove(c)

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Info("Progress subscriber read error", "error", err.Error())
			}
			return
		}
	}
}
