package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ProgressEvent is one bulk-run progress update pushed to subscribers.
type ProgressEvent struct {
	RunID string    `json:"run_id"`
	Done  int       `json:"done"`
	Total int       `json:"total"`
	At    time.Time `json:"at"`
}

// ProgressHub fans bulk-run progress out to WebSocket subscribers.
// Publish never blocks the collection path: a full queue drops the event,
// subscribers only ever miss intermediate counts.
type ProgressHub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]bool

	events chan ProgressEvent

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewProgressHub creates a hub.
func NewProgressHub(logger *slog.Logger) *ProgressHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProgressHub{
		logger:  logger,
		clients: make(map[*websocket.Conn]bool),
		events:  make(chan ProgressEvent, 64),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Start begins the broadcast loop.
func (h *ProgressHub) Start(ctx context.Context) {
	h.ctx, h.cancel = context.WithCancel(ctx)

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		for {
			select {
			case <-h.ctx.Done():
				return
			case ev := <-h.events:
				h.broadcast(ev)
			}
		}
	}()
}

// Stop closes all client connections and stops broadcasting.
func (h *ProgressHub) Stop() {
	if h.cancel != nil {
		h.cancel()
	}
	h.wg.Wait()

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
	}
	h.clients = make(map[*websocket.Conn]bool)
}

// Publish queues an event for broadcast, dropping it if the queue is full.
func (h *ProgressHub) Publish(ev ProgressEvent) {
	select {
	case h.events <- ev:
	default:
	}
}

// ClientCount returns the number of connected subscribers.
func (h *ProgressHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *ProgressHub) broadcast(ev ProgressEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(ev); err != nil {
			h.logger.Debug("dropping slow subscriber", "error", err)
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// Handler exposes the connect endpoint for mounting outside this package.
func (h *ProgressHub) Handler() http.HandlerFunc { return h.handleConnect }

// handleConnect upgrades the request and registers the subscriber.
func (h *ProgressHub) handleConnect(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()
	h.logger.Debug("progress subscriber connected", "remote", conn.RemoteAddr())

	// Reader loop exists only to observe the close handshake.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		h.mu.Lock()
		if h.clients[conn] {
			conn.Close()
			delete(h.clients, conn)
		}
		h.mu.Unlock()
		h.logger.Debug("progress subscriber disconnected", "remote", conn.RemoteAddr())
	}()
}
