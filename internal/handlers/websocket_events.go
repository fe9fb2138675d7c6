package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/lacuna/internal/common"
	"github.com/ternarybob/lacuna/internal/interfaces"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// EventsHandler broadcasts ingestion job events to websocket subscribers.
// It is the EventPublisher the ingestion service writes to; Publish never
// blocks on slow clients.
type EventsHandler struct {
	logger arbor.ILogger

	mu          sync.RWMutex
	clients     map[*websocket.Conn]*sync.Mutex
	progressLim *rate.Limiter
}

// NewEventsHandler creates the handler. The configured broadcast interval
// throttles progress events; lifecycle events always go out.
func NewEventsHandler(cfg common.WebSocketConfig, logger arbor.ILogger) *EventsHandler {
	interval := 2 * time.Second
	if cfg.BroadcastInterval != "" {
		if parsed, err := time.ParseDuration(cfg.BroadcastInterval); err == nil && parsed > 0 {
			interval = parsed
		} else if err != nil {
			logger.Warn().Err(err).Str("interval", cfg.BroadcastInterval).
				Msg("Invalid websocket broadcast interval, using default")
		}
	}

	return &EventsHandler{
		logger:      logger,
		clients:     make(map[*websocket.Conn]*sync.Mutex),
		progressLim: rate.NewLimiter(rate.Every(interval), 1),
	}
}

// HandleWebSocket handles GET /ws upgrade requests
func (h *EventsHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = &sync.Mutex{}
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug().Int("clients", count).Msg("WebSocket client connected")

	// Reader loop exists only to detect disconnects.
	go func() {
		defer h.removeClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Publish broadcasts a job event to all connected clients. Progress events
// are rate limited to the broadcast interval; failed writes drop the client.
func (h *EventsHandler) Publish(event interfaces.JobEvent) {
	if event.Type == interfaces.JobEventProgress && !h.progressLim.Allow() {
		return
	}

	h.mu.RLock()
	conns := make(map[*websocket.Conn]*sync.Mutex, len(h.clients))
	for conn, mu := range h.clients {
		conns[conn] = mu
	}
	h.mu.RUnlock()

	for conn, mu := range conns {
		conn, mu := conn, mu
		common.SafeGo(h.logger, "websocket.write", func() {
			mu.Lock()
			defer mu.Unlock()
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(event); err != nil {
				h.removeClient(conn)
			}
		})
	}
}

func (h *EventsHandler) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug().Int("clients", count).Msg("WebSocket client disconnected")
}

// Close disconnects all clients, used during shutdown.
func (h *EventsHandler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}
