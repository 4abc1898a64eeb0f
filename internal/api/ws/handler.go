package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tabstash/tabstash/internal/eventlog"
	"github.com/tabstash/tabstash/internal/infrastructure/logging"
	"github.com/tabstash/tabstash/internal/infrastructure/monitoring"
)

// backlogSize is how many recent entries a new connection receives.
const backlogSize = 50

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The API is consumed by extension pages and local tooling.
		return true
	},
}

// Handler streams event log entries over WebSocket connections.
type Handler struct {
	events  *eventlog.Store
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// NewHandler creates a new WebSocket handler.
func NewHandler(events *eventlog.Store, logger *logging.Logger) *Handler {
	return &Handler{
		events: events,
		logger: logger,
	}
}

// WithMetrics attaches a metrics collector.
func (h *Handler) WithMetrics(m *monitoring.Metrics) *Handler {
	h.metrics = m
	return h
}

// HandleConnection upgrades the request and forwards event log entries
// until the client disconnects. The client receives a backlog of recent
// entries first, then live entries as they are appended.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	if h.metrics != nil {
		h.metrics.WSConnections.Inc()
		defer h.metrics.WSConnections.Dec()
	}

	entries, cancel := h.events.Subscribe()
	defer cancel()

	backlog := h.events.Recent(c.Request.Context(), backlogSize)
	if err := conn.WriteJSON(gin.H{"type": "backlog", "events": backlog}); err != nil {
		return
	}

	// Drain the read side so close frames are processed; the stream is
	// one-directional.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return
			}
			if err := conn.WriteJSON(gin.H{"type": "event", "event": entry}); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
