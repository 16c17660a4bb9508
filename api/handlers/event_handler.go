package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// EventStream accepts WebSocket subscribers for transfer events
type EventStream interface {
	ServeWS(w http.ResponseWriter, r *http.Request) error
	ClientCount() int
}

// EventHandler exposes the transfer event stream
type EventHandler struct {
	stream EventStream
	logger *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler(stream EventStream, logger *zap.Logger) *EventHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventHandler{
		stream: stream,
		logger: logger,
	}
}

// HandleWebSocket handles GET /ws/events
func (h *EventHandler) HandleWebSocket(c *gin.Context) {
	if err := h.stream.ServeWS(c.Writer, c.Request); err != nil {
		h.logger.Warn("Event stream upgrade failed", zap.Error(err))
	}
}

// Subscribers handles GET /api/v1/events/subscribers
func (h *EventHandler) Subscribers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"subscribers": h.stream.ClientCount()})
}
