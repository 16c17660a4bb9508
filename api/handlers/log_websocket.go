package handlers

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/yourusername/halftunes/pkg/logger"
)

const (
	initialLogEntries = 50
	logPingInterval   = 30 * time.Second
	logWriteWait      = 10 * time.Second
)

var logUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// LogWebSocketHandler streams a log category over WebSocket
type LogWebSocketHandler struct {
	logReader *logger.LogReader
	logger    *zap.Logger
	clients   atomic.Int64
}

// NewLogWebSocketHandler creates a new WebSocket handler
func NewLogWebSocketHandler(logsDir string, log *zap.Logger) *LogWebSocketHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogWebSocketHandler{
		logReader: logger.NewLogReader(logsDir),
		logger:    log,
	}
}

// ClientCount returns the number of connected log viewers
func (h *LogWebSocketHandler) ClientCount() int {
	return int(h.clients.Load())
}

// HandleWebSocket handles GET /ws/logs?category=
func (h *LogWebSocketHandler) HandleWebSocket(c *gin.Context) {
	category := logger.LogCategory(c.DefaultQuery("category", string(logger.CategoryTransfer)))
	if !logger.ValidCategory(category) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category"})
		return
	}

	conn, err := logUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	h.clients.Add(1)
	defer h.clients.Add(-1)

	h.logger.Info("Log viewer connected",
		zap.String("category", string(category)),
		zap.String("remote_addr", c.Request.RemoteAddr))

	entries, err := h.logReader.ReadTodayLogs(category, initialLogEntries)
	if err == nil {
		for _, entry := range entries {
			if err := h.write(conn, entry); err != nil {
				return
			}
		}
	}

	entryChan := make(chan logger.LogEntry, 100)
	stopChan := make(chan struct{})
	defer close(stopChan)

	go func() {
		if err := h.logReader.TailLogs(category, entryChan, stopChan); err != nil {
			h.logger.Error("Log tailing error", zap.Error(err))
		}
	}()

	// Client messages are ignored; reading detects the close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(logPingInterval)
	defer ticker.Stop()

	for {
		select {
		case entry := <-entryChan:
			if err := h.write(conn, entry); err != nil {
				h.logger.Debug("Log viewer write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(logWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (h *LogWebSocketHandler) write(conn *websocket.Conn, entry logger.LogEntry) error {
	conn.SetWriteDeadline(time.Now().Add(logWriteWait))
	return conn.WriteJSON(entry)
}
