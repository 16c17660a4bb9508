package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ActiveCounter reports the size of the active transfer set
type ActiveCounter interface {
	ActiveCount() int
}

// WorkerStatus reports whether a background worker is running
type WorkerStatus interface {
	IsRunning() bool
}

// HealthHandler handles health check requests
type HealthHandler struct {
	version   string
	startTime time.Time
	transfers ActiveCounter
	recorder  WorkerStatus
}

// NewHealthHandler creates a new health handler. recorder is nil when history is disabled.
func NewHealthHandler(version string, transfers ActiveCounter, recorder WorkerStatus) *HealthHandler {
	return &HealthHandler{
		version:   version,
		startTime: time.Now(),
		transfers: transfers,
		recorder:  recorder,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status          string `json:"status"`
	Version         string `json:"version"`
	Uptime          int64  `json:"uptime"`
	UptimeHuman     string `json:"uptime_human"`
	ActiveTransfers int    `json:"active_transfers"`
	History         struct {
		Enabled bool `json:"enabled"`
		Running bool `json:"running"`
	} `json:"history"`
	Timestamp time.Time `json:"timestamp"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	uptime := time.Since(h.startTime)
	response := HealthResponse{
		Status:          "ok",
		Version:         h.version,
		Uptime:          int64(uptime.Seconds()),
		UptimeHuman:     formatDuration(uptime),
		ActiveTransfers: h.transfers.ActiveCount(),
		Timestamp:       time.Now(),
	}
	if h.recorder != nil {
		response.History.Enabled = true
		response.History.Running = h.recorder.IsRunning()
	}

	c.JSON(http.StatusOK, response)
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if h.recorder != nil && !h.recorder.IsRunning() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "history recorder not running",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
