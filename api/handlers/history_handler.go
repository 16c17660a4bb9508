package handlers

import (
	"net/http"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/halftunes/internal/domain"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 1000
)

// HistoryHandler serves the download history
type HistoryHandler struct {
	repo   domain.HistoryRepository
	logger *zap.Logger
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(repo domain.HistoryRepository, logger *zap.Logger) *HistoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryHandler{
		repo:   repo,
		logger: logger,
	}
}

// ListHistory handles GET /api/v1/history
func (h *HistoryHandler) ListHistory(c *gin.Context) {
	filters := make(map[string]interface{})
	if outcome := c.Query("outcome"); outcome != "" {
		filters["outcome"] = outcome
	}
	if sourceURL := c.Query("source_url"); sourceURL != "" {
		filters["source_url"] = sourceURL
	}
	if artist := c.Query("artist"); artist != "" {
		filters["artist"] = artist
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultHistoryLimit)))
	if err != nil || limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	entries, err := h.repo.FindAll(filters, limit)
	if err != nil {
		h.logger.Error("Failed to list history", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":   len(entries),
		"entries": entries,
	})
}

// GetStats handles GET /api/v1/history/stats
func (h *HistoryHandler) GetStats(c *gin.Context) {
	stats, err := h.repo.GetStats()
	if err != nil {
		h.logger.Error("Failed to get history stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":             stats.Total,
		"completed":         stats.Completed,
		"failed":            stats.Failed,
		"canceled":          stats.Canceled,
		"total_bytes":       stats.TotalBytes,
		"total_bytes_human": humanize.Bytes(uint64(stats.TotalBytes)),
	})
}
