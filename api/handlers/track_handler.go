package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/halftunes/internal/app"
	"github.com/yourusername/halftunes/internal/domain"
)

// TrackSearcher runs queries and annotates their results
type TrackSearcher interface {
	TrackResolver
	Search(ctx context.Context, query string) (*domain.ResultSet, error)
	Latest() *domain.ResultSet
	Annotate(rs *domain.ResultSet) []app.TrackView
}

// TrackHandler handles search requests
type TrackHandler struct {
	searcher TrackSearcher
	logger   *zap.Logger
}

// NewTrackHandler creates a new track handler
func NewTrackHandler(searcher TrackSearcher, logger *zap.Logger) *TrackHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrackHandler{
		searcher: searcher,
		logger:   logger,
	}
}

// Search handles GET /api/v1/search?q=
func (h *TrackHandler) Search(c *gin.Context) {
	rs, err := h.searcher.Search(c.Request.Context(), c.Query("q"))
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrEmptyQuery):
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter 'q' is required"})
		return
	case errors.Is(err, app.ErrSearchSuperseded):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	default:
		h.logger.Error("Search failed", zap.String("query", c.Query("q")), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	h.respond(c, rs)
}

// Results handles GET /api/v1/search/results, re-annotating the latest result set
func (h *TrackHandler) Results(c *gin.Context) {
	rs := h.searcher.Latest()
	if rs == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no search has completed yet"})
		return
	}
	h.respond(c, rs)
}

func (h *TrackHandler) respond(c *gin.Context, rs *domain.ResultSet) {
	views := h.searcher.Annotate(rs)
	c.JSON(http.StatusOK, gin.H{
		"query":   rs.Query,
		"count":   len(views),
		"results": views,
	})
}
