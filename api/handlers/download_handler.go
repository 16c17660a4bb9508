package handlers

import (
	"fmt"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/halftunes/internal/domain"
)

// TransferController is the command and query surface of the session manager
type TransferController interface {
	Start(track domain.Track) bool
	Pause(track domain.Track) bool
	Resume(track domain.Track) bool
	Cancel(track domain.Track) bool
	IsDownloaded(track domain.Track) bool
	Lookup(sourceURL string) (domain.Transfer, bool)
	List() []domain.Transfer
}

// TrackResolver finds a track of the latest search by source URL
type TrackResolver interface {
	Resolve(sourceURL string) (domain.Track, bool)
}

// DownloadHandler handles download-related HTTP requests
type DownloadHandler struct {
	manager  TransferController
	resolver TrackResolver
	store    domain.LocalStore
	logger   *zap.Logger
}

// NewDownloadHandler creates a new download handler
func NewDownloadHandler(manager TransferController, resolver TrackResolver, store domain.LocalStore, logger *zap.Logger) *DownloadHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DownloadHandler{
		manager:  manager,
		resolver: resolver,
		store:    store,
		logger:   logger,
	}
}

// TrackRequest identifies the track a command applies to.
// Name and Artist are only used when the track is not part of the latest search.
type TrackRequest struct {
	SourceURL string `json:"source_url" binding:"required"`
	Name      string `json:"name,omitempty"`
	Artist    string `json:"artist,omitempty"`
}

// TransferView is a transfer snapshot with human-readable sizes
type TransferView struct {
	domain.Transfer
	Received string `json:"received"`
	Expected string `json:"expected,omitempty"`
	Percent  string `json:"percent"`
}

// NewTransferView builds the view of a snapshot
func NewTransferView(t domain.Transfer) TransferView {
	view := TransferView{
		Transfer: t,
		Received: humanize.Bytes(uint64(t.BytesReceived)),
		Percent:  fmt.Sprintf("%.1f%%", t.Progress*100),
	}
	if t.BytesExpected > 0 {
		view.Expected = humanize.Bytes(uint64(t.BytesExpected))
	}
	return view
}

// CommandResponse reports the effect of a command
type CommandResponse struct {
	Accepted   bool          `json:"accepted"`
	SourceURL  string        `json:"source_url"`
	Downloaded bool          `json:"downloaded"`
	Transfer   *TransferView `json:"transfer,omitempty"`
}

// StartDownload handles POST /api/v1/downloads
func (h *DownloadHandler) StartDownload(c *gin.Context) {
	h.command(c, "start", h.manager.Start)
}

// PauseDownload handles POST /api/v1/downloads/pause
func (h *DownloadHandler) PauseDownload(c *gin.Context) {
	h.command(c, "pause", h.manager.Pause)
}

// ResumeDownload handles POST /api/v1/downloads/resume
func (h *DownloadHandler) ResumeDownload(c *gin.Context) {
	h.command(c, "resume", h.manager.Resume)
}

// CancelDownload handles POST /api/v1/downloads/cancel
func (h *DownloadHandler) CancelDownload(c *gin.Context) {
	h.command(c, "cancel", h.manager.Cancel)
}

// command runs op for the requested track. A command that had no effect answers 409.
func (h *DownloadHandler) command(c *gin.Context, name string, op func(domain.Track) bool) {
	var req TrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	track := h.resolveTrack(req)
	accepted := op(track)

	h.logger.Debug("Download command",
		zap.String("command", name),
		zap.String("source_url", track.SourceURL),
		zap.Bool("accepted", accepted))

	response := h.describe(track)
	response.Accepted = accepted

	status := http.StatusOK
	if !accepted {
		status = http.StatusConflict
	}
	c.JSON(status, response)
}

// ListDownloads handles GET /api/v1/downloads
func (h *DownloadHandler) ListDownloads(c *gin.Context) {
	transfers := h.manager.List()
	views := make([]TransferView, 0, len(transfers))
	for _, t := range transfers {
		views = append(views, NewTransferView(t))
	}

	c.JSON(http.StatusOK, gin.H{
		"count":     len(views),
		"transfers": views,
	})
}

// LookupDownload handles GET /api/v1/downloads/lookup?url=
func (h *DownloadHandler) LookupDownload(c *gin.Context) {
	sourceURL := c.Query("url")
	if sourceURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter 'url' is required"})
		return
	}

	track := h.resolveTrack(TrackRequest{SourceURL: sourceURL})
	c.JSON(http.StatusOK, h.describe(track))
}

// LibraryPath handles GET /api/v1/library/path?url=
func (h *DownloadHandler) LibraryPath(c *gin.Context) {
	sourceURL := c.Query("url")
	if sourceURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter 'url' is required"})
		return
	}

	path, err := h.store.PathFor(sourceURL)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"source_url": sourceURL,
		"path":       path,
		"exists":     h.store.Exists(path),
	})
}

// resolveTrack prefers the latest search, then the active transfer, then the request itself
func (h *DownloadHandler) resolveTrack(req TrackRequest) domain.Track {
	if h.resolver != nil {
		if track, ok := h.resolver.Resolve(req.SourceURL); ok {
			return track
		}
	}
	if t, ok := h.manager.Lookup(req.SourceURL); ok {
		return domain.NewTrack(t.TrackName, t.Artist, t.SourceURL)
	}
	return domain.NewTrack(req.Name, req.Artist, req.SourceURL)
}

func (h *DownloadHandler) describe(track domain.Track) CommandResponse {
	response := CommandResponse{
		SourceURL:  track.SourceURL,
		Downloaded: h.manager.IsDownloaded(track),
	}
	if t, ok := h.manager.Lookup(track.SourceURL); ok {
		view := NewTransferView(t)
		response.Transfer = &view
	}
	return response
}
