package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/halftunes/internal/domain"
	"github.com/yourusername/halftunes/internal/monitoring"
)

// ErrSearchSuperseded is returned when a newer search canceled this one
var ErrSearchSuperseded = errors.New("search superseded by a newer query")

// TrackView is a search result annotated with its local and transfer state
type TrackView struct {
	domain.Track
	Downloaded bool             `json:"downloaded"`
	LocalPath  string           `json:"local_path,omitempty"`
	Transfer   *domain.Transfer `json:"transfer,omitempty"`
}

// SearchService runs queries and keeps the most recent result set.
// Starting a search cancels the one still in flight.
type SearchService struct {
	client  domain.SearchClient
	manager *SessionManager
	store   domain.LocalStore
	logger  *zap.Logger

	mu         sync.Mutex
	seq        uint64
	cancelPrev context.CancelFunc
	latest     *domain.ResultSet
}

// NewSearchService creates a new search service
func NewSearchService(client domain.SearchClient, manager *SessionManager, store domain.LocalStore, logger *zap.Logger) *SearchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SearchService{
		client:  client,
		manager: manager,
		store:   store,
		logger:  logger,
	}
}

// Search executes query and replaces the latest result set on success
func (s *SearchService) Search(ctx context.Context, query string) (*domain.ResultSet, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}

	s.mu.Lock()
	if s.cancelPrev != nil {
		s.cancelPrev()
	}
	searchCtx, cancel := context.WithCancel(ctx)
	s.seq++
	seq := s.seq
	s.cancelPrev = cancel
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		if s.seq == seq {
			s.cancelPrev = nil
		}
		s.mu.Unlock()
	}()

	start := time.Now()
	tracks, err := s.client.Search(searchCtx, query)
	if err != nil {
		if searchCtx.Err() != nil && ctx.Err() == nil {
			monitoring.RecordSearch("superseded", time.Since(start))
			return nil, ErrSearchSuperseded
		}
		monitoring.RecordSearch("error", time.Since(start))
		s.logger.Warn("Search failed", zap.String("query", query), zap.Error(err))
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	monitoring.RecordSearch("success", time.Since(start))

	rs := domain.NewResultSet(query, tracks)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seq != seq {
		return nil, ErrSearchSuperseded
	}
	s.latest = rs

	s.logger.Info("Search completed",
		zap.String("query", query),
		zap.Int("results", rs.Len()))

	return rs, nil
}

// Latest returns the result set of the most recent successful search
func (s *SearchService) Latest() *domain.ResultSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// Resolve finds a track of the latest result set by source URL
func (s *SearchService) Resolve(sourceURL string) (domain.Track, bool) {
	return s.Latest().Find(sourceURL)
}

// Annotate pairs each track with its download state
func (s *SearchService) Annotate(rs *domain.ResultSet) []TrackView {
	if rs == nil {
		return []TrackView{}
	}

	views := make([]TrackView, 0, rs.Len())
	for _, track := range rs.Tracks {
		view := TrackView{Track: track, Downloaded: s.manager.IsDownloaded(track)}
		if view.Downloaded {
			view.LocalPath, _ = s.store.PathFor(track.SourceURL)
		}
		if t, ok := s.manager.Lookup(track.SourceURL); ok {
			view.Transfer = &t
		}
		views = append(views, view)
	}
	return views
}
