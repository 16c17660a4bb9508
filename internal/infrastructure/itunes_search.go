package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/yourusername/halftunes/internal/domain"
)

// ITunesSearchClient queries the iTunes Search API
type ITunesSearchClient struct {
	httpClient  *http.Client
	config      domain.SearchConfig
	rateLimiter *rate.Limiter
	logger      *zap.Logger
}

type itunesResponse struct {
	ResultCount int            `json:"resultCount"`
	Results     []itunesResult `json:"results"`
}

type itunesResult struct {
	TrackName  string `json:"trackName"`
	ArtistName string `json:"artistName"`
	PreviewURL string `json:"previewUrl"`
}

// NewITunesSearchClient creates a new search client
func NewITunesSearchClient(config domain.SearchConfig, logger *zap.Logger) *ITunesSearchClient {
	clientConfig := DefaultClientConfig()
	if config.Timeout > 0 {
		clientConfig.Timeout = config.Timeout
	}

	limit := rate.Inf
	if config.RateLimit > 0 {
		limit = rate.Limit(config.RateLimit)
	}
	burst := config.Burst
	if burst <= 0 {
		burst = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ITunesSearchClient{
		httpClient:  NewHTTPClient(clientConfig),
		config:      config,
		rateLimiter: rate.NewLimiter(limit, burst),
		logger:      logger,
	}
}

// Search returns tracks matching term. Entries without a preview URL are skipped.
func (c *ITunesSearchClient) Search(ctx context.Context, term string) ([]domain.Track, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, domain.ErrEmptyQuery
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL(term), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result itunesResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	tracks := make([]domain.Track, 0, len(result.Results))
	skipped := 0
	for _, r := range result.Results {
		if strings.TrimSpace(r.PreviewURL) == "" {
			skipped++
			continue
		}
		tracks = append(tracks, domain.NewTrack(r.TrackName, r.ArtistName, r.PreviewURL))
	}

	c.logger.Debug("Search completed",
		zap.String("term", term),
		zap.Int("results", len(tracks)),
		zap.Int("skipped", skipped),
		zap.Duration("duration", time.Since(start)))

	return tracks, nil
}

func (c *ITunesSearchClient) buildURL(term string) string {
	params := url.Values{}
	if c.config.Media != "" {
		params.Set("media", c.config.Media)
	}
	if c.config.Entity != "" {
		params.Set("entity", c.config.Entity)
	}
	params.Set("term", term)
	if c.config.Limit > 0 {
		params.Set("limit", strconv.Itoa(c.config.Limit))
	}
	return c.config.BaseURL + "?" + params.Encode()
}
