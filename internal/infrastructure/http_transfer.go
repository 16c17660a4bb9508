package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yourusername/halftunes/internal/domain"
)

// resumeState is the content of the opaque resume token
type resumeState struct {
	SourceURL   string `json:"source_url"`
	PartialPath string `json:"partial_path"`
	Offset      int64  `json:"offset"`
	ETag        string `json:"etag,omitempty"`
}

type operation struct {
	handle   domain.Handle
	cancel   context.CancelFunc
	preserve bool
}

// HTTPTransferLayer implements domain.TransferLayer over plain HTTP GET requests.
// Every fetch runs in its own goroutine and streams into <incomingDir>/<handle>.part.
type HTTPTransferLayer struct {
	client           *http.Client
	incomingDir      string
	progressInterval int64
	logger           *zap.Logger

	mu  sync.Mutex
	ops map[string]*operation
	wg  sync.WaitGroup
}

var _ domain.TransferLayer = (*HTTPTransferLayer)(nil)

// NewHTTPTransferLayer creates a transfer layer writing partial files to incomingDir
func NewHTTPTransferLayer(client *http.Client, incomingDir string, progressInterval int64, logger *zap.Logger) *HTTPTransferLayer {
	if client == nil {
		client = NewDownloadClient(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPTransferLayer{
		client:           client,
		incomingDir:      incomingDir,
		progressInterval: progressInterval,
		logger:           logger,
		ops:              make(map[string]*operation),
	}
}

// Fetch starts downloading sourceURL from the beginning
func (l *HTTPTransferLayer) Fetch(sourceURL string, events domain.TransferEvents) (domain.Handle, error) {
	if err := validateSourceURL(sourceURL); err != nil {
		return domain.Handle{}, err
	}

	h := domain.Handle{ID: uuid.New().String(), SourceURL: sourceURL}
	state := resumeState{
		SourceURL:   sourceURL,
		PartialPath: filepath.Join(l.incomingDir, h.ID+".part"),
	}
	l.start(h, state, events)
	return h, nil
}

// FetchResumed continues a fetch from a token produced by a preserving cancel
func (l *HTTPTransferLayer) FetchResumed(sourceURL string, token []byte, events domain.TransferEvents) (domain.Handle, error) {
	state, err := decodeResumeToken(token)
	if err != nil {
		return domain.Handle{}, err
	}
	if state.SourceURL != sourceURL {
		return domain.Handle{}, fmt.Errorf("%w: token belongs to %s", domain.ErrInvalidToken, state.SourceURL)
	}

	h := domain.Handle{ID: uuid.New().String(), SourceURL: sourceURL}
	l.start(h, state, events)
	return h, nil
}

// Cancel requests termination of an operation. The last request wins when
// called more than once, so a discard overrides an earlier pause.
func (l *HTTPTransferLayer) Cancel(h domain.Handle, preserveData bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	op, ok := l.ops[h.ID]
	if !ok {
		return
	}
	op.preserve = preserveData
	op.cancel()
}

// Discard deletes the partial file referenced by a token
func (l *HTTPTransferLayer) Discard(token []byte) {
	state, err := decodeResumeToken(token)
	if err != nil {
		return
	}
	if filepath.Dir(state.PartialPath) != filepath.Clean(l.incomingDir) {
		l.logger.Warn("Refusing to discard file outside incoming directory",
			zap.String("path", state.PartialPath))
		return
	}
	if err := os.Remove(state.PartialPath); err != nil && !os.IsNotExist(err) {
		l.logger.Warn("Failed to discard partial file", zap.String("path", state.PartialPath), zap.Error(err))
	}
}

// Active returns the number of outstanding operations
func (l *HTTPTransferLayer) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.ops)
}

// Shutdown cancels every operation without keeping partial data and waits for them to exit
func (l *HTTPTransferLayer) Shutdown() {
	l.mu.Lock()
	for _, op := range l.ops {
		op.preserve = false
		op.cancel()
	}
	l.mu.Unlock()

	l.wg.Wait()
}

func (l *HTTPTransferLayer) start(h domain.Handle, state resumeState, events domain.TransferEvents) {
	ctx, cancel := context.WithCancel(context.Background())
	op := &operation{handle: h, cancel: cancel}

	l.mu.Lock()
	l.ops[h.ID] = op
	l.mu.Unlock()

	l.wg.Add(1)
	go l.run(ctx, op, state, events)
}

func (l *HTTPTransferLayer) run(ctx context.Context, op *operation, state resumeState, events domain.TransferEvents) {
	defer l.wg.Done()
	defer func() {
		l.mu.Lock()
		delete(l.ops, op.handle.ID)
		l.mu.Unlock()
		op.cancel()
	}()

	h := op.handle
	result, err := l.transfer(ctx, h, state, events)
	if err == nil {
		l.logger.Debug("Transfer finished",
			zap.String("handle", h.ID),
			zap.String("url", h.SourceURL),
			zap.Int64("bytes", result.received))
		events.OnCompleted(h, state.PartialPath)
		return
	}

	if ctx.Err() != nil {
		if l.preserveRequested(op) && result.resumable && result.received > 0 {
			token, encErr := encodeResumeToken(resumeState{
				SourceURL:   state.SourceURL,
				PartialPath: state.PartialPath,
				Offset:      result.received,
				ETag:        result.etag,
			})
			if encErr == nil {
				events.OnCanceled(h, token)
				return
			}
		}
		os.Remove(state.PartialPath)
		events.OnCanceled(h, nil)
		return
	}

	os.Remove(state.PartialPath)
	l.logger.Warn("Transfer failed",
		zap.String("handle", h.ID),
		zap.String("url", h.SourceURL),
		zap.Error(err))
	events.OnFailed(h, domain.NewNetworkError(h.SourceURL, err))
}

type transferResult struct {
	received  int64
	resumable bool
	etag      string
}

func (l *HTTPTransferLayer) transfer(ctx context.Context, h domain.Handle, state resumeState, events domain.TransferEvents) (transferResult, error) {
	var result transferResult

	// Only trust the partial file if it still has the size recorded in the token
	offset := int64(0)
	if state.Offset > 0 {
		if info, err := os.Stat(state.PartialPath); err == nil && info.Size() == state.Offset {
			offset = state.Offset
			result.received = offset
			result.resumable = true
			result.etag = state.ETag
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, state.SourceURL, nil)
	if err != nil {
		return result, fmt.Errorf("failed to create request: %w", err)
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
		if state.ETag != "" {
			req.Header.Set("If-Range", state.ETag)
		}
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return result, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	flags := os.O_CREATE | os.O_WRONLY
	switch {
	case resp.StatusCode == http.StatusPartialContent && offset > 0:
		flags |= os.O_APPEND
	case resp.StatusCode == http.StatusOK:
		// Fresh fetch, or the server ignored the range and sent everything
		offset = 0
		flags |= os.O_TRUNC
	default:
		return result, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	result.received = offset
	result.resumable = resp.StatusCode == http.StatusPartialContent || resp.Header.Get("Accept-Ranges") == "bytes"
	if etag := resp.Header.Get("ETag"); etag != "" {
		result.etag = etag
	}

	total := int64(-1)
	if resp.ContentLength >= 0 {
		total = offset + resp.ContentLength
	}

	if err := os.MkdirAll(filepath.Dir(state.PartialPath), 0755); err != nil {
		return result, fmt.Errorf("failed to create incoming directory: %w", err)
	}
	file, err := os.OpenFile(state.PartialPath, flags, 0644)
	if err != nil {
		return result, fmt.Errorf("failed to open partial file: %w", err)
	}

	reader := newProgressReader(resp.Body, offset, total, l.progressInterval, func(received, expected int64) {
		events.OnProgress(h, received, expected)
	})

	_, copyErr := io.Copy(file, reader)
	closeErr := file.Close()
	result.received = reader.Received()

	if copyErr != nil {
		return result, fmt.Errorf("error reading response: %w", copyErr)
	}
	if closeErr != nil {
		return result, fmt.Errorf("failed to write partial file: %w", closeErr)
	}
	if total > 0 && result.received < total {
		return result, fmt.Errorf("download incomplete: %d of %d bytes", result.received, total)
	}

	return result, nil
}

func (l *HTTPTransferLayer) preserveRequested(op *operation) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return op.preserve
}

func validateSourceURL(sourceURL string) error {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return fmt.Errorf("invalid source url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q in %s", u.Scheme, sourceURL)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %s", sourceURL)
	}
	return nil
}

func encodeResumeToken(state resumeState) ([]byte, error) {
	return json.Marshal(state)
}

func decodeResumeToken(token []byte) (resumeState, error) {
	var state resumeState
	if len(token) == 0 {
		return state, domain.ErrInvalidToken
	}
	if err := json.Unmarshal(token, &state); err != nil {
		return state, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if state.SourceURL == "" || state.PartialPath == "" {
		return state, domain.ErrInvalidToken
	}
	return state, nil
}
