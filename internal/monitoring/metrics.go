package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/yourusername/halftunes/internal/domain"
)

var (
	// TransfersTotal tracks transfers that left the active set, by outcome
	TransfersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "halftunes_transfers_total",
			Help: "Total number of finished transfers",
		},
		[]string{"outcome"},
	)

	// TransfersStarted counts transfers entering the active set
	TransfersStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "halftunes_transfers_started_total",
			Help: "Total number of transfers started",
		},
	)

	// ActiveTransfers tracks the size of the active set
	ActiveTransfers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "halftunes_active_transfers",
			Help: "Number of transfers downloading or paused",
		},
	)

	// DownloadBytesTotal tracks bytes of completed previews
	DownloadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "halftunes_download_bytes_total",
			Help: "Total bytes of completed downloads",
		},
	)

	// SearchRequestsTotal tracks search requests by result
	SearchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "halftunes_search_requests_total",
			Help: "Total number of search requests",
		},
		[]string{"result"},
	)

	// SearchDuration tracks search latency
	SearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "halftunes_search_duration_seconds",
			Help:    "Search request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// RecordSearch records a search request
func RecordSearch(result string, duration time.Duration) {
	SearchRequestsTotal.WithLabelValues(result).Inc()
	SearchDuration.Observe(duration.Seconds())
}

// TransferObserver keeps transfer metrics in sync with session events
type TransferObserver struct {
	mu     sync.Mutex
	active map[string]struct{}
}

// NewTransferObserver creates a new metrics observer
func NewTransferObserver() *TransferObserver {
	return &TransferObserver{active: make(map[string]struct{})}
}

// Notify implements domain.Observer
func (o *TransferObserver) Notify(event domain.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()

	_, known := o.active[event.SourceURL]

	if event.Removed {
		delete(o.active, event.SourceURL)
		TransfersTotal.WithLabelValues(string(event.Kind)).Inc()
		if event.Kind == domain.EventCompleted {
			DownloadBytesTotal.Add(float64(event.Transfer.BytesReceived))
		}
	} else if !known {
		o.active[event.SourceURL] = struct{}{}
		TransfersStarted.Inc()
	}

	ActiveTransfers.Set(float64(len(o.active)))
}
