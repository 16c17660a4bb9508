package monitoring

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/yourusername/halftunes/internal/domain"
)

func event(kind domain.EventKind, url string, removed bool, bytes int64) domain.Event {
	tr := domain.NewTransfer(domain.NewTrack("", "", url))
	tr.BytesReceived = bytes
	return domain.Event{Kind: kind, SourceURL: url, Transfer: tr.Snapshot(), Removed: removed}
}

func TestTransferObserver(t *testing.T) {
	started := testutil.ToFloat64(TransfersStarted)
	completed := testutil.ToFloat64(TransfersTotal.WithLabelValues("completed"))
	canceled := testutil.ToFloat64(TransfersTotal.WithLabelValues("canceled"))
	bytes := testutil.ToFloat64(DownloadBytesTotal)

	o := NewTransferObserver()

	o.Notify(event(domain.EventUpdated, "https://a/1.m4a", false, 0))
	o.Notify(event(domain.EventUpdated, "https://a/1.m4a", false, 10))
	o.Notify(event(domain.EventUpdated, "https://a/2.m4a", false, 0))
	assert.Equal(t, 2.0, testutil.ToFloat64(ActiveTransfers))
	assert.Equal(t, started+2, testutil.ToFloat64(TransfersStarted))

	o.Notify(event(domain.EventCompleted, "https://a/1.m4a", true, 2048))
	o.Notify(event(domain.EventCanceled, "https://a/2.m4a", true, 0))

	assert.Equal(t, 0.0, testutil.ToFloat64(ActiveTransfers))
	assert.Equal(t, completed+1, testutil.ToFloat64(TransfersTotal.WithLabelValues("completed")))
	assert.Equal(t, canceled+1, testutil.ToFloat64(TransfersTotal.WithLabelValues("canceled")))
	assert.Equal(t, bytes+2048, testutil.ToFloat64(DownloadBytesTotal))
}

func TestTransferObserver_FailedStartCountsOutcomeOnly(t *testing.T) {
	started := testutil.ToFloat64(TransfersStarted)
	failed := testutil.ToFloat64(TransfersTotal.WithLabelValues("failed"))

	o := NewTransferObserver()
	o.Notify(event(domain.EventFailed, "https://a/3.m4a", true, 0))

	assert.Equal(t, started, testutil.ToFloat64(TransfersStarted))
	assert.Equal(t, failed+1, testutil.ToFloat64(TransfersTotal.WithLabelValues("failed")))
}

func TestRecordSearch(t *testing.T) {
	before := testutil.ToFloat64(SearchRequestsTotal.WithLabelValues("success"))

	RecordSearch("success", 120*time.Millisecond)
	RecordSearch("error", time.Second)

	assert.Equal(t, before+1, testutil.ToFloat64(SearchRequestsTotal.WithLabelValues("success")))
}
