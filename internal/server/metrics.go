package server

import (
	"sync/atomic"
	"time"

	"github.com/kilnhq/kiln/internal/session"
)

// Stats holds a point-in-time snapshot of server metrics.
type Stats struct {
	Uptime         string `json:"uptime"`
	Sessions       int    `json:"sessions"`
	UploadsTotal   int64  `json:"uploads_total"`
	CompletedTotal int64  `json:"completed_total"`
	FailuresTotal  int64  `json:"failures_total"`
	RecordsParsed  int64  `json:"records_parsed"`
	BytesReceived  int64  `json:"bytes_received"`
	DroppedEvents  int64  `json:"dropped_events"`
}

// metrics counts uploads and bytes over the server lifetime. Live session
// numbers come from the store.
type metrics struct {
	startTime time.Time
	store     *session.Store
	uploads   atomic.Int64
	completed atomic.Int64
	failures  atomic.Int64
	records   atomic.Int64
	bytes     atomic.Int64
}

func newMetrics(store *session.Store) *metrics {
	return &metrics{
		startTime: time.Now(),
		store:     store,
	}
}

func (m *metrics) uptime() string {
	return time.Since(m.startTime).Truncate(time.Second).String()
}

func (m *metrics) snapshot() Stats {
	return Stats{
		Uptime:         m.uptime(),
		Sessions:       m.store.Count(),
		UploadsTotal:   m.uploads.Load(),
		CompletedTotal: m.completed.Load(),
		FailuresTotal:  m.failures.Load(),
		RecordsParsed:  m.records.Load(),
		BytesReceived:  m.bytes.Load(),
		DroppedEvents:  m.store.Dropped(),
	}
}
