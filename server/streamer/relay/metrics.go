package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	downloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "renamer_downloads_total",
		Help: "Download requests by result.",
	}, []string{"result"})

	downloadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "renamer_download_duration_seconds",
		Help:    "Time from request to end of streaming.",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 900},
	})

	downloadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "renamer_download_bytes_total",
		Help: "Bytes written to download clients.",
	})

	activeDownloads = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "renamer_active_downloads",
		Help: "Downloads currently streaming.",
	})

	sourceRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "renamer_source_refresh_total",
		Help: "Forced source re-resolutions by result.",
	}, []string{"result"})
)

const (
	resultComplete     = "complete"
	resultDisconnected = "disconnected"
	resultStreamError  = "stream_error"
	resultNotFound     = "not_found"
	resultBadRange     = "bad_range"
	resultError        = "error"
)
