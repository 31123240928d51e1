package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "filmstream",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "filmstream",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 30},
	}, []string{"method", "path"})

	ResidentTorrents = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "filmstream",
		Name:      "resident_torrents",
		Help:      "Number of torrent handles currently cached by the resolver.",
	})

	PeersConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "filmstream",
		Name:      "peers_connected",
		Help:      "Total number of peers connected across all resident torrents.",
	})

	ResolveDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "filmstream",
		Name:      "resolve_duration_seconds",
		Help:      "Duration of magnet resolution (swarm join until metadata).",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 90},
	})

	ResolveFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "filmstream",
		Name:      "resolve_failures_total",
		Help:      "Total number of failed magnet resolutions.",
	})

	TorrentEvictionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "filmstream",
		Name:      "torrent_evictions_total",
		Help:      "Total number of torrent handles evicted by the resolver LRU.",
	})

	TranscodeActiveJobs = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "filmstream",
		Name:      "transcode_active_jobs",
		Help:      "Number of currently running ffmpeg transcode jobs.",
	})

	TranscodeStartsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "filmstream",
		Name:      "transcode_starts_total",
		Help:      "Total number of ffmpeg transcode jobs started.",
	})

	TranscodeFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "filmstream",
		Name:      "transcode_failures_total",
		Help:      "Total number of ffmpeg transcode jobs that exited non-zero.",
	})

	BytesStreamedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "filmstream",
		Name:      "bytes_streamed_total",
		Help:      "Total bytes written to stream responses by delivery mode.",
	}, []string{"mode"})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ResidentTorrents,
		PeersConnected,
		ResolveDuration,
		ResolveFailuresTotal,
		TorrentEvictionsTotal,
		TranscodeActiveJobs,
		TranscodeStartsTotal,
		TranscodeFailuresTotal,
		BytesStreamedTotal,
	)
}
