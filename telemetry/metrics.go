// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	SweepCycles         prometheus.Counter
	VideosDiscovered    prometheus.Counter
	VideosRefreshed     prometheus.Counter
	ChannelsRefreshed   prometheus.Counter
	APIRequestsFailed   prometheus.Counter
	ExtractorFailures   prometheus.Counter
	DownloadsSucceeded  prometheus.Counter
	DownloadsFailed     prometheus.Counter
	NotificationsSent   prometheus.Counter
	NotificationsFailed prometheus.Counter

	// Histograms (seconds)
	ChannelSweepDuration prometheus.Observer
	DownloadDuration     prometheus.Observer

	// Gauges
	NewsQueueDepth   prometheus.Gauge
	ShortsQueueDepth prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		SweepCycles = promauto.NewCounter(prometheus.CounterOpts{Name: "yt_sweep_cycles_total", Help: "Number of monitor sweep cycles"})
		VideosDiscovered = promauto.NewCounter(prometheus.CounterOpts{Name: "yt_videos_discovered_total", Help: "Number of newly discovered videos"})
		VideosRefreshed = promauto.NewCounter(prometheus.CounterOpts{Name: "yt_videos_refreshed_total", Help: "Number of known videos refreshed"})
		ChannelsRefreshed = promauto.NewCounter(prometheus.CounterOpts{Name: "yt_channels_refreshed_total", Help: "Number of channel metadata refreshes"})
		APIRequestsFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "yt_api_requests_failed_total", Help: "Number of failed Data API batches"})
		ExtractorFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "yt_extractor_failures_total", Help: "Number of failed extractor invocations"})
		DownloadsSucceeded = promauto.NewCounter(prometheus.CounterOpts{Name: "yt_downloads_succeeded_total", Help: "Number of shorts downloads succeeded"})
		DownloadsFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "yt_downloads_failed_total", Help: "Number of shorts downloads failed"})
		NotificationsSent = promauto.NewCounter(prometheus.CounterOpts{Name: "yt_notifications_sent_total", Help: "Number of Telegram notifications sent"})
		NotificationsFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "yt_notifications_failed_total", Help: "Number of Telegram notifications dropped after retries"})
		ChannelSweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "yt_channel_sweep_duration_seconds", Help: "Per-channel sweep duration seconds", Buckets: prometheus.DefBuckets})
		DownloadDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "yt_download_duration_seconds", Help: "Shorts download duration seconds", Buckets: prometheus.DefBuckets})
		NewsQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{Name: "yt_news_queue_depth", Help: "Current news queue length"})
		ShortsQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{Name: "yt_shorts_queue_depth", Help: "Current shorts queue length"})
	})
}

// SetNewsQueueDepth records the current news queue length.
func SetNewsQueueDepth(n int) {
	if NewsQueueDepth != nil {
		NewsQueueDepth.Set(float64(n))
	}
}

// SetShortsQueueDepth records the current shorts queue length.
func SetShortsQueueDepth(n int) {
	if ShortsQueueDepth != nil {
		ShortsQueueDepth.Set(float64(n))
	}
}

// Inc increments a counter if metrics are initialized.
func Inc(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding a correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns the correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with a corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
