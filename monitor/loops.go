package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/onnwee/yt-observatory/schema"
	"github.com/onnwee/yt-observatory/telemetry"
)

// RunNewVideoLoop discovers new uploads on every tracked channel. The first
// sweep runs immediately, then on a fixed interval.
func (m *Monitor) RunNewVideoLoop(ctx context.Context) {
	interval := intervalFromEnv("NEW_VIDEO_INTERVAL", defaultNewVideoInterval)
	slog.Info("new-video loop started", slog.Duration("interval", interval),
		slog.Int("channels", len(m.channels)))

	m.sweepNew(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("new-video loop stopped")
			return
		case <-ticker.C:
			m.sweepNew(ctx)
		}
	}
}

// RunHistoryLoop refreshes channel and video statistics. The first sweep
// starts after a short cold-start delay so the new-video loop populates the
// store first; afterwards it runs on a long interval.
func (m *Monitor) RunHistoryLoop(ctx context.Context) {
	interval := intervalFromEnv("HISTORY_INTERVAL", defaultHistoryInterval)
	slog.Info("history loop started", slog.Duration("interval", interval),
		slog.Duration("cold_start", historyColdStart))

	select {
	case <-ctx.Done():
		return
	case <-time.After(historyColdStart):
	}
	m.sweepHistory(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("history loop stopped")
			return
		case <-ticker.C:
			m.sweepHistory(ctx)
		}
	}
}

// RunFormatsLoop probes the format inventory for videos that have none yet,
// one bounded batch per cycle.
func (m *Monitor) RunFormatsLoop(ctx context.Context) {
	interval := intervalFromEnv("FORMATS_INTERVAL", defaultFormatsInterval)
	slog.Info("formats loop started", slog.Duration("interval", interval))

	m.sweepFormats(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("formats loop stopped")
			return
		case <-ticker.C:
			m.sweepFormats(ctx)
		}
	}
}

func (m *Monitor) sweepFormats(ctx context.Context) {
	m.beat(ctx, "formats")
	ids, err := m.store.VideoIDsWithoutFormats(ctx, formatBatchSize)
	if err != nil {
		slog.Error("list videos without formats", slog.Any("err", err))
		return
	}
	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		formats := m.ext.VideoFormats(ctx, id)
		if len(formats) == 0 {
			continue
		}
		if err := m.store.AddVideoFormats(ctx, id, formats); err != nil {
			slog.Error("store formats", slog.String("video_id", id), slog.Any("err", err))
			continue
		}
		slog.Debug("formats stored", slog.String("video_id", id), slog.Int("count", len(formats)))
	}
}

// RunShortsDownloader drains the shorts work queue, downloads each short and
// hands the finished file to the publisher queue.
func (m *Monitor) RunShortsDownloader(ctx context.Context) {
	slog.Info("shorts downloader started")
	for {
		select {
		case <-ctx.Done():
			slog.Info("shorts downloader stopped")
			return
		case item := <-m.shortsWork:
			telemetry.SetShortsQueueDepth(len(m.shortsWork))
			var err error
			telemetry.TimeFunc(telemetry.DownloadDuration, func() {
				err = m.ext.Download(ctx, item.VideoURL, item.FilePath)
			})
			if err != nil {
				telemetry.Inc(telemetry.DownloadsFailed)
				slog.Error("short download failed", slog.String("video_id", item.VideoID), slog.Any("err", err))
				continue
			}
			telemetry.Inc(telemetry.DownloadsSucceeded)
			if err := m.store.UpdateVideoPath(ctx, item.VideoID, item.FilePath); err != nil {
				slog.Warn("record video path", slog.String("video_id", item.VideoID), slog.Any("err", err))
			}
			m.offerShortReady(item)
		}
	}
}

func (m *Monitor) offerShortReady(item schema.VideoDownload) {
	select {
	case m.ShortsReady <- item:
	default:
		slog.Warn("shorts publish queue full, dropping", slog.String("video_id", item.VideoID))
	}
}
