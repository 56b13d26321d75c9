// Package monitor runs the observation loops: new-video discovery, periodic
// history refresh, format inventory, and the shorts download pipeline. Work
// flows to the notifier through bounded channels so a stalled Telegram API
// can never block discovery.
package monitor

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/onnwee/yt-observatory/db"
	"github.com/onnwee/yt-observatory/schema"
)

const (
	defaultNewVideoInterval = 15 * time.Minute
	defaultHistoryInterval  = 8 * time.Hour
	defaultFormatsInterval  = 6 * time.Hour
	historyColdStart        = 10 * time.Second
	defaultChannelPacing    = 2 * time.Second
	queueCapacity           = 100
	formatBatchSize         = 50
)

// Store is the slice of the repository the loops need.
type Store interface {
	ChannelExists(ctx context.Context, channelID string) (bool, error)
	UpsertChannel(ctx context.Context, ch schema.Channel) error
	AddChannelHistory(ctx context.Context, channelID string, follower, view, video *int64) error
	AddVideo(ctx context.Context, channelID string, v schema.Video) error
	UpdateVideo(ctx context.Context, v schema.Video) error
	AddVideoHistory(ctx context.Context, videoID string, view, like, comment *int64) error
	AddVideoFormats(ctx context.Context, videoID string, formats []schema.Format) error
	GetChannels(ctx context.Context, limit, offset int) ([]db.ChannelRow, error)
	ExistingVideoIDs(ctx context.Context, ids []string) (map[string]bool, error)
	VideoIDsWithoutFormats(ctx context.Context, limit int) ([]string, error)
	UpdateVideoPath(ctx context.Context, videoID, path string) error
	UpdateThumbnailPath(ctx context.Context, url, path string) error
}

// Extractor is the yt-dlp adapter surface the loops use.
type Extractor interface {
	ChannelInfo(ctx context.Context, channelURL string) (*schema.ChannelInfo, error)
	VideoFormats(ctx context.Context, videoID string) []schema.Format
	Download(ctx context.Context, videoURL, targetPath string) error
	DownloadThumbnail(ctx context.Context, url, targetPath string) error
}

// API is the Data API adapter surface the loops use.
type API interface {
	ChannelInfo(ctx context.Context, ids []string) ([]schema.ChannelAPIInfo, error)
	VideoInfo(ctx context.Context, ids []string) ([]schema.Video, error)
}

// Monitor owns the loop state and the queues toward the notifier.
type Monitor struct {
	store Store
	ext   Extractor
	api   API

	channels []string
	listName string

	shortsDir string
	thumbDir  string

	// Pacing between channels inside one sweep. Tests shrink this.
	Pacing time.Duration

	// ShortsEnabled routes discovered shorts into the download pipeline
	// instead of the news queue.
	ShortsEnabled bool

	// News carries new-video notifications toward the Telegram publisher.
	News chan schema.NewVideo
	// ShortsReady carries downloaded shorts toward the Telegram publisher.
	ShortsReady chan schema.VideoDownload

	shortsWork chan schema.VideoDownload

	// Heartbeat, when set, stamps worker liveness once per cycle.
	Heartbeat func(ctx context.Context, job string)
}

// New builds a Monitor over the given collaborators and channel list.
func New(store Store, ext Extractor, api API, channels []string, listName, shortsDir, thumbDir string) *Monitor {
	return &Monitor{
		store:       store,
		ext:         ext,
		api:         api,
		channels:    channels,
		listName:    listName,
		shortsDir:   shortsDir,
		thumbDir:    thumbDir,
		Pacing:      defaultChannelPacing,
		News:        make(chan schema.NewVideo, queueCapacity),
		ShortsReady: make(chan schema.VideoDownload, queueCapacity),
		shortsWork:  make(chan schema.VideoDownload, queueCapacity),
	}
}

// IsShort reports whether a watch URL points at a YouTube short.
func IsShort(url string) bool {
	return strings.Contains(url, "/shorts/")
}

// ShortsFileName derives the local file name for a downloaded short from the
// channel handle and the video id.
func ShortsFileName(channelURL, videoID string) string {
	handle := channelURL
	if i := strings.LastIndex(handle, "/"); i >= 0 {
		handle = handle[i+1:]
	}
	handle = strings.TrimPrefix(handle, "@")
	if handle == "" {
		handle = "channel"
	}
	return handle + "_" + videoID + ".mp4"
}

func (m *Monitor) shortsTarget(channelURL, videoID string) schema.VideoDownload {
	name := ShortsFileName(channelURL, videoID)
	return schema.VideoDownload{
		FileName: name,
		FilePath: filepath.Join(m.shortsDir, name),
		VideoID:  videoID,
	}
}

func (m *Monitor) beat(ctx context.Context, job string) {
	if m.Heartbeat != nil {
		m.Heartbeat(ctx, job)
	}
}

// pace sleeps the inter-channel pacing delay, ending early on cancellation.
func (m *Monitor) pace(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(m.Pacing):
		return true
	}
}

// intervalFromEnv reads a loop interval override, falling back to def.
func intervalFromEnv(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
		slog.Warn("invalid duration, using default", slog.String("key", key), slog.String("value", v))
	}
	return def
}
