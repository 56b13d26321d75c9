package ytdlp

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/onnwee/yt-observatory/schema"
)

type videoDump struct {
	ID      string          `json:"id"`
	Formats []schema.Format `json:"formats"`
}

// VideoFormats probes the format inventory of a single video. Best effort:
// any failure is logged and yields an empty slice, never an error, so the
// formats loop keeps moving through its batch.
func (c *Client) VideoFormats(ctx context.Context, videoID string) []schema.Format {
	out, err := c.run(ctx, "-J", "--no-warnings", watchURL(videoID))
	if err != nil {
		slog.Warn("format probe failed", slog.String("video_id", videoID), slog.Any("err", err))
		return nil
	}
	var dump videoDump
	if err := json.Unmarshal(out, &dump); err != nil {
		slog.Warn("format probe returned malformed JSON", slog.String("video_id", videoID), slog.Any("err", err))
		return nil
	}
	formats := dump.Formats[:0:0]
	for _, f := range dump.Formats {
		if f.FormatID == "" {
			continue
		}
		formats = append(formats, f)
	}
	return formats
}

func watchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}
