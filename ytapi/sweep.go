package ytapi

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/onnwee/yt-observatory/db"
	"github.com/onnwee/yt-observatory/schema"
)

// VideoStore is the slice of the repository the enrichment sweep needs.
type VideoStore interface {
	VideosWithoutUploadDate(ctx context.Context, limit int) ([]db.VideoRow, error)
	UpdateVideo(ctx context.Context, v schema.Video) error
	SetVideoInvalid(ctx context.Context, videoID string) error
	ResetAllInvalidVideos(ctx context.Context) (int64, error)
}

// UpdateMissingVideoInfo drains the backlog of videos without API-only
// fields. Videos the API no longer returns are tombstoned so the sweep makes
// progress; once the backlog is empty all tombstones are cleared so deleted
// videos get another chance on the next run.
func (c *Client) UpdateMissingVideoInfo(ctx context.Context, store VideoStore) error {
	for {
		rows, err := store.VideosWithoutUploadDate(ctx, maxBatchIDs)
		if err != nil {
			return fmt.Errorf("list pending videos: %w", err)
		}
		if len(rows) == 0 {
			break
		}

		ids := make([]string, 0, len(rows))
		for _, r := range rows {
			ids = append(ids, r.VideoID)
		}
		infos, err := c.VideoInfo(ctx, ids)
		if err != nil {
			return fmt.Errorf("enrich batch: %w", err)
		}
		byID := make(map[string]schema.Video, len(infos))
		for _, v := range infos {
			byID[v.ID] = v
		}

		for _, r := range rows {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			info, ok := byID[r.VideoID]
			if !ok {
				slog.Info("video missing from api, tombstoning",
					slog.String("video_id", r.VideoID))
				if err := store.SetVideoInvalid(ctx, r.VideoID); err != nil {
					return err
				}
				continue
			}
			if info.UploadDate == nil {
				// Without an upload date this row would stay in the backlog
				// forever, so treat it like an absent video.
				if err := store.SetVideoInvalid(ctx, r.VideoID); err != nil {
					return err
				}
				continue
			}
			if err := store.UpdateVideo(ctx, info); err != nil {
				return fmt.Errorf("apply enrichment %s: %w", r.VideoID, err)
			}
		}
	}

	n, err := store.ResetAllInvalidVideos(ctx)
	if err != nil {
		return fmt.Errorf("reset tombstones: %w", err)
	}
	if n > 0 {
		slog.Info("reset tombstoned videos", slog.Int64("count", n))
	}
	return nil
}
