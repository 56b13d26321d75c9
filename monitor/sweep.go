package monitor

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/onnwee/yt-observatory/fusion"
	"github.com/onnwee/yt-observatory/schema"
	"github.com/onnwee/yt-observatory/telemetry"
)

// sweepNew walks the channel list once, storing anything unseen. Channels
// discovered for the first time are backfilled silently; notifications only
// fire for channels that were already tracked before this sweep.
func (m *Monitor) sweepNew(ctx context.Context) {
	m.beat(ctx, "new_videos")
	telemetry.Inc(telemetry.SweepCycles)

	for i, channelURL := range m.channels {
		if ctx.Err() != nil {
			return
		}
		if i > 0 && !m.pace(ctx) {
			return
		}
		telemetry.TimeFunc(telemetry.ChannelSweepDuration, func() {
			m.sweepChannelNew(ctx, channelURL)
		})
	}
}

func (m *Monitor) sweepChannelNew(ctx context.Context, channelURL string) {
	ctx, span := telemetry.StartSpan(ctx, "monitor", "sweep-channel-new")
	defer span.End()
	log := slog.With(slog.String("channel_url", channelURL))

	info, err := m.ext.ChannelInfo(ctx, channelURL)
	if err != nil {
		telemetry.Inc(telemetry.ExtractorFailures)
		telemetry.RecordError(span, err)
		log.Error("channel listing failed", slog.Any("err", err))
		return
	}
	log = slog.With(slog.String("channel_id", info.ChannelID))

	known, err := m.store.ChannelExists(ctx, info.ChannelID)
	if err != nil {
		log.Error("channel lookup failed", slog.Any("err", err))
		return
	}
	if !known {
		if err := m.refreshChannel(ctx, info); err != nil {
			log.Error("initial channel store failed", slog.Any("err", err))
			return
		}
		log.Info("channel discovered", slog.Int("videos", len(info.Entries)))
	}

	ids := make([]string, 0, len(info.Entries))
	for _, e := range info.Entries {
		ids = append(ids, e.ID)
	}
	existing, err := m.store.ExistingVideoIDs(ctx, ids)
	if err != nil {
		log.Error("video partition failed", slog.Any("err", err))
		return
	}
	newIDs, _ := fusion.PartitionNewKnown(ids, existing)
	if len(newIDs) == 0 {
		return
	}

	apiByID := m.enrichVideos(ctx, newIDs)
	newSet := make(map[string]bool, len(newIDs))
	for _, id := range newIDs {
		newSet[id] = true
	}

	for _, entry := range info.Entries {
		if !newSet[entry.ID] {
			continue
		}
		combined := fusion.CombineVideo(entry, apiByID[entry.ID])
		if err := m.store.AddVideo(ctx, info.ChannelID, combined); err != nil {
			log.Error("store video failed", slog.String("video_id", entry.ID), slog.Any("err", err))
			continue
		}
		if err := m.store.AddVideoHistory(ctx, combined.ID, combined.ViewCount, combined.LikeCount, combined.CommentCount); err != nil {
			log.Warn("store video history failed", slog.String("video_id", entry.ID), slog.Any("err", err))
		}
		telemetry.Inc(telemetry.VideosDiscovered)
		m.fetchThumbnail(ctx, combined)

		if known {
			m.route(info, combined)
		}
	}
}

// route sends a discovered video to the matching notifier queue without
// blocking; a full queue drops the item with a warning. Shorts never reach
// the news queue: with publishing disabled they are stored and skipped.
func (m *Monitor) route(info *schema.ChannelInfo, v schema.Video) {
	if IsShort(v.URL) {
		if !m.ShortsEnabled {
			return
		}
		item := m.shortsTarget(info.ChannelURL, v.ID)
		item.VideoURL = v.URL
		select {
		case m.shortsWork <- item:
			telemetry.SetShortsQueueDepth(len(m.shortsWork))
		default:
			slog.Warn("shorts queue full, dropping", slog.String("video_id", v.ID))
		}
		return
	}
	n := schema.NewVideo{
		ChannelName: info.Title,
		ChannelURL:  info.ChannelURL,
		VideoTitle:  v.Title,
		VideoURL:    v.URL,
		VideoID:     v.ID,
	}
	select {
	case m.News <- n:
		telemetry.SetNewsQueueDepth(len(m.News))
	default:
		slog.Warn("news queue full, dropping", slog.String("video_id", v.ID))
	}
}

// sweepHistory refreshes channel metadata, stats history and every already
// known video of each channel, then refreshes API statistics for stored
// channels the configured list no longer covers.
func (m *Monitor) sweepHistory(ctx context.Context) {
	m.beat(ctx, "history")

	covered := make(map[string]bool, len(m.channels))
	for i, channelURL := range m.channels {
		if ctx.Err() != nil {
			return
		}
		if i > 0 && !m.pace(ctx) {
			return
		}
		if id := m.sweepChannelHistory(ctx, channelURL); id != "" {
			covered[id] = true
		}
	}
	m.refreshStoredChannels(ctx, covered)
}

// sweepChannelHistory refreshes one listed channel, returning its channel id
// on success so the stored-channel pass can skip it.
func (m *Monitor) sweepChannelHistory(ctx context.Context, channelURL string) string {
	ctx, span := telemetry.StartSpan(ctx, "monitor", "sweep-channel-history")
	defer span.End()
	log := slog.With(slog.String("channel_url", channelURL))

	info, err := m.ext.ChannelInfo(ctx, channelURL)
	if err != nil {
		telemetry.Inc(telemetry.ExtractorFailures)
		telemetry.RecordError(span, err)
		log.Error("channel listing failed", slog.Any("err", err))
		return ""
	}
	if err := m.refreshChannel(ctx, info); err != nil {
		telemetry.RecordError(span, err)
		log.Error("channel refresh failed", slog.Any("err", err))
		return ""
	}
	telemetry.Inc(telemetry.ChannelsRefreshed)

	ids := make([]string, 0, len(info.Entries))
	for _, e := range info.Entries {
		ids = append(ids, e.ID)
	}
	existing, err := m.store.ExistingVideoIDs(ctx, ids)
	if err != nil {
		log.Error("video partition failed", slog.Any("err", err))
		return info.ChannelID
	}
	_, knownIDs := fusion.PartitionNewKnown(ids, existing)
	if len(knownIDs) == 0 {
		return info.ChannelID
	}

	apiByID := m.enrichVideos(ctx, knownIDs)
	for _, entry := range info.Entries {
		if !existing[entry.ID] {
			continue
		}
		combined := fusion.CombineVideo(entry, apiByID[entry.ID])
		if err := m.store.UpdateVideo(ctx, combined); err != nil {
			log.Warn("video refresh failed", slog.String("video_id", entry.ID), slog.Any("err", err))
			continue
		}
		if err := m.store.AddVideoHistory(ctx, combined.ID, combined.ViewCount, combined.LikeCount, combined.CommentCount); err != nil {
			log.Warn("store video history failed", slog.String("video_id", entry.ID), slog.Any("err", err))
		}
		telemetry.Inc(telemetry.VideosRefreshed)
	}
	return info.ChannelID
}

// refreshStoredChannels pages through every stored channel and refreshes API
// statistics for the ones this sweep did not cover, so channels removed from
// the configured list keep accumulating history.
func (m *Monitor) refreshStoredChannels(ctx context.Context, covered map[string]bool) {
	if m.api == nil {
		return
	}
	const page = 50
	for offset := 0; ; offset += page {
		if ctx.Err() != nil {
			return
		}
		rows, err := m.store.GetChannels(ctx, page, offset)
		if err != nil {
			slog.Error("list stored channels failed", slog.Any("err", err))
			return
		}
		urlByID := make(map[string]string, len(rows))
		ids := make([]string, 0, len(rows))
		for _, row := range rows {
			if covered[row.ChannelID] {
				continue
			}
			urlByID[row.ChannelID] = row.ChannelURL
			ids = append(ids, row.ChannelID)
		}
		if len(ids) > 0 {
			m.refreshChannelsByAPI(ctx, ids, urlByID)
		}
		if len(rows) < page {
			return
		}
	}
}

func (m *Monitor) refreshChannelsByAPI(ctx context.Context, ids []string, urlByID map[string]string) {
	infos, err := m.api.ChannelInfo(ctx, ids)
	if err != nil {
		telemetry.Inc(telemetry.APIRequestsFailed)
		slog.Warn("stored channel refresh failed", slog.Int("count", len(ids)), slog.Any("err", err))
		return
	}
	for i := range infos {
		combined := fusion.CombineChannel(nil, &infos[i], "")
		combined.ChannelURL = urlByID[combined.ChannelID]
		if err := m.store.UpsertChannel(ctx, combined); err != nil {
			slog.Warn("stored channel upsert failed", slog.String("channel_id", combined.ChannelID), slog.Any("err", err))
			continue
		}
		if err := m.store.AddChannelHistory(ctx, combined.ChannelID,
			combined.FollowerCount, combined.ViewCount, combined.VideoCount); err != nil {
			slog.Warn("stored channel history failed", slog.String("channel_id", combined.ChannelID), slog.Any("err", err))
		}
		telemetry.Inc(telemetry.ChannelsRefreshed)
	}
}

// refreshChannel fuses both channel views and persists record plus history
// snapshot. A failing Data API degrades to extractor-only data.
func (m *Monitor) refreshChannel(ctx context.Context, info *schema.ChannelInfo) error {
	var apiInfo *schema.ChannelAPIInfo
	if m.api != nil {
		infos, err := m.api.ChannelInfo(ctx, []string{info.ChannelID})
		if err != nil {
			telemetry.Inc(telemetry.APIRequestsFailed)
			slog.Warn("channel api enrichment failed", slog.String("channel_id", info.ChannelID), slog.Any("err", err))
		} else if len(infos) > 0 {
			apiInfo = &infos[0]
		}
	}

	combined := fusion.CombineChannel(info, apiInfo, m.listName)
	if err := m.store.UpsertChannel(ctx, combined); err != nil {
		return err
	}
	return m.store.AddChannelHistory(ctx, combined.ChannelID,
		combined.FollowerCount, combined.ViewCount, combined.VideoCount)
}

// enrichVideos fetches API records for ids, returning a lookup map. A failed
// batch degrades to extractor-only records.
func (m *Monitor) enrichVideos(ctx context.Context, ids []string) map[string]*schema.Video {
	out := make(map[string]*schema.Video, len(ids))
	if m.api == nil || len(ids) == 0 {
		return out
	}
	vids, err := m.api.VideoInfo(ctx, ids)
	if err != nil {
		telemetry.Inc(telemetry.APIRequestsFailed)
		slog.Warn("video api enrichment failed", slog.Int("count", len(ids)), slog.Any("err", err))
		return out
	}
	for i := range vids {
		out[vids[i].ID] = &vids[i]
	}
	return out
}

// fetchThumbnail stores the best thumbnail of a new video on disk. Best
// effort; disabled when no thumbnail directory is configured.
func (m *Monitor) fetchThumbnail(ctx context.Context, v schema.Video) {
	if m.thumbDir == "" {
		return
	}
	best := v.BestThumbnail()
	if best == nil {
		return
	}
	target := filepath.Join(m.thumbDir, v.ID+".jpg")
	if err := m.ext.DownloadThumbnail(ctx, best.URL, target); err != nil {
		slog.Debug("thumbnail fetch failed", slog.String("video_id", v.ID), slog.Any("err", err))
		return
	}
	if err := m.store.UpdateThumbnailPath(ctx, best.URL, target); err != nil {
		slog.Debug("thumbnail path update failed", slog.String("video_id", v.ID), slog.Any("err", err))
	}
}
