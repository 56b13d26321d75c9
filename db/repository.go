package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/onnwee/yt-observatory/schema"
)

var (
	// ErrChannelNotFound is returned when a video references an unknown channel.
	ErrChannelNotFound = errors.New("db: channel not found")
	// ErrVideoNotFound is returned when an update targets an unknown video.
	ErrVideoNotFound = errors.New("db: video not found")
)

// invalidLikeCount tombstones videos the Data API reported as gone. The
// enrichment sweep skips them until ResetAllInvalidVideos clears the marks.
const invalidLikeCount = -1

// Repository owns all persistence operations. Multi-row writes run inside a
// single transaction so partial channel or video states never become visible.
type Repository struct {
	db *sql.DB
}

// NewRepository wraps an open connection.
func NewRepository(dbx *sql.DB) *Repository { return &Repository{db: dbx} }

// DB exposes the underlying handle for health checks and heartbeats.
func (r *Repository) DB() *sql.DB { return r.db }

// ChannelRow is a stored channel.
type ChannelRow struct {
	ChannelID     string
	UUID          uuid.UUID
	CustomURL     sql.NullString
	Title         sql.NullString
	Description   sql.NullString
	ChannelURL    string
	FollowerCount sql.NullInt64
	ViewCount     sql.NullInt64
	VideoCount    sql.NullInt64
	PublishedAt   sql.NullTime
	Country       sql.NullString
	ListName      sql.NullString
	AvatarPath    sql.NullString
	LastUpdate    time.Time
}

// VideoRow is a stored video.
type VideoRow struct {
	UUID                 uuid.UUID
	VideoID              string
	ChannelID            string
	URL                  sql.NullString
	Title                string
	Description          sql.NullString
	Duration             int
	ViewCount            sql.NullInt64
	LikeCount            sql.NullInt64
	CommentCount         sql.NullInt64
	UploadDate           sql.NullTime
	DefaultAudioLanguage sql.NullString
	VideoPath            sql.NullString
	LastUpdate           time.Time
}

// ChannelExists reports whether the channel is already tracked.
func (r *Repository) ChannelExists(ctx context.Context, channelID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM channels WHERE channel_id=$1`, channelID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetChannel fetches a channel by its YouTube id.
func (r *Repository) GetChannel(ctx context.Context, channelID string) (*ChannelRow, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT channel_id, id, custom_url, title, description, channel_url,
		       follower_count, view_count, video_count, published_at, country,
		       list_name, avatar_path, last_update
		FROM channels WHERE channel_id=$1`, channelID)
	var c ChannelRow
	err := row.Scan(&c.ChannelID, &c.UUID, &c.CustomURL, &c.Title, &c.Description,
		&c.ChannelURL, &c.FollowerCount, &c.ViewCount, &c.VideoCount,
		&c.PublishedAt, &c.Country, &c.ListName, &c.AvatarPath, &c.LastUpdate)
	if err == sql.ErrNoRows {
		return nil, ErrChannelNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetChannels pages through all tracked channels ordered by channel_id.
func (r *Repository) GetChannels(ctx context.Context, limit, offset int) ([]ChannelRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT channel_id, id, custom_url, title, description, channel_url,
		       follower_count, view_count, video_count, published_at, country,
		       list_name, avatar_path, last_update
		FROM channels ORDER BY channel_id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ChannelRow
	for rows.Next() {
		var c ChannelRow
		if err := rows.Scan(&c.ChannelID, &c.UUID, &c.CustomURL, &c.Title, &c.Description,
			&c.ChannelURL, &c.FollowerCount, &c.ViewCount, &c.VideoCount,
			&c.PublishedAt, &c.Country, &c.ListName, &c.AvatarPath, &c.LastUpdate); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpsertChannel inserts or updates a fused channel record. Nil counters keep
// the stored value (COALESCE keeps history continuity when one source is
// down); channel thumbnails are upserted in the same transaction.
func (r *Repository) UpsertChannel(ctx context.Context, ch schema.Channel) error {
	if ch.ChannelID == "" {
		return fmt.Errorf("upsert channel: empty channel_id")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO channels (channel_id, custom_url, title, description, channel_url,
			follower_count, view_count, video_count, published_at, country, tags, list_name, last_update)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,NOW())
		ON CONFLICT (channel_id) DO UPDATE SET
			custom_url = COALESCE(NULLIF(EXCLUDED.custom_url, ''), channels.custom_url),
			title = COALESCE(NULLIF(EXCLUDED.title, ''), channels.title),
			description = COALESCE(NULLIF(EXCLUDED.description, ''), channels.description),
			channel_url = EXCLUDED.channel_url,
			follower_count = COALESCE(EXCLUDED.follower_count, channels.follower_count),
			view_count = COALESCE(EXCLUDED.view_count, channels.view_count),
			video_count = COALESCE(EXCLUDED.video_count, channels.video_count),
			published_at = COALESCE(EXCLUDED.published_at, channels.published_at),
			country = COALESCE(NULLIF(EXCLUDED.country, ''), channels.country),
			tags = COALESCE(EXCLUDED.tags, channels.tags),
			list_name = COALESCE(NULLIF(EXCLUDED.list_name, ''), channels.list_name),
			last_update = NOW()`,
		ch.ChannelID, ch.CustomURL, ch.Title, ch.Description, ch.ChannelURL,
		ch.FollowerCount, ch.ViewCount, ch.VideoCount, ch.PublishedAt,
		ch.Country, tagsArg(ch.Tags), ch.ListName)
	if err != nil {
		return fmt.Errorf("upsert channel %s: %w", ch.ChannelID, err)
	}

	for _, t := range ch.Thumbnails {
		if err := addThumbnailTx(ctx, tx, t, nil, &ch.ChannelID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// AddChannelHistory appends a stats snapshot row for the channel.
func (r *Repository) AddChannelHistory(ctx context.Context, channelID string, follower, view, video *int64) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO channel_history (channel_id, follower_count, view_count, video_count)
		SELECT channel_id, $2, $3, $4 FROM channels WHERE channel_id=$1`,
		channelID, follower, view, video)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrChannelNotFound
	}
	return nil
}

// AddVideo inserts a newly discovered video with its tags and thumbnails.
// The channel must already exist. Re-adding a known video updates it instead
// of failing, so replayed discovery sweeps stay idempotent.
func (r *Repository) AddVideo(ctx context.Context, channelID string, v schema.Video) error {
	exists, err := r.ChannelExists(ctx, channelID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("add video %s: %w", v.ID, ErrChannelNotFound)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var vid uuid.UUID
	err = tx.QueryRowContext(ctx, `
		INSERT INTO videos (video_id, channel_id, url, title, description, duration,
			view_count, like_count, comment_count, upload_date, default_audio_language, last_update)
		VALUES ($1,$2,$3,$4,$5,COALESCE($6,0),$7,COALESCE($8,0),COALESCE($9,0),$10,NULLIF($11,''),NOW())
		ON CONFLICT (video_id) DO UPDATE SET
			url = COALESCE(NULLIF(EXCLUDED.url, ''), videos.url),
			title = EXCLUDED.title,
			description = COALESCE(EXCLUDED.description, videos.description),
			duration = GREATEST(EXCLUDED.duration, videos.duration),
			view_count = COALESCE(EXCLUDED.view_count, videos.view_count),
			like_count = COALESCE(EXCLUDED.like_count, videos.like_count),
			comment_count = COALESCE(EXCLUDED.comment_count, videos.comment_count),
			upload_date = COALESCE(EXCLUDED.upload_date, videos.upload_date),
			default_audio_language = COALESCE(EXCLUDED.default_audio_language, videos.default_audio_language),
			last_update = NOW()
		RETURNING id`,
		v.ID, channelID, v.URL, v.Title, v.Description, v.Duration,
		v.ViewCount, v.LikeCount, v.CommentCount, v.UploadDate, v.DefaultAudioLanguage).Scan(&vid)
	if err != nil {
		return fmt.Errorf("insert video %s: %w", v.ID, err)
	}

	if err := setVideoTagsTx(ctx, tx, vid, v.Tags); err != nil {
		return err
	}
	for _, t := range v.Thumbnails {
		if err := addThumbnailTx(ctx, tx, t, &vid, nil); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// UpdateVideo refreshes mutable fields of a known video. Nil counters keep
// the stored values; a nil tag slice keeps the existing tag links.
func (r *Repository) UpdateVideo(ctx context.Context, v schema.Video) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var vid uuid.UUID
	err = tx.QueryRowContext(ctx, `
		UPDATE videos SET
			title = COALESCE(NULLIF($2, ''), title),
			description = COALESCE($3, description),
			duration = CASE WHEN $4::int IS NULL OR $4 = 0 THEN duration ELSE $4 END,
			view_count = COALESCE($5, view_count),
			like_count = COALESCE($6, like_count),
			comment_count = COALESCE($7, comment_count),
			upload_date = COALESCE($8, upload_date),
			default_audio_language = COALESCE(NULLIF($9, ''), default_audio_language),
			last_update = NOW()
		WHERE video_id = $1
		RETURNING id`,
		v.ID, v.Title, v.Description, v.Duration, v.ViewCount, v.LikeCount,
		v.CommentCount, v.UploadDate, v.DefaultAudioLanguage).Scan(&vid)
	if err == sql.ErrNoRows {
		return fmt.Errorf("update video %s: %w", v.ID, ErrVideoNotFound)
	}
	if err != nil {
		return fmt.Errorf("update video %s: %w", v.ID, err)
	}

	if v.Tags != nil {
		if err := setVideoTagsTx(ctx, tx, vid, v.Tags); err != nil {
			return err
		}
	}
	for _, t := range v.Thumbnails {
		if err := addThumbnailTx(ctx, tx, t, &vid, nil); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// AddVideoHistory appends a stats snapshot row for the video.
func (r *Repository) AddVideoHistory(ctx context.Context, videoID string, view, like, comment *int64) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO video_history (video_id, view_count, like_count, comment_count)
		SELECT id, $2, $3, $4 FROM videos WHERE video_id=$1`,
		videoID, view, like, comment)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrVideoNotFound
	}
	return nil
}

// AddVideoFormats upserts the format inventory of a video keyed by
// (video, format_id) so repeated probes never duplicate rows.
func (r *Repository) AddVideoFormats(ctx context.Context, videoID string, formats []schema.Format) error {
	if len(formats) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var vid uuid.UUID
	err = tx.QueryRowContext(ctx, `SELECT id FROM videos WHERE video_id=$1`, videoID).Scan(&vid)
	if err == sql.ErrNoRows {
		return fmt.Errorf("add formats %s: %w", videoID, ErrVideoNotFound)
	}
	if err != nil {
		return err
	}

	for _, f := range formats {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO video_formats (video_id, format_id, ext, resolution, fps, audio_channels,
				filesize, tbr, protocol, vcodec, acodec, asr, width, height,
				dynamic_range, language, quality, has_drm, filesize_approx)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
			ON CONFLICT (video_id, format_id) DO UPDATE SET
				ext=EXCLUDED.ext, resolution=EXCLUDED.resolution, fps=EXCLUDED.fps,
				audio_channels=EXCLUDED.audio_channels, filesize=EXCLUDED.filesize,
				tbr=EXCLUDED.tbr, protocol=EXCLUDED.protocol, vcodec=EXCLUDED.vcodec,
				acodec=EXCLUDED.acodec, asr=EXCLUDED.asr, width=EXCLUDED.width,
				height=EXCLUDED.height, dynamic_range=EXCLUDED.dynamic_range,
				language=EXCLUDED.language, quality=EXCLUDED.quality,
				has_drm=EXCLUDED.has_drm, filesize_approx=EXCLUDED.filesize_approx`,
			vid, f.FormatID, f.Ext, f.Resolution, f.FPS, f.AudioChannels,
			f.Filesize, f.TBR, f.Protocol, f.VCodec, f.ACodec, f.ASR,
			f.Width, f.Height, f.DynamicRange, f.Language, f.Quality,
			f.HasDRM, f.FilesizeApprox)
		if err != nil {
			return fmt.Errorf("upsert format %s/%s: %w", videoID, f.FormatID, err)
		}
	}
	return tx.Commit()
}

// BulkAddTags inserts missing tag names, ignoring ones already present.
func (r *Repository) BulkAddTags(ctx context.Context, names []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := bulkAddTagsTx(ctx, tx, names); err != nil {
		return err
	}
	return tx.Commit()
}

// ExistingVideoIDs returns the subset of ids already stored.
func (r *Repository) ExistingVideoIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	out := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT video_id FROM videos WHERE video_id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

// VideoIDsWithoutFormats returns videos that have no format inventory yet.
func (r *Repository) VideoIDsWithoutFormats(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT v.video_id FROM videos v
		LEFT JOIN video_formats f ON f.video_id = v.id
		WHERE f.id IS NULL AND COALESCE(v.like_count, 0) <> $2
		GROUP BY v.video_id
		ORDER BY v.video_id
		LIMIT $1`, limit, invalidLikeCount)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// VideosWithoutUploadDate returns videos still missing API enrichment,
// skipping tombstoned ones.
func (r *Repository) VideosWithoutUploadDate(ctx context.Context, limit int) ([]VideoRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, video_id, channel_id, url, title, description, duration,
		       view_count, like_count, comment_count, upload_date,
		       default_audio_language, video_path, last_update
		FROM videos
		WHERE upload_date IS NULL AND COALESCE(like_count, 0) <> $2
		ORDER BY last_update
		LIMIT $1`, limit, invalidLikeCount)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []VideoRow
	for rows.Next() {
		var v VideoRow
		if err := rows.Scan(&v.UUID, &v.VideoID, &v.ChannelID, &v.URL, &v.Title,
			&v.Description, &v.Duration, &v.ViewCount, &v.LikeCount, &v.CommentCount,
			&v.UploadDate, &v.DefaultAudioLanguage, &v.VideoPath, &v.LastUpdate); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// SetVideoInvalid tombstones a video the API no longer knows about.
func (r *Repository) SetVideoInvalid(ctx context.Context, videoID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE videos SET like_count=$2, last_update=NOW() WHERE video_id=$1`,
		videoID, invalidLikeCount)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrVideoNotFound
	}
	return nil
}

// ResetAllInvalidVideos clears every tombstone so the next enrichment sweep
// retries them. Returns the number of videos reset.
func (r *Repository) ResetAllInvalidVideos(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE videos SET like_count=0, last_update=NOW() WHERE like_count=$1`,
		invalidLikeCount)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpdateVideoPath records where a completed download landed on disk.
func (r *Repository) UpdateVideoPath(ctx context.Context, videoID, path string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE videos SET video_path=$2, last_update=NOW() WHERE video_id=$1`,
		videoID, path)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrVideoNotFound
	}
	return nil
}

// UpdateThumbnailPath records the local file for a fetched thumbnail URL.
func (r *Repository) UpdateThumbnailPath(ctx context.Context, url, path string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE thumbnails SET thumbnail_path=$2 WHERE url=$1`, url, path)
	return err
}

// GetVideo fetches a video by its YouTube id.
func (r *Repository) GetVideo(ctx context.Context, videoID string) (*VideoRow, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, video_id, channel_id, url, title, description, duration,
		       view_count, like_count, comment_count, upload_date,
		       default_audio_language, video_path, last_update
		FROM videos WHERE video_id=$1`, videoID)
	var v VideoRow
	err := row.Scan(&v.UUID, &v.VideoID, &v.ChannelID, &v.URL, &v.Title,
		&v.Description, &v.Duration, &v.ViewCount, &v.LikeCount, &v.CommentCount,
		&v.UploadDate, &v.DefaultAudioLanguage, &v.VideoPath, &v.LastUpdate)
	if err == sql.ErrNoRows {
		return nil, ErrVideoNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func bulkAddTagsTx(ctx context.Context, tx *sql.Tx, names []string) error {
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tags(name) VALUES($1) ON CONFLICT (name) DO NOTHING`, n); err != nil {
			return fmt.Errorf("add tag %q: %w", n, err)
		}
	}
	return nil
}

// setVideoTagsTx replaces the tag links of a video with the given set.
func setVideoTagsTx(ctx context.Context, tx *sql.Tx, vid uuid.UUID, names []string) error {
	if names == nil {
		return nil
	}
	if err := bulkAddTagsTx(ctx, tx, names); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM videotag WHERE video_id=$1`, vid); err != nil {
		return err
	}
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO videotag (video_id, tag_id)
			SELECT $1, id FROM tags WHERE name=$2
			ON CONFLICT DO NOTHING`, vid, n); err != nil {
			return fmt.Errorf("link tag %q: %w", n, err)
		}
	}
	return nil
}

// addThumbnailTx upserts a thumbnail row attached to exactly one owner.
func addThumbnailTx(ctx context.Context, tx *sql.Tx, t schema.Thumbnail, videoUUID *uuid.UUID, channelID *string) error {
	if t.URL == "" {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO thumbnails (video_id, channel_id, url, width, height, thumbnail_id)
		VALUES ($1,$2,$3,NULLIF($4,0),NULLIF($5,0),NULLIF($6,''))
		ON CONFLICT (url) DO UPDATE SET
			width=COALESCE(NULLIF(EXCLUDED.width,0), thumbnails.width),
			height=COALESCE(NULLIF(EXCLUDED.height,0), thumbnails.height)`,
		videoUUID, channelID, t.URL, t.Width, t.Height, t.ID)
	if err != nil {
		return fmt.Errorf("upsert thumbnail %s: %w", t.URL, err)
	}
	return nil
}

func tagsArg(tags []string) interface{} {
	if tags == nil {
		return nil
	}
	return tags
}
