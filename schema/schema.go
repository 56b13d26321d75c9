// Package schema defines the record shapes exchanged between the extractor,
// the Data API adapter, the fusion layer and the repository. Pointer fields
// mean "unknown": a nil counter is preserved in the store, a zero value is not.
package schema

import "time"

// Thumbnail is a single thumbnail variant as reported by YouTube.
type Thumbnail struct {
	URL        string `json:"url"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	Preference *int   `json:"preference,omitempty"`
	ID         string `json:"id,omitempty"`
	Resolution string `json:"resolution,omitempty"`
}

// Video is a normalized video record. Both the flat-playlist extractor dump
// and the Data API response are mapped into this shape; fields only one side
// can provide stay nil on the other.
type Video struct {
	ID                   string      `json:"id"`
	URL                  string      `json:"url,omitempty"`
	Title                string      `json:"title"`
	Description          *string     `json:"description,omitempty"`
	Duration             *int        `json:"duration,omitempty"`
	Tags                 []string    `json:"tags,omitempty"`
	Thumbnails           []Thumbnail `json:"thumbnails,omitempty"`
	ViewCount            *int64      `json:"view_count,omitempty"`
	LikeCount            *int64      `json:"like_count,omitempty"`
	CommentCount         *int64      `json:"comment_count,omitempty"`
	Timestamp            *int64      `json:"timestamp,omitempty"`
	ReleaseTimestamp     *int64      `json:"release_timestamp,omitempty"`
	Availability         string      `json:"availability,omitempty"`
	LiveStatus           string      `json:"live_status,omitempty"`
	ChannelIsVerified    *bool       `json:"channel_is_verified,omitempty"`
	DefaultAudioLanguage string      `json:"default_audio_language,omitempty"`
	UploadDate           *time.Time  `json:"upload_date,omitempty"`
}

// BestThumbnail returns the highest-resolution thumbnail, or nil if none.
func (v Video) BestThumbnail() *Thumbnail {
	return bestThumbnail(v.Thumbnails)
}

// ChannelInfo is the extractor's view of a channel: identity plus the flat
// entry list of its uploads tab.
type ChannelInfo struct {
	ID                   string      `json:"id"`
	ChannelID            string      `json:"channel_id"`
	Channel              string      `json:"channel"`
	Title                string      `json:"title"`
	Uploader             string      `json:"uploader"`
	UploaderID           string      `json:"uploader_id"`
	Description          string      `json:"description"`
	ChannelURL           string      `json:"channel_url"`
	WebpageURL           string      `json:"webpage_url"`
	ChannelFollowerCount *int64      `json:"channel_follower_count"`
	ViewCount            *int64      `json:"view_count"`
	Tags                 []string    `json:"tags"`
	Thumbnails           []Thumbnail `json:"thumbnails"`
	Entries              []Video     `json:"-"`
}

// BestThumbnail returns the highest-resolution channel avatar, or nil.
func (c ChannelInfo) BestThumbnail() *Thumbnail {
	return bestThumbnail(c.Thumbnails)
}

// ChannelAPIInfo is the Data API's view of a channel (snippet + statistics).
type ChannelAPIInfo struct {
	ID              string
	Title           string
	Description     string
	CustomURL       string
	PublishedAt     *time.Time
	Country         string
	ViewCount       *int64
	SubscriberCount *int64
	VideoCount      *int64
}

// Channel is the fused channel record the repository persists.
type Channel struct {
	ChannelID     string
	CustomURL     string
	Title         string
	Description   string
	ChannelURL    string
	FollowerCount *int64
	ViewCount     *int64
	VideoCount    *int64
	PublishedAt   *time.Time
	Country       string
	Tags          []string
	Thumbnails    []Thumbnail
	ListName      string
}

// Format is one yt-dlp format variant of a video.
type Format struct {
	FormatID       string   `json:"format_id"`
	Ext            string   `json:"ext"`
	Resolution     string   `json:"resolution"`
	FPS            *float64 `json:"fps"`
	AudioChannels  *int     `json:"audio_channels"`
	Filesize       *int64   `json:"filesize"`
	TBR            *float64 `json:"tbr"`
	Protocol       string   `json:"protocol"`
	VCodec         string   `json:"vcodec"`
	ACodec         string   `json:"acodec"`
	ASR            *int     `json:"asr"`
	Width          *int     `json:"width"`
	Height         *int     `json:"height"`
	DynamicRange   string   `json:"dynamic_range"`
	Language       string   `json:"language"`
	Quality        *float64 `json:"quality"`
	HasDRM         bool     `json:"has_drm"`
	FilesizeApprox *int64   `json:"filesize_approx"`
}

// NewVideo is a notification payload for the news queue.
type NewVideo struct {
	ChannelName string
	ChannelURL  string
	VideoTitle  string
	VideoURL    string
	VideoID     string
}

// VideoDownload is a work item for the shorts download and publish pipeline.
type VideoDownload struct {
	FileName string
	FilePath string
	VideoURL string
	VideoID  string
}

func bestThumbnail(ts []Thumbnail) *Thumbnail {
	var best *Thumbnail
	bestArea := -1
	for i := range ts {
		area := ts[i].Width * ts[i].Height
		if area > bestArea {
			best = &ts[i]
			bestArea = area
		}
	}
	return best
}
