// Package ytapi adapts the YouTube Data API v3: batched channel and video
// lookups, the credential state machine over a local token cache, and the
// enrichment sweep for videos still missing API-only fields.
package ytapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/youtube/v3"

	"github.com/onnwee/yt-observatory/config"
	"github.com/onnwee/yt-observatory/schema"
)

// maxBatchIDs is the Data API limit for comma-joined id filters.
const maxBatchIDs = 50

// ErrAuthRequired means no usable credentials exist and interactive
// authorization is needed. Headless deployments must provision a token
// cache (or an API key) up front.
var ErrAuthRequired = errors.New("ytapi: authorization required")

// Client talks to the Data API using either an API key or cached OAuth
// credentials. A failed call with an auth-shaped status discards the
// credentials and retries exactly once.
type Client struct {
	apiKey        string
	serviceSecret string
	secretsFile   string
	tokenFile     string

	mu  sync.Mutex
	svc *youtube.Service
}

// New builds a client from configuration. The token cache lives alongside
// the rest of the service state under the storage path.
func New(cfg *config.Config) *Client {
	return &Client{
		apiKey:        cfg.YouTubeAPIKey,
		serviceSecret: cfg.YouTubeServiceSecretJSON,
		secretsFile:   cfg.YouTubeSecretJSON,
		tokenFile:     tokenCachePath(cfg),
	}
}

// ChannelInfo fetches snippet + statistics for the given channel ids,
// batching requests at the API's id limit.
func (c *Client) ChannelInfo(ctx context.Context, ids []string) ([]schema.ChannelAPIInfo, error) {
	var out []schema.ChannelAPIInfo
	for _, chunk := range chunkIDs(ids) {
		var resp *youtube.ChannelListResponse
		err := c.do(ctx, func(svc *youtube.Service) error {
			var err error
			resp, err = svc.Channels.List([]string{"snippet", "statistics"}).
				Id(chunk...).MaxResults(int64(len(chunk))).Context(ctx).Do()
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("channels.list: %w", err)
		}
		for _, item := range resp.Items {
			out = append(out, mapChannel(item))
		}
	}
	return out, nil
}

// VideoInfo fetches snippet + statistics + contentDetails for the given
// video ids. Videos the API does not return (deleted, private) are simply
// absent from the result.
func (c *Client) VideoInfo(ctx context.Context, ids []string) ([]schema.Video, error) {
	var out []schema.Video
	for _, chunk := range chunkIDs(ids) {
		var resp *youtube.VideoListResponse
		err := c.do(ctx, func(svc *youtube.Service) error {
			var err error
			resp, err = svc.Videos.List([]string{"snippet", "statistics", "contentDetails"}).
				Id(chunk...).MaxResults(int64(len(chunk))).Context(ctx).Do()
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("videos.list: %w", err)
		}
		for _, item := range resp.Items {
			out = append(out, mapVideo(item))
		}
	}
	return out, nil
}

// do runs one API call, retrying a single time after discarding credentials
// when the API answers 401 or 403.
func (c *Client) do(ctx context.Context, call func(*youtube.Service) error) error {
	svc, err := c.service(ctx)
	if err != nil {
		return err
	}
	err = call(svc)
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) || (gerr.Code != 401 && gerr.Code != 403) {
		return err
	}

	slog.Warn("api call rejected, discarding credentials and retrying once",
		slog.Int("status", gerr.Code))
	c.invalidate()
	svc, err = c.service(ctx)
	if err != nil {
		return err
	}
	return call(svc)
}

func chunkIDs(ids []string) [][]string {
	var chunks [][]string
	for len(ids) > 0 {
		n := len(ids)
		if n > maxBatchIDs {
			n = maxBatchIDs
		}
		chunks = append(chunks, ids[:n])
		ids = ids[n:]
	}
	return chunks
}

func mapChannel(item *youtube.Channel) schema.ChannelAPIInfo {
	info := schema.ChannelAPIInfo{ID: item.Id}
	if item.Snippet != nil {
		info.Title = item.Snippet.Title
		info.Description = item.Snippet.Description
		info.CustomURL = item.Snippet.CustomUrl
		info.Country = item.Snippet.Country
		if t, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt); err == nil {
			utc := t.UTC()
			info.PublishedAt = &utc
		}
	}
	if item.Statistics != nil {
		info.ViewCount = u64(item.Statistics.ViewCount)
		if !item.Statistics.HiddenSubscriberCount {
			info.SubscriberCount = u64(item.Statistics.SubscriberCount)
		}
		info.VideoCount = u64(item.Statistics.VideoCount)
	}
	return info
}

func mapVideo(item *youtube.Video) schema.Video {
	v := schema.Video{ID: item.Id, URL: "https://www.youtube.com/watch?v=" + item.Id}
	if item.Snippet != nil {
		v.Title = item.Snippet.Title
		if item.Snippet.Description != "" {
			desc := item.Snippet.Description
			v.Description = &desc
		}
		v.Tags = item.Snippet.Tags
		v.DefaultAudioLanguage = item.Snippet.DefaultAudioLanguage
		if t, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt); err == nil {
			utc := t.UTC()
			v.UploadDate = &utc
		}
		v.Thumbnails = mapThumbnails(item.Snippet.Thumbnails)
	}
	if item.Statistics != nil {
		v.ViewCount = u64(item.Statistics.ViewCount)
		v.LikeCount = u64(item.Statistics.LikeCount)
		v.CommentCount = u64(item.Statistics.CommentCount)
	}
	if item.ContentDetails != nil && item.ContentDetails.Duration != "" {
		if secs, err := ParseISODuration(item.ContentDetails.Duration); err == nil {
			v.Duration = &secs
		}
	}
	return v
}

func mapThumbnails(td *youtube.ThumbnailDetails) []schema.Thumbnail {
	if td == nil {
		return nil
	}
	var out []schema.Thumbnail
	add := func(id string, t *youtube.Thumbnail) {
		if t == nil || t.Url == "" {
			return
		}
		out = append(out, schema.Thumbnail{
			ID: id, URL: t.Url, Width: int(t.Width), Height: int(t.Height),
		})
	}
	add("default", td.Default)
	add("medium", td.Medium)
	add("high", td.High)
	add("standard", td.Standard)
	add("maxres", td.Maxres)
	return out
}

func u64(v uint64) *int64 {
	n := int64(v)
	return &n
}
