package ytapi

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"google.golang.org/api/youtube/v3"

	"github.com/onnwee/yt-observatory/db"
	"github.com/onnwee/yt-observatory/schema"
)

func TestParseISODuration(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"PT4M13S", 253, false},
		{"PT1H2M3S", 3723, false},
		{"PT58S", 58, false},
		{"PT1H", 3600, false},
		{"P1DT2H", 93600, false},
		{"P0D", 0, false},
		{"PT", 0, false},
		{"", 0, true},
		{"4M13S", 0, true},
		{"PTxS", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseISODuration(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseISODuration(%q) err = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseISODuration(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestChunkIDs(t *testing.T) {
	ids := make([]string, 120)
	chunks := chunkIDs(ids)
	if len(chunks) != 3 {
		t.Fatalf("chunks = %d, want 3", len(chunks))
	}
	if len(chunks[0]) != 50 || len(chunks[2]) != 20 {
		t.Errorf("chunk sizes = %d,%d,%d", len(chunks[0]), len(chunks[1]), len(chunks[2]))
	}
	if chunkIDs(nil) != nil {
		t.Error("chunkIDs(nil) should be nil")
	}
}

func TestMapVideo(t *testing.T) {
	item := &youtube.Video{
		Id: "v1",
		Snippet: &youtube.VideoSnippet{
			Title:                "Title",
			Description:          "Desc",
			PublishedAt:          "2024-05-01T10:00:00Z",
			Tags:                 []string{"a"},
			DefaultAudioLanguage: "ru",
		},
		Statistics: &youtube.VideoStatistics{
			ViewCount: 100, LikeCount: 5, CommentCount: 2,
		},
		ContentDetails: &youtube.VideoContentDetails{Duration: "PT2M"},
	}
	v := mapVideo(item)
	if v.ID != "v1" || v.Title != "Title" {
		t.Errorf("identity: %+v", v)
	}
	if v.UploadDate == nil || v.UploadDate.Year() != 2024 {
		t.Errorf("upload date = %v", v.UploadDate)
	}
	if v.Duration == nil || *v.Duration != 120 {
		t.Errorf("duration = %v", v.Duration)
	}
	if v.ViewCount == nil || *v.ViewCount != 100 || *v.LikeCount != 5 {
		t.Errorf("stats: %+v", v)
	}
	if v.DefaultAudioLanguage != "ru" {
		t.Errorf("lang = %q", v.DefaultAudioLanguage)
	}
}

func TestMapChannelHiddenSubscribers(t *testing.T) {
	item := &youtube.Channel{
		Id: "UCx",
		Snippet: &youtube.ChannelSnippet{
			Title: "Chan", CustomUrl: "@chan", Country: "DE",
			PublishedAt: "2019-01-02T03:04:05Z",
		},
		Statistics: &youtube.ChannelStatistics{
			ViewCount: 1000, SubscriberCount: 42, HiddenSubscriberCount: true, VideoCount: 7,
		},
	}
	info := mapChannel(item)
	if info.SubscriberCount != nil {
		t.Errorf("hidden subscriber count must map to nil, got %v", *info.SubscriberCount)
	}
	if info.ViewCount == nil || *info.ViewCount != 1000 {
		t.Errorf("view count = %v", info.ViewCount)
	}
	if info.CustomURL != "@chan" || info.PublishedAt == nil {
		t.Errorf("snippet mapping: %+v", info)
	}
}

// fakeStore drives the sweep without a database.
type fakeStore struct {
	pending   []db.VideoRow
	updated   []string
	invalided []string
	resets    int
}

func (f *fakeStore) VideosWithoutUploadDate(ctx context.Context, limit int) ([]db.VideoRow, error) {
	if len(f.pending) > limit {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}

func (f *fakeStore) UpdateVideo(ctx context.Context, v schema.Video) error {
	f.updated = append(f.updated, v.ID)
	f.drop(v.ID)
	return nil
}

func (f *fakeStore) SetVideoInvalid(ctx context.Context, videoID string) error {
	f.invalided = append(f.invalided, videoID)
	f.drop(videoID)
	return nil
}

func (f *fakeStore) ResetAllInvalidVideos(ctx context.Context) (int64, error) {
	f.resets++
	return int64(len(f.invalided)), nil
}

func (f *fakeStore) drop(id string) {
	for i, r := range f.pending {
		if r.VideoID == id {
			f.pending = append(f.pending[:i], f.pending[i+1:]...)
			return
		}
	}
}

func TestAuthorizeRequiresClientSecrets(t *testing.T) {
	c := &Client{secretsFile: filepath.Join(t.TempDir(), "missing.json")}
	if err := c.Authorize(context.Background()); !errors.Is(err, ErrAuthRequired) {
		t.Errorf("err = %v, want ErrAuthRequired", err)
	}
}

func TestAuthorizeSkipsWithAPIKey(t *testing.T) {
	c := &Client{apiKey: "k"}
	if err := c.Authorize(context.Background()); err != nil {
		t.Errorf("api-key mode needs no consent, got %v", err)
	}
}

func TestSweepTombstonesMissingVideos(t *testing.T) {
	// An empty pending queue still resets tombstones exactly once.
	store := &fakeStore{}
	c := &Client{apiKey: "test"}
	if err := c.UpdateMissingVideoInfo(context.Background(), store); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if store.resets != 1 {
		t.Errorf("resets = %d, want 1", store.resets)
	}
}
