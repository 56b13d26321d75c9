package monitor

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/onnwee/yt-observatory/db"
	"github.com/onnwee/yt-observatory/schema"
)

type fakeStore struct {
	channels  map[string]schema.Channel
	videos    map[string]schema.Video
	histories int
	paths     map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		channels: map[string]schema.Channel{},
		videos:   map[string]schema.Video{},
		paths:    map[string]string{},
	}
}

func (f *fakeStore) ChannelExists(ctx context.Context, id string) (bool, error) {
	_, ok := f.channels[id]
	return ok, nil
}
func (f *fakeStore) UpsertChannel(ctx context.Context, ch schema.Channel) error {
	f.channels[ch.ChannelID] = ch
	return nil
}
func (f *fakeStore) AddChannelHistory(ctx context.Context, id string, a, b, c *int64) error {
	return nil
}
func (f *fakeStore) AddVideo(ctx context.Context, channelID string, v schema.Video) error {
	f.videos[v.ID] = v
	return nil
}
func (f *fakeStore) UpdateVideo(ctx context.Context, v schema.Video) error {
	f.videos[v.ID] = v
	return nil
}
func (f *fakeStore) AddVideoHistory(ctx context.Context, id string, a, b, c *int64) error {
	f.histories++
	return nil
}
func (f *fakeStore) AddVideoFormats(ctx context.Context, id string, formats []schema.Format) error {
	return nil
}
func (f *fakeStore) GetChannels(ctx context.Context, limit, offset int) ([]db.ChannelRow, error) {
	ids := make([]string, 0, len(f.channels))
	for id := range f.channels {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	rows := make([]db.ChannelRow, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, db.ChannelRow{ChannelID: id, ChannelURL: f.channels[id].ChannelURL})
	}
	if offset >= len(rows) {
		return nil, nil
	}
	if end := offset + limit; end < len(rows) {
		rows = rows[offset:end]
	} else {
		rows = rows[offset:]
	}
	return rows, nil
}
func (f *fakeStore) ExistingVideoIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	out := map[string]bool{}
	for _, id := range ids {
		if _, ok := f.videos[id]; ok {
			out[id] = true
		}
	}
	return out, nil
}
func (f *fakeStore) VideoIDsWithoutFormats(ctx context.Context, limit int) ([]string, error) {
	return nil, nil
}
func (f *fakeStore) UpdateVideoPath(ctx context.Context, id, path string) error {
	f.paths[id] = path
	return nil
}
func (f *fakeStore) UpdateThumbnailPath(ctx context.Context, url, path string) error {
	return nil
}

type fakeExtractor struct {
	info       *schema.ChannelInfo
	downloaded []string
}

func (f *fakeExtractor) ChannelInfo(ctx context.Context, url string) (*schema.ChannelInfo, error) {
	return f.info, nil
}
func (f *fakeExtractor) VideoFormats(ctx context.Context, id string) []schema.Format {
	return nil
}
func (f *fakeExtractor) Download(ctx context.Context, url, target string) error {
	f.downloaded = append(f.downloaded, target)
	return nil
}
func (f *fakeExtractor) DownloadThumbnail(ctx context.Context, url, target string) error {
	return nil
}

type fakeAPI struct{ videos []schema.Video }

func (f *fakeAPI) ChannelInfo(ctx context.Context, ids []string) ([]schema.ChannelAPIInfo, error) {
	out := make([]schema.ChannelAPIInfo, 0, len(ids))
	for _, id := range ids {
		out = append(out, schema.ChannelAPIInfo{ID: id, Title: "API " + id})
	}
	return out, nil
}
func (f *fakeAPI) VideoInfo(ctx context.Context, ids []string) ([]schema.Video, error) {
	return f.videos, nil
}

func channelInfo(entries ...schema.Video) *schema.ChannelInfo {
	return &schema.ChannelInfo{
		ChannelID:  "UCdemo",
		Title:      "Demo",
		ChannelURL: "https://www.youtube.com/@demo",
		Entries:    entries,
	}
}

func newTestMonitor(store Store, ext Extractor, api API) *Monitor {
	m := New(store, ext, api, []string{"https://www.youtube.com/@demo"}, "default", "/tmp/shorts", "")
	m.Pacing = time.Millisecond
	return m
}

func TestSweepNewFirstDiscoveryIsSilent(t *testing.T) {
	store := newFakeStore()
	ext := &fakeExtractor{info: channelInfo(
		schema.Video{ID: "v1", Title: "One", URL: "https://www.youtube.com/watch?v=v1"},
		schema.Video{ID: "v2", Title: "Two", URL: "https://www.youtube.com/watch?v=v2"},
	)}
	m := newTestMonitor(store, ext, &fakeAPI{})

	m.sweepNew(context.Background())

	if len(store.videos) != 2 {
		t.Fatalf("stored videos = %d, want 2", len(store.videos))
	}
	if _, ok := store.channels["UCdemo"]; !ok {
		t.Fatal("channel not stored on first discovery")
	}
	if len(m.News) != 0 {
		t.Errorf("news queue = %d, want 0 on first discovery", len(m.News))
	}
}

func TestSweepNewKnownChannelNotifies(t *testing.T) {
	store := newFakeStore()
	store.channels["UCdemo"] = schema.Channel{ChannelID: "UCdemo"}
	store.videos["v1"] = schema.Video{ID: "v1"}

	ext := &fakeExtractor{info: channelInfo(
		schema.Video{ID: "v1", Title: "Old", URL: "https://www.youtube.com/watch?v=v1"},
		schema.Video{ID: "v2", Title: "Fresh", URL: "https://www.youtube.com/watch?v=v2"},
	)}
	m := newTestMonitor(store, ext, &fakeAPI{})

	m.sweepNew(context.Background())

	if len(m.News) != 1 {
		t.Fatalf("news queue = %d, want 1", len(m.News))
	}
	n := <-m.News
	if n.VideoID != "v2" || n.ChannelName != "Demo" {
		t.Errorf("notification = %+v", n)
	}
}

func TestSweepNewRoutesShortsToDownloadQueue(t *testing.T) {
	store := newFakeStore()
	store.channels["UCdemo"] = schema.Channel{ChannelID: "UCdemo"}

	ext := &fakeExtractor{info: channelInfo(
		schema.Video{ID: "v3", Title: "Short", URL: "https://www.youtube.com/shorts/v3"},
	)}
	m := newTestMonitor(store, ext, &fakeAPI{})
	m.ShortsEnabled = true

	m.sweepNew(context.Background())

	if len(m.News) != 0 {
		t.Errorf("short must not hit the news queue")
	}
	if len(m.shortsWork) != 1 {
		t.Fatalf("shorts work queue = %d, want 1", len(m.shortsWork))
	}
	item := <-m.shortsWork
	if item.FileName != "demo_v3.mp4" {
		t.Errorf("file name = %q, want demo_v3.mp4", item.FileName)
	}
}

func TestSweepNewShortsDisabledStoresWithoutNotifying(t *testing.T) {
	store := newFakeStore()
	store.channels["UCdemo"] = schema.Channel{ChannelID: "UCdemo"}
	ext := &fakeExtractor{info: channelInfo(
		schema.Video{ID: "v3", Title: "Short", URL: "https://www.youtube.com/shorts/v3"},
		schema.Video{ID: "v4", Title: "Long", URL: "https://www.youtube.com/watch?v=v4"},
	)}
	m := newTestMonitor(store, ext, &fakeAPI{})

	m.sweepNew(context.Background())

	if _, ok := store.videos["v3"]; !ok {
		t.Error("short must still be stored")
	}
	if len(m.shortsWork) != 0 {
		t.Errorf("shorts work queue = %d, want 0 with publishing disabled", len(m.shortsWork))
	}
	if len(m.News) != 1 {
		t.Fatalf("news queue = %d, want only the non-short", len(m.News))
	}
	if n := <-m.News; n.VideoID != "v4" {
		t.Errorf("news item = %+v, want the non-short v4", n)
	}
}

func TestSweepHistoryUpdatesKnownOnly(t *testing.T) {
	store := newFakeStore()
	store.channels["UCdemo"] = schema.Channel{ChannelID: "UCdemo"}
	store.videos["v1"] = schema.Video{ID: "v1", Title: "Stale"}

	ext := &fakeExtractor{info: channelInfo(
		schema.Video{ID: "v1", Title: "Refreshed", URL: "https://www.youtube.com/watch?v=v1"},
		schema.Video{ID: "vNew", Title: "NotYet", URL: "https://www.youtube.com/watch?v=vNew"},
	)}
	m := newTestMonitor(store, ext, &fakeAPI{})

	m.sweepHistory(context.Background())

	if store.videos["v1"].Title != "Refreshed" {
		t.Errorf("known video not refreshed: %+v", store.videos["v1"])
	}
	if _, ok := store.videos["vNew"]; ok {
		t.Error("history sweep must not add unknown videos")
	}
	if store.histories != 1 {
		t.Errorf("history rows = %d, want 1", store.histories)
	}
}

func TestSweepHistoryRefreshesDelistedChannels(t *testing.T) {
	store := newFakeStore()
	store.channels["UCdemo"] = schema.Channel{ChannelID: "UCdemo", ChannelURL: "https://www.youtube.com/@demo"}
	store.channels["UCgone"] = schema.Channel{
		ChannelID: "UCgone", Title: "Stale", ChannelURL: "https://www.youtube.com/@gone",
	}

	ext := &fakeExtractor{info: channelInfo()}
	m := newTestMonitor(store, ext, &fakeAPI{})

	m.sweepHistory(context.Background())

	gone := store.channels["UCgone"]
	if gone.Title != "API UCgone" {
		t.Errorf("delisted channel not refreshed: %+v", gone)
	}
	if gone.ChannelURL != "https://www.youtube.com/@gone" {
		t.Errorf("stored channel url lost: %q", gone.ChannelURL)
	}
}

func TestShortsDownloaderRecordsPathAndForwards(t *testing.T) {
	store := newFakeStore()
	ext := &fakeExtractor{}
	m := newTestMonitor(store, ext, &fakeAPI{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.RunShortsDownloader(ctx)

	m.shortsWork <- schema.VideoDownload{
		VideoID: "v9", VideoURL: "https://www.youtube.com/shorts/v9",
		FileName: "demo_v9.mp4", FilePath: "/tmp/shorts/demo_v9.mp4",
	}

	select {
	case ready := <-m.ShortsReady:
		if ready.VideoID != "v9" {
			t.Errorf("forwarded item = %+v", ready)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("downloader did not forward the finished short")
	}
	if store.paths["v9"] != "/tmp/shorts/demo_v9.mp4" {
		t.Errorf("video path = %q", store.paths["v9"])
	}
}

func TestIsShort(t *testing.T) {
	if !IsShort("https://www.youtube.com/shorts/abc") {
		t.Error("shorts URL not classified")
	}
	if IsShort("https://www.youtube.com/watch?v=abc") {
		t.Error("watch URL misclassified")
	}
}

func TestShortsFileName(t *testing.T) {
	cases := []struct {
		url, id, want string
	}{
		{"https://www.youtube.com/@demo", "v3", "demo_v3.mp4"},
		{"https://www.youtube.com/channel/UCabc", "x", "UCabc_x.mp4"},
		{"", "x", "channel_x.mp4"},
	}
	for _, tc := range cases {
		if got := ShortsFileName(tc.url, tc.id); got != tc.want {
			t.Errorf("ShortsFileName(%q, %q) = %q, want %q", tc.url, tc.id, got, tc.want)
		}
	}
}
