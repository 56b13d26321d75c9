package fusion

import (
	"reflect"
	"testing"
	"time"

	"github.com/onnwee/yt-observatory/schema"
)

func i64(v int64) *int64 { return &v }
func num(v int) *int     { return &v }
func str(v string) *string { return &v }

func TestCombineChannelExtractorWins(t *testing.T) {
	pub := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	ext := &schema.ChannelInfo{
		ChannelID:            "UCext",
		Title:                "Extractor Title",
		Description:          "ext desc",
		ChannelURL:           "https://www.youtube.com/@x",
		ChannelFollowerCount: i64(500),
		Tags:                 []string{"t1"},
	}
	api := &schema.ChannelAPIInfo{
		ID: "UCext", Title: "API Title", Description: "api desc",
		CustomURL: "@x", Country: "DE",
		SubscriberCount: i64(510), ViewCount: i64(9000), VideoCount: i64(12),
		PublishedAt: &pub,
	}
	ch := CombineChannel(ext, api, "main")
	if ch.Title != "Extractor Title" || ch.Description != "ext desc" {
		t.Errorf("extractor fields lost: %+v", ch)
	}
	if *ch.FollowerCount != 500 {
		t.Errorf("follower = %d, want extractor's 500", *ch.FollowerCount)
	}
	if *ch.ViewCount != 9000 || *ch.VideoCount != 12 || ch.Country != "DE" || ch.CustomURL != "@x" {
		t.Errorf("api-only fields missing: %+v", ch)
	}
	if ch.ListName != "main" {
		t.Errorf("list name = %q", ch.ListName)
	}
}

func TestCombineChannelAPIFallback(t *testing.T) {
	api := &schema.ChannelAPIInfo{ID: "UCapi", Title: "Only API", SubscriberCount: i64(7)}
	ch := CombineChannel(nil, api, "")
	if ch.ChannelID != "UCapi" || ch.Title != "Only API" || *ch.FollowerCount != 7 {
		t.Errorf("api fallback failed: %+v", ch)
	}
	// And the other way round: API down entirely.
	ext := &schema.ChannelInfo{ChannelID: "UCext", Title: "T", ChannelURL: "u"}
	ch = CombineChannel(ext, nil, "l")
	if ch.ChannelID != "UCext" || ch.ViewCount != nil {
		t.Errorf("extractor-only combine: %+v", ch)
	}
}

func TestCombineVideoAPIPreferred(t *testing.T) {
	up := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	ext := schema.Video{
		ID: "v1", URL: "https://www.youtube.com/shorts/v1", Title: "Ext",
		ViewCount: i64(10), Duration: num(58),
	}
	api := &schema.Video{
		ID: "v1", Title: "API", Description: str("full"),
		ViewCount: i64(11), LikeCount: i64(2), CommentCount: i64(1),
		UploadDate: &up, Duration: num(59), Tags: []string{"a"},
		DefaultAudioLanguage: "ru",
	}
	got := CombineVideo(ext, api)
	if got.URL != "https://www.youtube.com/shorts/v1" {
		t.Errorf("extractor URL must be kept: %q", got.URL)
	}
	if got.Title != "Ext" {
		t.Errorf("extractor title must be kept when present: %q", got.Title)
	}
	if *got.ViewCount != 11 || *got.Duration != 59 || *got.LikeCount != 2 {
		t.Errorf("api values must win: %+v", got)
	}
	if got.UploadDate == nil || got.DefaultAudioLanguage != "ru" {
		t.Errorf("api-only fields missing: %+v", got)
	}
}

func TestCombineVideoNilAPI(t *testing.T) {
	ext := schema.Video{ID: "v2", Title: "T", ViewCount: i64(3)}
	got := CombineVideo(ext, nil)
	if !reflect.DeepEqual(got, ext) {
		t.Errorf("nil api must return extractor record unchanged")
	}
}

func TestPartitionNewKnownPreservesOrder(t *testing.T) {
	ids := []string{"a", "b", "c", "d"}
	existing := map[string]bool{"b": true, "d": true}
	newIDs, knownIDs := PartitionNewKnown(ids, existing)
	if !reflect.DeepEqual(newIDs, []string{"a", "c"}) {
		t.Errorf("new = %v", newIDs)
	}
	if !reflect.DeepEqual(knownIDs, []string{"b", "d"}) {
		t.Errorf("known = %v", knownIDs)
	}

	// Every id lands in exactly one half.
	if len(newIDs)+len(knownIDs) != len(ids) {
		t.Errorf("partition lost ids")
	}
}

func TestPartitionNewKnownEmpty(t *testing.T) {
	newIDs, knownIDs := PartitionNewKnown(nil, nil)
	if newIDs != nil || knownIDs != nil {
		t.Errorf("empty input must yield empty halves")
	}
}
