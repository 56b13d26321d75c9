package ytdlp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type captionTrack struct {
	Ext string `json:"ext"`
	URL string `json:"url"`
}

type captionDump struct {
	AutomaticCaptions map[string][]captionTrack `json:"automatic_captions"`
	Subtitles         map[string][]captionTrack `json:"subtitles"`
}

// Transcript fetches the caption text of a video. Track preference order:
// automatic captions in a preferred language, any automatic captions, manual
// subtitles in a preferred language, any manual subtitles. Returns an empty
// string without error when the video has no captions at all.
func (c *Client) Transcript(ctx context.Context, videoID string, preferredLangs []string) (string, error) {
	out, err := c.run(ctx, "-J", "--no-warnings", watchURL(videoID))
	if err != nil {
		return "", err
	}
	var dump captionDump
	if err := json.Unmarshal(out, &dump); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	track := pickTrack(dump.AutomaticCaptions, preferredLangs)
	if track == nil {
		track = pickTrack(dump.Subtitles, preferredLangs)
	}
	if track == nil {
		return "", nil
	}
	return c.fetchJSON3(ctx, track.URL)
}

func pickTrack(tracks map[string][]captionTrack, preferredLangs []string) *captionTrack {
	for _, lang := range preferredLangs {
		if t := json3Track(tracks[lang]); t != nil {
			return t
		}
	}
	for _, list := range tracks {
		if t := json3Track(list); t != nil {
			return t
		}
	}
	return nil
}

func json3Track(list []captionTrack) *captionTrack {
	for i := range list {
		if list[i].Ext == "json3" && list[i].URL != "" {
			return &list[i]
		}
	}
	return nil
}

type json3Events struct {
	Events []struct {
		Segs []struct {
			UTF8 string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

func (c *Client) fetchJSON3(ctx context.Context, url string) (string, error) {
	client := &http.Client{Timeout: 30 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch captions: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch captions: unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var events json3Events
	if err := json.Unmarshal(body, &events); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	var sb strings.Builder
	for _, ev := range events.Events {
		for _, seg := range ev.Segs {
			sb.WriteString(seg.UTF8)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
