// Package ytdlp adapts the yt-dlp subprocess: channel listing via a single
// flat-playlist JSON dump, per-video format probing, media download and
// transcript retrieval.
package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/onnwee/yt-observatory/schema"
)

const (
	defaultBinary  = "yt-dlp"
	defaultTimeout = 10 * time.Minute
)

var (
	// ErrUnavailable means the subprocess failed or timed out.
	ErrUnavailable = errors.New("ytdlp: extractor unavailable")
	// ErrMalformed means the subprocess produced undecodable output.
	ErrMalformed = errors.New("ytdlp: malformed extractor output")
	// ErrNoData means the output decoded but lacks the required fields.
	ErrNoData = errors.New("ytdlp: missing required fields")
)

// Client invokes yt-dlp with a per-call wall-clock timeout so a hung
// subprocess can never stall a monitoring loop.
type Client struct {
	// Binary is the yt-dlp executable path. Defaults to "yt-dlp".
	Binary string
	// Timeout bounds each invocation. Defaults to 10 minutes.
	Timeout time.Duration
	// ExtraArgs are appended to every invocation.
	ExtraArgs []string
}

// New returns a Client with defaults applied.
func New() *Client {
	return &Client{Binary: defaultBinary, Timeout: defaultTimeout}
}

func (c *Client) binary() string {
	if c.Binary != "" {
		return c.Binary
	}
	return defaultBinary
}

func (c *Client) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return defaultTimeout
}

// run executes yt-dlp and returns stdout. Failures are classified into the
// sentinel taxonomy with stderr preserved in the wrap.
func (c *Client) run(ctx context.Context, args ...string) ([]byte, error) {
	cmdCtx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	full := append(append([]string{}, c.ExtraArgs...), args...)
	cmd := exec.CommandContext(cmdCtx, c.binary(), full...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if cmdCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: timed out after %s", ErrUnavailable, c.timeout())
		}
		if cmdCtx.Err() == context.Canceled {
			return nil, context.Canceled
		}
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 500 {
			msg = msg[:500]
		}
		return nil, fmt.Errorf("%w: %v: %s", ErrUnavailable, err, msg)
	}
	return stdout.Bytes(), nil
}

// ChannelInfo fetches channel metadata and the flat entry list of the
// channel's videos tab in a single invocation.
func (c *Client) ChannelInfo(ctx context.Context, channelURL string) (*schema.ChannelInfo, error) {
	out, err := c.run(ctx, "-J", "--flat-playlist", "--no-warnings", channelURL)
	if err != nil {
		return nil, err
	}
	return ParseChannelDump(out)
}

// channelDump mirrors the yt-dlp playlist JSON. Entries can be either videos
// or, on a bare channel URL, nested tab playlists holding the videos.
type channelDump struct {
	schema.ChannelInfo
	Entries []json.RawMessage `json:"entries"`
}

type entryProbe struct {
	Type string `json:"_type"`
}

type nestedPlaylist struct {
	Entries []schema.Video `json:"entries"`
}

// ParseChannelDump decodes a flat-playlist dump, flattening nested tab
// playlists into a single entry list.
func ParseChannelDump(data []byte) (*schema.ChannelInfo, error) {
	var dump channelDump
	if err := json.Unmarshal(data, &dump); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	info := dump.ChannelInfo
	if info.ChannelID == "" {
		info.ChannelID = info.ID
	}
	if info.ChannelID == "" {
		return nil, fmt.Errorf("%w: no channel_id in dump", ErrNoData)
	}
	if info.ChannelURL == "" {
		info.ChannelURL = info.WebpageURL
	}
	if info.Title == "" {
		info.Title = info.Channel
	}

	for _, raw := range dump.Entries {
		var probe entryProbe
		if err := json.Unmarshal(raw, &probe); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if probe.Type == "playlist" {
			var nested nestedPlaylist
			if err := json.Unmarshal(raw, &nested); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
			}
			info.Entries = append(info.Entries, nested.Entries...)
			continue
		}
		var v schema.Video
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if v.ID == "" {
			continue
		}
		if v.URL == "" {
			v.URL = "https://www.youtube.com/watch?v=" + v.ID
		}
		info.Entries = append(info.Entries, v)
	}
	return &info, nil
}
