package config

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// ChannelList is a named set of canonical channel URLs.
type ChannelList struct {
	Name     string   `json:"name"`
	Channels []string `json:"channels"`
}

var channelURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^https?://(?:www\.)?youtube\.com/(channel/UC[\w-]+)(?:/videos)?/?$`),
	regexp.MustCompile(`^https?://(?:www\.)?youtube\.com/(@[\w.\-]+)(?:/videos)?/?$`),
	regexp.MustCompile(`^https?://(?:www\.)?youtube\.com/(c/[\w.\-]+)(?:/videos)?/?$`),
}

// CanonicalChannelURL normalizes a channel URL to its canonical form:
// https scheme, www host, no /videos suffix, no trailing slash. Returns
// false when the input is not a recognizable channel URL.
func CanonicalChannelURL(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	for _, re := range channelURLPatterns {
		if m := re.FindStringSubmatch(raw); m != nil {
			return "https://www.youtube.com/" + m[1], true
		}
	}
	return "", false
}

// CanonicalizeChannelURLs filters, normalizes, deduplicates and sorts a raw
// URL list. Unrecognized entries are dropped silently.
func CanonicalizeChannelURLs(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		u, ok := CanonicalChannelURL(r)
		if !ok {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// LoadChannelList reads the channel list from path. A .json file carries
// {"name": ..., "channels": [...]}; any other file is one URL per line with
// the list named after the file. Entries are canonicalized either way.
func LoadChannelList(path string) (*ChannelList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open channel list: %w", err)
	}
	defer f.Close()

	list := &ChannelList{}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.NewDecoder(f).Decode(list); err != nil {
			return nil, fmt.Errorf("parse channel list %s: %w", path, err)
		}
	} else {
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			list.Channels = append(list.Channels, line)
		}
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("read channel list %s: %w", path, err)
		}
	}

	if list.Name == "" {
		base := filepath.Base(path)
		list.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	list.Channels = CanonicalizeChannelURLs(list.Channels)
	return list, nil
}
