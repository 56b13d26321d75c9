// Package telegram publishes new-video news and downloaded shorts to a group
// chat and relays private messages between users and the configured admins.
package telegram

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Default message bodies used when no template file is configured. Template
// files are re-read on every send so they can be edited without a restart.
const (
	defaultNewsTemplate = "*{channel_name}* опубликовал новое видео:\n[{video_title}]({video_url})\n\n#{channel_hashtag}"

	defaultShortsCaption = "{video_title}\n\n#{channel_hashtag}"
)

// RenderTemplate substitutes {name} placeholders with vars. Unknown
// placeholders are left as-is.
func RenderTemplate(tmpl string, vars map[string]string) string {
	out := tmpl
	for k, v := range vars {
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	return out
}

// loadTemplate reads a template file, falling back to def when the path is
// empty or unreadable.
func loadTemplate(path, def string) string {
	if path == "" {
		return def
	}
	b, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("template file unreadable, using default", slog.String("path", path), slog.Any("err", err))
		return def
	}
	return strings.TrimRight(string(b), "\n")
}

var markdownV2Escaper = strings.NewReplacer(
	"_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]", "(", "\\(", ")", "\\)",
	"~", "\\~", "`", "\\`", ">", "\\>", "#", "\\#", "+", "\\+", "-", "\\-",
	"=", "\\=", "|", "\\|", "{", "\\{", "}", "\\}", ".", "\\.", "!", "\\!",
)

// EscapeMarkdownV2 escapes every character the MarkdownV2 dialect reserves.
func EscapeMarkdownV2(s string) string {
	return markdownV2Escaper.Replace(s)
}

// Hashtag turns a channel name into a hashtag body: spaces and hyphens
// become underscores, anything outside Latin, Cyrillic (Ёё included), digits
// and underscore is dropped, and underscore runs collapse.
func Hashtag(name string) string {
	var sb strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r == ' ' || r == '-':
			sb.WriteRune('_')
		case r == '_' || isTagRune(r):
			sb.WriteRune(r)
		}
	}
	collapsed := strings.Trim(collapseUnderscores(sb.String()), "_")
	return collapsed
}

func isTagRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r >= 'А' && r <= 'я', r == 'Ё', r == 'ё':
		return true
	}
	return false
}

func collapseUnderscores(s string) string {
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	return s
}

var relayIDRe = regexp.MustCompile(`\(id=(-?\d+)\)`)

// ExtractRelayUserID pulls the user id out of a relayed admin message of the
// form "... (id=123):". Returns false when the text carries no id marker.
func ExtractRelayUserID(text string) (int64, bool) {
	m := relayIDRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// fullUserName joins first and last name the way Telegram displays them.
func fullUserName(first, last string) string {
	if last == "" {
		return first
	}
	return fmt.Sprintf("%s %s", first, last)
}
