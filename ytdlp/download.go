package ytdlp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// defaultFormat prefers separate MP4 video + M4A audio merged locally, with
// progressive MP4 as fallback.
const defaultFormat = "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"

// Download fetches a video into targetPath. If the file already exists the
// call is a no-op, which makes the shorts pipeline safe to replay.
func (c *Client) Download(ctx context.Context, videoURL, targetPath string) error {
	if _, err := os.Stat(targetPath); err == nil {
		slog.Debug("download target already exists", slog.String("path", targetPath))
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		return fmt.Errorf("create download dir: %w", err)
	}

	_, err := c.run(ctx,
		"-f", defaultFormat,
		"--merge-output-format", "mp4",
		"--no-progress",
		"--no-warnings",
		"-o", targetPath,
		videoURL,
	)
	if err != nil {
		return fmt.Errorf("download %s: %w", videoURL, err)
	}
	return nil
}

// DownloadThumbnail fetches a thumbnail URL straight over HTTP into
// targetPath, skipping when the file is already present.
func (c *Client) DownloadThumbnail(ctx context.Context, url, targetPath string) error {
	if _, err := os.Stat(targetPath); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		return fmt.Errorf("create thumbnail dir: %w", err)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch thumbnail: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch thumbnail: unexpected status %d", resp.StatusCode)
	}

	tmp := targetPath + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write thumbnail: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, targetPath)
}
