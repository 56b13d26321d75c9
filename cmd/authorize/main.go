// Command authorize runs the interactive YouTube OAuth consent flow once and
// stores the obtained token in the service's cache file. Run it on an
// operator machine before first deploy; the service itself only ever consumes
// the cache and fails with an authorization error when it is absent.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/onnwee/yt-observatory/config"
	"github.com/onnwee/yt-observatory/ytapi"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if cfg.YouTubeAPIKey != "" {
		slog.Info("YOUTUBE_API_KEY is set, no OAuth consent needed")
		return
	}

	client := ytapi.New(cfg)
	if err := client.Authorize(context.Background()); err != nil {
		slog.Error("authorization failed", slog.Any("err", err))
		os.Exit(1)
	}
	slog.Info("token stored", slog.String("path", cfg.StoragePath))
}
