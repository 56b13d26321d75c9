// Package config loads environment variables and provides a typed Config used across the service.
// It applies sensible defaults so the binary can run locally with minimal setup.
// Feature flags gate the monitor loops and the Telegram bot independently.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type Config struct {
	// HTTP
	AppHost string
	AppPort int

	// Storage
	StoragePath           string
	VideoDownloadPath     string
	ShortsDownloadPath    string
	ThumbnailDownloadPath string
	ChannelsListPath      string

	// Database
	DBHost     string
	DBPort     int
	DBName     string
	DBSchema   string
	DBUsername string
	DBPassword string

	// Feature flags
	MonitorNew            bool
	MonitorHistory        bool
	MonitorVideoFormats   bool
	RunTGBot              bool
	RunTGBotShortsPublish bool

	// YouTube Data API
	YouTubeAPIKey            string
	YouTubeSecretJSON        string
	YouTubeServiceSecretJSON string

	// Telegram
	TGBotToken         string
	TGGroupID          int64
	TGAdminIDs         []int64
	TGNewVideoTemplate string
	TGShortsTemplate   string

	// SSH tunnel to the database host
	UseSSHTunnel  bool
	SSHHost       string
	SSHPort       int
	SSHUser       string
	SSHPrivateKey string

	// Logging
	LogLvl    string
	LogDir    string
	LogToFile bool
}

// Load reads environment variables and applies defaults. Missing optional
// variables disable features (e.g., an empty TG_BOT_TOKEN disables the bot
// regardless of RUN_TG_BOT); use Validate when a flag requires credentials.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.AppHost = getenv("APP_HOST", "0.0.0.0")
	var err error
	if cfg.AppPort, err = getenvInt("APP_PORT", 8000); err != nil {
		return nil, err
	}

	cfg.StoragePath = getenv("STORAGE_PATH", "data")
	cfg.VideoDownloadPath = getenv("VIDEO_DOWNLOAD_PATH", filepath.Join(cfg.StoragePath, "videos"))
	cfg.ShortsDownloadPath = getenv("SHORTS_DOWNLOAD_PATH", filepath.Join(cfg.StoragePath, "shorts"))
	cfg.ThumbnailDownloadPath = getenv("THUMBNAIL_DOWNLOAD_PATH", filepath.Join(cfg.StoragePath, "thumbnails"))
	cfg.ChannelsListPath = getenv("CHANNELS_LIST_PATH", "channels.json")

	cfg.DBHost = getenv("DB_HOST", "localhost")
	if cfg.DBPort, err = getenvInt("DB_PORT", 5432); err != nil {
		return nil, err
	}
	cfg.DBName = getenv("DB_NAME", "observatory")
	cfg.DBSchema = getenv("DB_SCHEMA", "youtube")
	cfg.DBUsername = getenv("DB_USERNAME", "postgres")
	cfg.DBPassword = os.Getenv("DB_PASSWORD")

	cfg.MonitorNew = getenvBool("MONITOR_NEW", true)
	cfg.MonitorHistory = getenvBool("MONITOR_HISTORY", true)
	cfg.MonitorVideoFormats = getenvBool("MONITOR_VIDEO_FORMATS", false)
	cfg.RunTGBot = getenvBool("RUN_TG_BOT", false)
	cfg.RunTGBotShortsPublish = getenvBool("RUN_TG_BOT_SHORTS_PUBLISH", false)

	cfg.YouTubeAPIKey = os.Getenv("YOUTUBE_API_KEY")
	cfg.YouTubeSecretJSON = getenv("YOUTUBE_SECRET_JSON", "client_secret.json")
	cfg.YouTubeServiceSecretJSON = os.Getenv("YOUTUBE_SERVICE_SECRET_JSON")

	cfg.TGBotToken = os.Getenv("TG_BOT_TOKEN")
	if v := os.Getenv("TG_GROUP_ID"); v != "" {
		cfg.TGGroupID, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TG_GROUP_ID: %w", err)
		}
	}
	for _, part := range strings.Split(os.Getenv("TG_ADMIN_IDS"), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TG_ADMIN_IDS entry %q: %w", part, err)
		}
		cfg.TGAdminIDs = append(cfg.TGAdminIDs, id)
	}
	cfg.TGNewVideoTemplate = os.Getenv("TG_NEW_VIDEO_TEMPLATE")
	cfg.TGShortsTemplate = os.Getenv("TG_SHORTS_TEMPLATE")

	cfg.UseSSHTunnel = getenvBool("USE_SSH_TUNNEL", false)
	cfg.SSHHost = os.Getenv("SSH_HOST")
	if cfg.SSHPort, err = getenvInt("SSH_PORT", 22); err != nil {
		return nil, err
	}
	cfg.SSHUser = os.Getenv("SSH_USER")
	cfg.SSHPrivateKey = os.Getenv("SSH_PRIVATE_KEY")

	cfg.LogLvl = getenv("LOG_LVL", "info")
	cfg.LogDir = getenv("LOG_DIR", "logs")
	cfg.LogToFile = getenvBool("LOG_TO_FILE", false)

	return cfg, nil
}

// DatabaseDSN builds a pgx-compatible DSN. The schema namespace rides along
// as a search_path runtime parameter so repository SQL stays unqualified.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&search_path=%s",
		url.QueryEscape(c.DBUsername), url.QueryEscape(c.DBPassword),
		c.DBHost, c.DBPort, c.DBName, url.QueryEscape(c.DBSchema))
}

// ValidateBotReady checks required fields when the Telegram bot is enabled.
func (c *Config) ValidateBotReady() error {
	if c.TGBotToken == "" || c.TGGroupID == 0 {
		return fmt.Errorf("missing telegram env: require TG_BOT_TOKEN, TG_GROUP_ID")
	}
	return nil
}

// ValidateSSHReady checks required fields when the SSH tunnel is enabled.
func (c *Config) ValidateSSHReady() error {
	if c.SSHHost == "" || c.SSHUser == "" || c.SSHPrivateKey == "" {
		return fmt.Errorf("missing ssh env: require SSH_HOST, SSH_USER, SSH_PRIVATE_KEY")
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
