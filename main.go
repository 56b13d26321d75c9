// Command yt-observatory watches a list of YouTube channels. It:
//   - Loads configuration and initializes structured logging.
//   - Connects to Postgres (optionally through an SSH tunnel) and migrates.
//   - Starts the monitor loops: new-video discovery, history refresh,
//     format inventory, and the shorts download pipeline.
//   - Optionally runs the Telegram bot publishing news and shorts.
//   - Exposes a minimal HTTP server with /healthz, /readyz, /status, /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // G108: pprof endpoints enabled only when ENABLE_PPROF=1
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/onnwee/yt-observatory/config"
	"github.com/onnwee/yt-observatory/db"
	"github.com/onnwee/yt-observatory/logging"
	"github.com/onnwee/yt-observatory/monitor"
	"github.com/onnwee/yt-observatory/server"
	"github.com/onnwee/yt-observatory/telegram"
	"github.com/onnwee/yt-observatory/telemetry"
	"github.com/onnwee/yt-observatory/ytapi"
	"github.com/onnwee/yt-observatory/ytdlp"
)

func main() {
	// Load .env if present (local dev convenience; production uses real env)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	closeLogs, err := logging.Setup(cfg)
	if err != nil {
		slog.Error("logging setup failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() { _ = closeLogs() }()
	slog.Info("logger initialized", slog.String("level", cfg.LogLvl), slog.Bool("file", cfg.LogToFile))

	telemetry.Init()
	shutdownTracing, err := telemetry.InitTracing("yt-observatory", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdownTracing()

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// DB, optionally through an SSH tunnel to the database host.
	dsn := cfg.DatabaseDSN()
	if cfg.UseSSHTunnel {
		if err := cfg.ValidateSSHReady(); err != nil {
			slog.Error("ssh tunnel misconfigured", slog.Any("err", err))
			os.Exit(1)
		}
		tunnel, err := db.OpenTunnel(ctx,
			fmt.Sprintf("%s:%d", cfg.SSHHost, cfg.SSHPort),
			cfg.SSHUser, cfg.SSHPrivateKey,
			fmt.Sprintf("%s:%d", cfg.DBHost, cfg.DBPort))
		if err != nil {
			slog.Error("ssh tunnel failed", slog.Any("err", err))
			os.Exit(1)
		}
		defer tunnel.Close()
		localCfg := *cfg
		localCfg.DBHost, localCfg.DBPort = splitHostPort(tunnel.LocalAddr())
		dsn = localCfg.DatabaseDSN()
		slog.Info("ssh tunnel established", slog.String("local", tunnel.LocalAddr()))
	}

	database, err := db.Connect(dsn)
	if err != nil {
		slog.Error("failed to open db", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Error("failed to close database", slog.Any("err", err))
		}
	}()

	// Versioned migrations first, embedded SQL as fallback for deployments
	// predating the schema_migrations table.
	slog.Info("running database migrations", slog.String("component", "db_migrate"))
	if err := db.RunMigrations(database); err != nil {
		slog.Warn("versioned migrations failed, falling back to embedded SQL",
			slog.Any("err", err), slog.String("component", "db_migrate"))
		if err := db.Migrate(context.Background(), database, cfg.DBSchema); err != nil {
			slog.Error("failed to migrate db", slog.Any("err", err))
			os.Exit(1)
		}
	}

	list, err := config.LoadChannelList(cfg.ChannelsListPath)
	if err != nil {
		slog.Error("channel list load failed", slog.Any("err", err))
		os.Exit(1)
	}
	slog.Info("channel list loaded", slog.String("list", list.Name), slog.Int("channels", len(list.Channels)))

	repo := db.NewRepository(database)
	extractor := ytdlp.New()
	api := ytapi.New(cfg)

	mon := monitor.New(repo, extractor, api, list.Channels, list.Name,
		cfg.ShortsDownloadPath, cfg.ThumbnailDownloadPath)
	mon.ShortsEnabled = cfg.RunTGBotShortsPublish
	mon.Heartbeat = func(hctx context.Context, job string) {
		if err := db.SetJobHeartbeat(hctx, database, job); err != nil {
			slog.Debug("heartbeat failed", slog.String("job", job), slog.Any("err", err))
		}
	}

	if cfg.MonitorNew {
		go mon.RunNewVideoLoop(ctx)
	}
	if cfg.MonitorHistory {
		go mon.RunHistoryLoop(ctx)
	}
	if cfg.MonitorVideoFormats {
		go mon.RunFormatsLoop(ctx)
	}
	if cfg.RunTGBotShortsPublish {
		go mon.RunShortsDownloader(ctx)
	}

	// API enrichment backlog sweep, piggybacked on the history cadence.
	go func() {
		ticker := time.NewTicker(8 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := api.UpdateMissingVideoInfo(ctx, repo); err != nil {
					slog.Error("enrichment sweep failed", slog.Any("err", err))
				}
			}
		}
	}()

	if cfg.RunTGBot {
		bot, err := telegram.New(cfg, mon.News, mon.ShortsReady)
		if err != nil {
			slog.Error("telegram bot startup failed", slog.Any("err", err))
			os.Exit(1)
		}
		go bot.Run(ctx)
	}

	// Enable pprof profiling endpoints in debug mode (ENABLE_PPROF=1)
	if os.Getenv("ENABLE_PPROF") == "1" {
		pprofAddr := os.Getenv("PPROF_ADDR")
		if pprofAddr == "" {
			pprofAddr = "localhost:6060"
		}
		go func() {
			slog.Info("pprof profiling enabled", slog.String("addr", pprofAddr))
			srv := &http.Server{
				Addr:              pprofAddr,
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       10 * time.Second,
				WriteTimeout:      10 * time.Second,
				IdleTimeout:       60 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil {
				slog.Error("pprof server error", slog.Any("err", err))
			}
		}()
	}

	addr := fmt.Sprintf("%s:%d", cfg.AppHost, cfg.AppPort)
	go func() {
		if err := server.Start(ctx, database, addr); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
}

func splitHostPort(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "127.0.0.1", 0
	}
	port, _ := strconv.Atoi(portStr)
	return host, port
}
