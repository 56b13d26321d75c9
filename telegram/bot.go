package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	tb "gopkg.in/tucnak/telebot.v2"

	"github.com/onnwee/yt-observatory/config"
	"github.com/onnwee/yt-observatory/schema"
	"github.com/onnwee/yt-observatory/telemetry"
)

const (
	startupAttempts = 3
	startupBackoff  = 5 * time.Second
	sendRetries     = 3
	sendRetryDelay  = 5 * time.Second
	sendSpacing     = 30 * time.Second

	// Bot API cap for bot-uploaded files.
	maxShortUpload = 50 << 20
)

const (
	msgAck      = "Ваше сообщение получено. Спасибо!"
	msgGreeting = "Привет! Напишите сообщение, и администраторы его получат."
)

// Bot wraps the Telegram client, the publisher goroutines draining the
// monitor queues, and the admin relay handlers.
type Bot struct {
	bot *tb.Bot
	cfg *config.Config

	news   <-chan schema.NewVideo
	shorts <-chan schema.VideoDownload

	// Spacing between consecutive group sends. Tests shrink these.
	Spacing    time.Duration
	RetryDelay time.Duration
	MaxUpload  int64

	// send is injectable for tests.
	send func(to tb.Recipient, what interface{}, options ...interface{}) (*tb.Message, error)
}

// New connects to the Bot API, retrying with linear backoff before giving
// up; a dead Telegram connection at startup is fatal by design.
func New(cfg *config.Config, news <-chan schema.NewVideo, shorts <-chan schema.VideoDownload) (*Bot, error) {
	if err := cfg.ValidateBotReady(); err != nil {
		return nil, err
	}

	var bot *tb.Bot
	var err error
	for attempt := 1; attempt <= startupAttempts; attempt++ {
		bot, err = tb.NewBot(tb.Settings{
			Token:  cfg.TGBotToken,
			Poller: &tb.LongPoller{Timeout: 30 * time.Second},
		})
		if err == nil {
			break
		}
		slog.Error("telegram connect failed", slog.Int("attempt", attempt), slog.Any("err", err))
		if attempt < startupAttempts {
			time.Sleep(time.Duration(attempt) * startupBackoff)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("telegram unreachable after %d attempts: %w", startupAttempts, err)
	}

	b := &Bot{
		bot:        bot,
		cfg:        cfg,
		news:       news,
		shorts:     shorts,
		Spacing:    sendSpacing,
		RetryDelay: sendRetryDelay,
		MaxUpload:  maxShortUpload,
	}
	b.send = bot.Send
	return b, nil
}

// Run installs the handlers, starts the publishers and blocks on the long
// poller until the context is cancelled.
func (b *Bot) Run(ctx context.Context) {
	b.bot.Handle("/start", b.handleStart)
	b.bot.Handle(tb.OnText, b.handleText)

	go b.publishNews(ctx)
	if b.shorts != nil {
		go b.publishShorts(ctx)
	}
	go func() {
		<-ctx.Done()
		b.bot.Stop()
	}()

	slog.Info("telegram bot started", slog.Int64("group_id", b.cfg.TGGroupID))
	b.bot.Start()
	slog.Info("telegram bot stopped")
}

// publishNews drains the news queue, one group message per item with fixed
// spacing between sends.
func (b *Bot) publishNews(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case item := <-b.news:
			telemetry.SetNewsQueueDepth(len(b.news))
			b.sendNews(item)
			if !sleepCtx(ctx, b.Spacing) {
				return
			}
		}
	}
}

func (b *Bot) sendNews(item schema.NewVideo) {
	tmpl := loadTemplate(b.cfg.TGNewVideoTemplate, defaultNewsTemplate)
	text := RenderTemplate(tmpl, map[string]string{
		"channel_name":    EscapeMarkdownV2(item.ChannelName),
		"channel_url":     item.ChannelURL,
		"video_title":     EscapeMarkdownV2(item.VideoTitle),
		"video_url":       item.VideoURL,
		"channel_hashtag": Hashtag(item.ChannelName),
	})
	b.sendWithRetry(tb.ChatID(b.cfg.TGGroupID), text, &tb.SendOptions{
		ParseMode: tb.ModeMarkdownV2,
	})
}

// publishShorts drains the downloaded-shorts queue, uploading each file as a
// video message.
func (b *Bot) publishShorts(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case item := <-b.shorts:
			telemetry.SetShortsQueueDepth(len(b.shorts))
			b.sendShort(item)
			if !sleepCtx(ctx, b.Spacing) {
				return
			}
		}
	}
}

func (b *Bot) sendShort(item schema.VideoDownload) {
	if fi, err := os.Stat(item.FilePath); err == nil && fi.Size() > b.MaxUpload {
		telemetry.Inc(telemetry.NotificationsFailed)
		slog.Warn("short exceeds the upload limit, dropping",
			slog.String("file", item.FileName), slog.Int64("size", fi.Size()))
		return
	}
	tmpl := loadTemplate(b.cfg.TGShortsTemplate, defaultShortsCaption)
	caption := RenderTemplate(tmpl, map[string]string{
		"video_title":     EscapeMarkdownV2(item.FileName),
		"video_url":       item.VideoURL,
		"channel_hashtag": Hashtag(channelFromFileName(item.FileName)),
	})
	video := &tb.Video{File: tb.FromDisk(item.FilePath), Caption: caption}
	b.sendWithRetry(tb.ChatID(b.cfg.TGGroupID), video, &tb.SendOptions{
		ParseMode: tb.ModeMarkdownV2,
	})
}

// sendWithRetry attempts a send a fixed number of times with a flat delay,
// dropping the message when every attempt fails.
func (b *Bot) sendWithRetry(to tb.Recipient, what interface{}, opts ...interface{}) {
	var err error
	for attempt := 1; attempt <= sendRetries; attempt++ {
		_, err = b.send(to, what, opts...)
		if err == nil {
			telemetry.Inc(telemetry.NotificationsSent)
			return
		}
		slog.Warn("telegram send failed", slog.Int("attempt", attempt), slog.Any("err", err))
		if attempt < sendRetries {
			time.Sleep(b.RetryDelay)
		}
	}
	telemetry.Inc(telemetry.NotificationsFailed)
	slog.Error("telegram message dropped after retries", slog.Any("err", err))
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// channelFromFileName recovers the channel handle from a shorts file name of
// the form <handle>_<video id>.mp4.
func channelFromFileName(name string) string {
	base := name
	if i := len(base) - len(".mp4"); i > 0 && base[i:] == ".mp4" {
		base = base[:i]
	}
	if i := strings.LastIndexByte(base, '_'); i > 0 {
		return base[:i]
	}
	return base
}
