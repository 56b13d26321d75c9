package ytapi

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/onnwee/yt-observatory/config"
)

func tokenCachePath(cfg *config.Config) string {
	return filepath.Join(cfg.StoragePath, "youtube_token.json")
}

// service returns a cached API handle, building it from whichever credential
// source is configured. Credential resolution order: API key, service
// account file, then cached OAuth token (refreshed on use).
func (c *Client) service(ctx context.Context) (*youtube.Service, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.svc != nil {
		return c.svc, nil
	}

	if c.apiKey != "" {
		svc, err := youtube.NewService(ctx, option.WithAPIKey(c.apiKey))
		if err != nil {
			return nil, fmt.Errorf("build api-key service: %w", err)
		}
		c.svc = svc
		return svc, nil
	}

	if c.serviceSecret != "" {
		svc, err := youtube.NewService(ctx, option.WithCredentialsFile(c.serviceSecret))
		if err != nil {
			return nil, fmt.Errorf("build service-account service: %w", err)
		}
		c.svc = svc
		return svc, nil
	}

	conf, err := c.oauthConfig()
	if err != nil {
		return nil, err
	}
	tok, err := loadToken(c.tokenFile)
	if err != nil {
		return nil, fmt.Errorf("%w: no cached token at %s", ErrAuthRequired, c.tokenFile)
	}

	// TokenSource refreshes transparently; persist whatever it ends up with
	// so the refreshed access token survives a restart.
	ts := conf.TokenSource(ctx, tok)
	fresh, err := ts.Token()
	if err != nil {
		// Refresh rejected: the cache is dead weight, drop it.
		_ = os.Remove(c.tokenFile)
		return nil, fmt.Errorf("%w: token refresh failed: %v", ErrAuthRequired, err)
	}
	if fresh.AccessToken != tok.AccessToken {
		if err := saveToken(c.tokenFile, fresh); err != nil {
			slog.Warn("failed to persist refreshed token", slog.Any("err", err))
		}
	}

	svc, err := youtube.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("build oauth service: %w", err)
	}
	c.svc = svc
	return svc, nil
}

// invalidate drops the cached service handle and, in OAuth mode, the token
// cache file, forcing a full re-auth on the next call.
func (c *Client) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.svc = nil
	if c.apiKey == "" && c.serviceSecret == "" {
		_ = os.Remove(c.tokenFile)
	}
}

// Authorize runs the interactive console flow and stores the obtained token
// in the cache file. Meant for first-time setup on an operator machine; the
// running service only ever consumes the cache.
func (c *Client) Authorize(ctx context.Context) error {
	if c.apiKey != "" {
		return nil
	}
	conf, err := c.oauthConfig()
	if err != nil {
		return err
	}

	url := conf.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Open the following URL in a browser and paste the code:\n%s\n> ", url)

	var code string
	sc := bufio.NewScanner(os.Stdin)
	if !sc.Scan() {
		return fmt.Errorf("read authorization code: %w", sc.Err())
	}
	code = sc.Text()

	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchange authorization code: %w", err)
	}
	return saveToken(c.tokenFile, tok)
}

func (c *Client) oauthConfig() (*oauth2.Config, error) {
	b, err := os.ReadFile(c.secretsFile)
	if err != nil {
		return nil, fmt.Errorf("%w: read client secrets %s: %v", ErrAuthRequired, c.secretsFile, err)
	}
	conf, err := google.ConfigFromJSON(b, youtube.YoutubeReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse client secrets: %w", err)
	}
	return conf, nil
}

func loadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, err
	}
	return tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(tok)
}
