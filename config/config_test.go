package config

import (
	"testing"
)

func TestValidateBotReady(t *testing.T) {
	t.Setenv("TG_BOT_TOKEN", "123:abc")
	t.Setenv("TG_GROUP_ID", "-1001")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if err := cfg.ValidateBotReady(); err != nil {
		t.Errorf("expected valid bot config, got %v", err)
	}

	t.Setenv("TG_BOT_TOKEN", "")
	cfg, _ = Load()
	if err := cfg.ValidateBotReady(); err == nil {
		t.Errorf("expected error when bot token missing")
	}
}

func TestValidateSSHReady(t *testing.T) {
	t.Setenv("USE_SSH_TUNNEL", "true")
	t.Setenv("SSH_HOST", "bastion")
	t.Setenv("SSH_USER", "deploy")
	t.Setenv("SSH_PRIVATE_KEY", "/keys/id_ed25519")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if err := cfg.ValidateSSHReady(); err != nil {
		t.Errorf("expected valid ssh config, got %v", err)
	}

	t.Setenv("SSH_HOST", "")
	cfg, _ = Load()
	if err := cfg.ValidateSSHReady(); err == nil {
		t.Errorf("expected error when ssh host missing")
	}
}

func TestGetenvIntRejectsGarbage(t *testing.T) {
	t.Setenv("DB_PORT", "not-a-port")
	if _, err := Load(); err == nil {
		t.Errorf("expected error for non-numeric DB_PORT")
	}
}

func TestYouTubeCredentialEnvs(t *testing.T) {
	t.Setenv("YOUTUBE_SERVICE_SECRET_JSON", "/secrets/service.json")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.YouTubeServiceSecretJSON != "/secrets/service.json" {
		t.Errorf("YouTubeServiceSecretJSON = %q", cfg.YouTubeServiceSecretJSON)
	}
	if cfg.YouTubeSecretJSON != "client_secret.json" {
		t.Errorf("YouTubeSecretJSON default = %q", cfg.YouTubeSecretJSON)
	}
}

func TestAdminIDsParsing(t *testing.T) {
	t.Setenv("TG_ADMIN_IDS", "10, 20,30")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	want := []int64{10, 20, 30}
	if len(cfg.TGAdminIDs) != len(want) {
		t.Fatalf("TGAdminIDs = %v, want %v", cfg.TGAdminIDs, want)
	}
	for i, id := range want {
		if cfg.TGAdminIDs[i] != id {
			t.Errorf("TGAdminIDs[%d] = %d, want %d", i, cfg.TGAdminIDs[i], id)
		}
	}
}
