package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestCanonicalChannelURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"https://www.youtube.com/channel/UCabc123_-x", "https://www.youtube.com/channel/UCabc123_-x", true},
		{"https://www.youtube.com/channel/UCabc123_-x/videos", "https://www.youtube.com/channel/UCabc123_-x", true},
		{"http://youtube.com/channel/UCabc123_-x/", "https://www.youtube.com/channel/UCabc123_-x", true},
		{"https://www.youtube.com/@SomeHandle", "https://www.youtube.com/@SomeHandle", true},
		{"https://youtube.com/@SomeHandle/videos", "https://www.youtube.com/@SomeHandle", true},
		{"https://www.youtube.com/c/LegacyName/videos", "https://www.youtube.com/c/LegacyName", true},
		{"  https://www.youtube.com/@padded  ", "https://www.youtube.com/@padded", true},
		{"https://www.youtube.com/watch?v=abc", "", false},
		{"https://example.com/@SomeHandle", "", false},
		{"not a url", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := CanonicalChannelURL(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("CanonicalChannelURL(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestCanonicalizeChannelURLsDedupeSort(t *testing.T) {
	in := []string{
		"https://www.youtube.com/@zeta/videos",
		"https://www.youtube.com/@alpha",
		"https://youtube.com/@zeta", // duplicate after canonicalization
		"garbage line",
		"https://www.youtube.com/channel/UCmiddle",
	}
	want := []string{
		"https://www.youtube.com/@alpha",
		"https://www.youtube.com/@zeta",
		"https://www.youtube.com/channel/UCmiddle",
	}
	got := CanonicalizeChannelURLs(in)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CanonicalizeChannelURLs = %v, want %v", got, want)
	}
}

func TestLoadChannelListJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "left.json")
	data := `{"name": "left", "channels": ["https://www.youtube.com/@b/videos", "https://www.youtube.com/@a"]}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	list, err := LoadChannelList(path)
	if err != nil {
		t.Fatalf("LoadChannelList: %v", err)
	}
	if list.Name != "left" {
		t.Errorf("name = %q, want left", list.Name)
	}
	want := []string{"https://www.youtube.com/@a", "https://www.youtube.com/@b"}
	if !reflect.DeepEqual(list.Channels, want) {
		t.Errorf("channels = %v, want %v", list.Channels, want)
	}
}

func TestLoadChannelListPlainText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "watchlist.txt")
	data := "# comment\nhttps://www.youtube.com/@only/videos\n\nnot-a-channel\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	list, err := LoadChannelList(path)
	if err != nil {
		t.Fatalf("LoadChannelList: %v", err)
	}
	if list.Name != "watchlist" {
		t.Errorf("name = %q, want watchlist", list.Name)
	}
	if len(list.Channels) != 1 || list.Channels[0] != "https://www.youtube.com/@only" {
		t.Errorf("channels = %v", list.Channels)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBSchema != "youtube" {
		t.Errorf("DBSchema = %q, want youtube", cfg.DBSchema)
	}
	if cfg.AppPort != 8000 {
		t.Errorf("AppPort = %d, want 8000", cfg.AppPort)
	}
	if !cfg.MonitorNew || cfg.RunTGBot {
		t.Errorf("unexpected feature flag defaults: new=%v bot=%v", cfg.MonitorNew, cfg.RunTGBot)
	}
}

func TestDatabaseDSN(t *testing.T) {
	cfg := &Config{DBHost: "db", DBPort: 5433, DBName: "obs", DBSchema: "youtube", DBUsername: "u", DBPassword: "p@ss"}
	dsn := cfg.DatabaseDSN()
	want := "postgres://u:p%40ss@db:5433/obs?sslmode=disable&search_path=youtube"
	if dsn != want {
		t.Errorf("DSN = %q, want %q", dsn, want)
	}
}
