package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	if err := Save(path, &Config{DefaultProfile: "work"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.DefaultProfile != "work" {
		t.Errorf("DefaultProfile = %q, want %q", loaded.DefaultProfile, "work")
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load("/nonexistent/config.toml"); err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestSavePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.toml")

	if err := SaveProfile(path, &Profile{AccessToken: "secret"}); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}

func TestProfileRoundTripAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.toml")
	in := &Profile{
		APIBaseURL:     "https://api.popspot.example",
		WSURL:          "wss://api.popspot.example/ws",
		AccessToken:    "tok",
		UserID:         7,
		Nickname:       "jin",
		ReconnectDelay: Duration{2 * time.Second},
	}
	if err := SaveProfile(path, in); err != nil {
		t.Fatal(err)
	}

	got, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile() error = %v", err)
	}
	if got.UserID != 7 || got.Nickname != "jin" {
		t.Errorf("profile = %+v", got)
	}
	if got.ReconnectDelay.Duration != 2*time.Second {
		t.Errorf("ReconnectDelay = %v, want 2s", got.ReconnectDelay)
	}
	if got.PageSize != DefaultPageSize || got.Heartbeat.Duration != DefaultHeartbeat {
		t.Errorf("defaults not applied: page_size=%d heartbeat=%v", got.PageSize, got.Heartbeat)
	}
}

func TestLoadProfileValidation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"missing urls", `user_id = 1`, "api_base_url is required"},
		{"bad ws scheme", "api_base_url = \"http://x\"\nws_url = \"http://x/ws\"\nuser_id = 1", "ws_url"},
		{"no user", "api_base_url = \"http://x\"\nws_url = \"ws://x/ws\"", "user_id"},
		{"unknown key", "api_base_url = \"http://x\"\nws_url = \"ws://x/ws\"\nuser_id = 1\ncolour = \"red\"", "unknown key"},
		{"bad duration", "api_base_url = \"http://x\"\nws_url = \"ws://x/ws\"\nuser_id = 1\nheartbeat = \"soon\"", "invalid duration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "profile.toml")
			if err := os.WriteFile(path, []byte(tt.body), 0600); err != nil {
				t.Fatal(err)
			}
			_, err := LoadProfile(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadProfile() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestPopupLink(t *testing.T) {
	p := &Profile{APIBaseURL: "https://api.popspot.test/v1"}
	if got := p.PopupLink(12); got != "https://api.popspot.test/popups/12" {
		t.Errorf("PopupLink = %q", got)
	}
	p.ShareBaseURL = "https://popspot.test/share/"
	if got := p.PopupLink(12); got != "https://popspot.test/share/popups/12" {
		t.Errorf("PopupLink with share base = %q", got)
	}
}
