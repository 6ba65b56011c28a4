package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultPageSize       = 30
	DefaultReconnectDelay = 5 * time.Second
	DefaultHeartbeat      = 10 * time.Second
)

// Config represents the global ~/.popchat/config.toml.
type Config struct {
	DefaultProfile string `toml:"default_profile"`
}

// Profile is the per-profile profile.toml: which backend to talk to and as whom.
type Profile struct {
	APIBaseURL     string   `toml:"api_base_url"`
	WSURL          string   `toml:"ws_url"`
	AccessToken    string   `toml:"access_token"`
	UserID         int64    `toml:"user_id"`
	Nickname       string   `toml:"nickname"`
	BotUserID      int64    `toml:"bot_user_id"`
	PageSize       int      `toml:"page_size"`
	ReconnectDelay Duration `toml:"reconnect_delay"`
	Heartbeat      Duration `toml:"heartbeat"`
	MetricsAddr    string   `toml:"metrics_addr"`
	// ShareBaseURL prefixes popup links; the API origin is used when empty.
	ShareBaseURL string `toml:"share_base_url"`
}

// Duration is a time.Duration written as a Go duration string ("5s").
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Load reads config from the given path. Returns zero config and error if file missing.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	return writeTOML(path, cfg)
}

// LoadProfile reads a profile file, fills defaults and validates it.
func LoadProfile(path string) (*Profile, error) {
	var p Profile
	md, err := toml.DecodeFile(path, &p)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	p.ApplyDefaults()
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &p, nil
}

// SaveProfile writes a profile file with owner-only permissions; it holds the access token.
func SaveProfile(path string, p *Profile) error {
	return writeTOML(path, p)
}

// ApplyDefaults fills zero values with their defaults.
func (p *Profile) ApplyDefaults() {
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	if p.ReconnectDelay.Duration <= 0 {
		p.ReconnectDelay.Duration = DefaultReconnectDelay
	}
	if p.Heartbeat.Duration <= 0 {
		p.Heartbeat.Duration = DefaultHeartbeat
	}
}

// PopupLink returns the public link of a popup page.
func (p *Profile) PopupLink(id int64) string {
	base := strings.TrimRight(p.ShareBaseURL, "/")
	if base == "" {
		if u, err := url.Parse(p.APIBaseURL); err == nil && u.Host != "" {
			base = u.Scheme + "://" + u.Host
		}
	}
	return fmt.Sprintf("%s/popups/%d", base, id)
}

// Validate checks the fields the daemon cannot run without.
func (p *Profile) Validate() error {
	var errs []error
	if err := checkURL("api_base_url", p.APIBaseURL, "http", "https"); err != nil {
		errs = append(errs, err)
	}
	if err := checkURL("ws_url", p.WSURL, "ws", "wss"); err != nil {
		errs = append(errs, err)
	}
	if p.UserID <= 0 {
		errs = append(errs, errors.New("user_id must be positive"))
	}
	return errors.Join(errs...)
}

func checkURL(field, raw string, schemes ...string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("%s %q: want a %v URL", field, raw, schemes)
}

func writeTOML(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(v)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
