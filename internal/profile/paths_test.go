package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/popspot/popchat/internal/config"
)

func TestPathsUnderHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("POPCHAT_HOME", home)

	tests := map[string]string{
		"dir":      Dir("work"),
		"socket":   SocketPath("work"),
		"settings": SettingsPath("work"),
		"log":      LogPath("work"),
	}
	want := map[string]string{
		"dir":      filepath.Join(home, "profiles", "work"),
		"socket":   filepath.Join(home, "profiles", "work", "daemon.sock"),
		"settings": filepath.Join(home, "profiles", "work", "profile.toml"),
		"log":      filepath.Join(home, "profiles", "work", "logs", "popchatd.log"),
	}
	for k, got := range tests {
		if got != want[k] {
			t.Errorf("%s = %q, want %q", k, got, want[k])
		}
	}
}

func TestEnsureDir(t *testing.T) {
	t.Setenv("POPCHAT_HOME", t.TempDir())

	if err := EnsureDir("test"); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(LogDir("test"))
	if err != nil {
		t.Fatalf("log dir not created: %v", err)
	}
	if !info.IsDir() || info.Mode().Perm() != 0700 {
		t.Errorf("log dir mode = %v", info.Mode())
	}
}

func TestResolvePrecedence(t *testing.T) {
	t.Setenv("POPCHAT_HOME", t.TempDir())

	if got := Resolve(""); got != DefaultName {
		t.Errorf("Resolve() without config = %q, want %q", got, DefaultName)
	}
	if err := config.Save(ConfigPath(), &config.Config{DefaultProfile: "work"}); err != nil {
		t.Fatal(err)
	}
	if got := Resolve(""); got != "work" {
		t.Errorf("Resolve() = %q, want work", got)
	}
	if got := Resolve("alt"); got != "alt" {
		t.Errorf("Resolve(alt) = %q, want alt", got)
	}
}
