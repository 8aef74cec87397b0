package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadExplicitFile(t *testing.T) {
	path := writeTempConfig(t, `
host = "0.0.0.0"
port = 9001
mdns_enabled = true
log_file = "/tmp/bridge.log"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Host != "0.0.0.0" {
		t.Errorf("Host = %q, want 0.0.0.0", cfg.Host)
	}
	if cfg.Port != 9001 {
		t.Errorf("Port = %d, want 9001", cfg.Port)
	}
	if !cfg.MdnsEnabled {
		t.Error("MdnsEnabled = false, want true")
	}
	if cfg.LogFile != "/tmp/bridge.log" {
		t.Errorf("LogFile = %q", cfg.LogFile)
	}
}

func TestLoadExplicitMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil {
		t.Fatal("Load() = nil error for missing explicit path")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("error = %v, want not-found message", err)
	}
}

func TestLoadDefaultPathMissingIsFine(t *testing.T) {
	// Point HOME at an empty dir so no default config exists.
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Host != DefaultHost || cfg.Port != DefaultPort {
		t.Errorf("defaults = %s:%d, want %s:%d", cfg.Host, cfg.Port, DefaultHost, DefaultPort)
	}
}

func TestLoadDefaultPathPicksUpFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := filepath.Join(home, ".tabbridge")
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte("port = 8123\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Port != 8123 {
		t.Errorf("Port = %d, want 8123", cfg.Port)
	}
	if cfg.Host != DefaultHost {
		t.Errorf("Host = %q, want default applied to unset field", cfg.Host)
	}
}

func TestLoadParseError(t *testing.T) {
	path := writeTempConfig(t, "port = \"not a number\"\n")

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() = nil error for malformed TOML")
	}
}

func TestAddr(t *testing.T) {
	cfg := &Config{Host: "localhost", Port: 8000}
	if got := cfg.Addr(); got != "localhost:8000" {
		t.Errorf("Addr() = %q, want localhost:8000", got)
	}
}
