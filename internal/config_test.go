package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should pass: %v", err)
	}
	if got := cfg.Cache.Catalog().StaleWindow; got != 5*time.Minute {
		t.Errorf("stale window = %v, want 5m", got)
	}
}

func TestAPIConfig_BaseURL(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.API.BaseURL = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty base_url should fail")
	}

	cfg.API.BaseURL = "not a url"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("malformed base_url should fail")
	}
	if !strings.HasPrefix(err.Error(), "api:") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAPIConfig_NegativeTimeout(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.API.Timeout = -time.Second
	if err := cfg.Validate(); err == nil {
		t.Fatal("negative timeout should fail")
	}
}

func TestSessionConfig_EmptyStoreDefaultsFile(t *testing.T) {
	cfg := SessionConfig{Path: "/tmp/token"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty store should default to file: %v", err)
	}
	if cfg.Store != "file" {
		t.Errorf("store = %q, want %q", cfg.Store, "file")
	}
}

func TestSessionConfig_InvalidStore(t *testing.T) {
	cfg := SessionConfig{Store: "redis", Path: "/tmp/token"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown store should fail validation")
	}
}

func TestSessionConfig_TokenPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	cfg := SessionConfig{Path: "~/.foodly/token"}
	if got, want := cfg.TokenPath(), filepath.Join(home, ".foodly", "token"); got != want {
		t.Errorf("TokenPath() = %q, want %q", got, want)
	}

	cfg.Path = "/var/lib/foodly/token"
	if got := cfg.TokenPath(); got != cfg.Path {
		t.Errorf("absolute path rewritten to %q", got)
	}
}

func TestCacheConfig_PerPageBounds(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Cache.PerPage = 500
	if err := cfg.Validate(); err == nil {
		t.Fatal("per_page above 100 should fail")
	}
}

func TestMockAPIConfig_Port(t *testing.T) {
	cfg := NewDefaultConfig()
	if got := cfg.MockAPI.Address(); got != ":8000" {
		t.Errorf("Address() = %q", got)
	}
	cfg.MockAPI.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Fatal("port out of range should fail")
	}
}
