package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klibmirror/klibmirror/pkg/errors"
)

func TestLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "klibmirror.toml")

	want := Default()
	want.CacheDir = "/tmp/mirror-cache"
	want.Policy = "wasm"
	want.HTTP.Timeout = Duration(30 * time.Second)
	want.HTTP.Retries = 3

	if err := want.Save(path); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got.CacheDir != want.CacheDir {
		t.Errorf("CacheDir = %q, want %q", got.CacheDir, want.CacheDir)
	}
	if got.Policy != "wasm" {
		t.Errorf("Policy = %q, want wasm", got.Policy)
	}
	if time.Duration(got.HTTP.Timeout) != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", got.HTTP.Timeout)
	}
	if got.HTTP.Retries != 3 {
		t.Errorf("Retries = %d, want 3", got.HTTP.Retries)
	}
	if len(got.Klibs) != len(want.Klibs) {
		t.Errorf("Klibs = %v, want %v", got.Klibs, want.Klibs)
	}
}

func TestLoadParsesDurationsAndTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "klibmirror.toml")
	content := `cache_dir = "cache"
policy = "standard"
klibs = ["org.example:lib-js:1.0"]

[mirror]
workers = 4

[http]
repository = "https://repo1.maven.org/maven2"
timeout = "1m30s"
retries = 2
descriptor_ttl = "12h"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Mirror.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Mirror.Workers)
	}
	if time.Duration(cfg.HTTP.Timeout) != 90*time.Second {
		t.Errorf("Timeout = %v, want 1m30s", cfg.HTTP.Timeout)
	}
	if time.Duration(cfg.HTTP.DescriptorTTL) != 12*time.Hour {
		t.Errorf("DescriptorTTL = %v, want 12h", cfg.HTTP.DescriptorTTL)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"broken toml", `cache_dir = `},
		{"empty cache dir", `cache_dir = ""`},
		{"bad policy", "cache_dir = \"cache\"\npolicy = \"native\""},
		{"negative workers", "cache_dir = \"cache\"\n[mirror]\nworkers = -1"},
		{"negative retries", "cache_dir = \"cache\"\n[http]\nretries = -1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "klibmirror.toml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("Load() succeeded, want error")
			}
		})
	}
}

func TestLoadOrInitWritesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "klibmirror.toml")

	cfg, created, err := LoadOrInit(path)
	if err != nil {
		t.Fatalf("LoadOrInit() error: %v", err)
	}
	if !created {
		t.Error("created = false, want true for a missing file")
	}
	if cfg.CacheDir != Default().CacheDir {
		t.Errorf("CacheDir = %q, want default", cfg.CacheDir)
	}

	// The written file must load cleanly on the next run.
	cfg2, created2, err := LoadOrInit(path)
	if err != nil {
		t.Fatalf("second LoadOrInit() error: %v", err)
	}
	if created2 {
		t.Error("created = true on second run, want false")
	}
	if cfg2.Policy != cfg.Policy {
		t.Errorf("reloaded Policy = %q, want %q", cfg2.Policy, cfg.Policy)
	}
}

func TestLoadOrInitReplacesCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "klibmirror.toml")
	if err := os.WriteFile(path, []byte("not { valid toml"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, created, err := LoadOrInit(path)
	if err != nil {
		t.Fatalf("LoadOrInit() error: %v", err)
	}
	if !created {
		t.Error("created = false, want true for a corrupt file")
	}
	if cfg.CacheDir == "" {
		t.Error("expected default config")
	}
}

func TestValidateDefault(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestValidateErrorCodes(t *testing.T) {
	cfg := Default()
	cfg.Policy = "native"
	if err := cfg.Validate(); !errors.Is(err, errors.ErrCodeInvalidPolicy) {
		t.Errorf("error code = %v, want INVALID_POLICY", errors.GetCode(err))
	}

	cfg = Default()
	cfg.CacheDir = ""
	if err := cfg.Validate(); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("error code = %v, want INVALID_CONFIG", errors.GetCode(err))
	}
}
