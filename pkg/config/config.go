// Package config loads and writes the klibmirror TOML configuration.
//
// Configuration is optional: every setting has a flag equivalent, and a
// missing or unreadable config file is replaced by the written default
// rather than failing the run.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/klibmirror/klibmirror/pkg/errors"
	"github.com/klibmirror/klibmirror/pkg/maven"
)

// DefaultPath is the config file used when --config is not given.
const DefaultPath = "klibmirror.toml"

// Duration wraps time.Duration for TOML string values like "30s" or "1h".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML encoding.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Config holds all klibmirror settings.
type Config struct {
	// CacheDir is the directory binary artifacts are mirrored into.
	CacheDir string `toml:"cache_dir"`

	// Policy is the variant policy name ("standard" or "wasm").
	Policy string `toml:"policy"`

	// Klibs lists the starting coordinates of the mirror run.
	Klibs []string `toml:"klibs"`

	Mirror MirrorConfig `toml:"mirror"`
	HTTP   HTTPConfig   `toml:"http"`
}

// MirrorConfig tunes the resolution engine.
type MirrorConfig struct {
	// Workers is the worker pool size. 0 means the engine default.
	Workers int `toml:"workers"`
}

// HTTPConfig tunes the repository client. Timeout and retries default to
// off: without them a stalled remote stalls the whole run, which is the
// documented behavior rather than a hidden fallback.
type HTTPConfig struct {
	// Repository is the Maven repository base URL.
	Repository string `toml:"repository"`

	// Timeout bounds each request. "0s" means no timeout.
	Timeout Duration `toml:"timeout"`

	// Retries is the number of extra attempts for transient failures.
	Retries int `toml:"retries"`

	// DescriptorTTL is how long cached POM responses stay fresh.
	// "0s" means they never expire.
	DescriptorTTL Duration `toml:"descriptor_ttl"`
}

// Default returns the configuration written when no config file exists.
// The default klib list covers the Kotlin/JS browser toolchain a typical
// consumer build needs.
func Default() Config {
	return Config{
		CacheDir: "cache",
		Policy:   string(maven.PolicyStandard),
		Klibs: []string{
			"org.jetbrains.kotlin-wrappers:kotlin-browser-js:2026.1.11",
			"org.jetbrains.kotlin:kotlin-dom-api-compat:2.3.0",
			"org.jetbrains.lets-plot:lets-plot-kotlin-js:4.12.1",
		},
		Mirror: MirrorConfig{Workers: 16},
		HTTP: HTTPConfig{
			Repository:    maven.DefaultRepository,
			DescriptorTTL: Duration(24 * time.Hour),
		},
	}
}

// Load reads and validates the config file at path.
func Load(path string) (Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "load %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadOrInit loads the config file at path, falling back to [Default] when
// the file is missing or unreadable. In the fallback case the default
// config is written to path so the next run starts from a visible file;
// created reports whether that happened. Write failures are not fatal —
// the defaults are still returned.
func LoadOrInit(path string) (cfg Config, created bool, err error) {
	cfg, err = Load(path)
	if err == nil {
		return cfg, false, nil
	}

	cfg = Default()
	if writeErr := cfg.Save(path); writeErr == nil {
		created = true
	}
	return cfg, created, nil
}

// Save writes the config as TOML to path, creating parent directories as
// needed.
func (c Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(errors.ErrCodeIO, err, "create %s", dir)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "write %s", path)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "encode %s", path)
	}
	return nil
}

// Validate checks the config for structural problems. Coordinate strings
// are not parsed here; the resolver validates them before scheduling.
func (c Config) Validate() error {
	if c.CacheDir == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "cache_dir cannot be empty")
	}
	if c.Policy != "" {
		if _, err := maven.ParsePolicy(c.Policy); err != nil {
			return err
		}
	}
	if c.Mirror.Workers < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "mirror.workers cannot be negative")
	}
	if c.HTTP.Retries < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "http.retries cannot be negative")
	}
	return nil
}
