package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/ballotdesk/internal/engine/history"
	"github.com/dshills/ballotdesk/internal/input/hotkey"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BALLOTDESK_"

// Config holds all ballotdesk settings.
type Config struct {
	History HistoryConfig `toml:"history" envPrefix:"HISTORY_"`
	Remote  RemoteConfig  `toml:"remote" envPrefix:"REMOTE_"`
	Hotkeys HotkeyConfig  `toml:"hotkeys" envPrefix:"HOTKEYS_"`
	Log     LogConfig     `toml:"log" envPrefix:"LOG_"`
	Server  ServerConfig  `toml:"server" envPrefix:"SERVER_"`
	Metrics MetricsConfig `toml:"metrics" envPrefix:"METRICS_"`
}

// HistoryConfig configures the command history.
type HistoryConfig struct {
	Capacity int `toml:"capacity" env:"CAPACITY"`
}

// RemoteConfig points the console at the resource API.
type RemoteConfig struct {
	BaseURL string   `toml:"base_url" env:"BASE_URL"`
	Token   string   `toml:"token" env:"TOKEN"`
	Timeout Duration `toml:"timeout" env:"TIMEOUT"`
}

// HotkeyConfig lists the chords for undo and redo as key specs.
type HotkeyConfig struct {
	Undo []string `toml:"undo" env:"UNDO"`
	Redo []string `toml:"redo" env:"REDO"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `toml:"level" env:"LEVEL"`
	Format string `toml:"format" env:"FORMAT"`
	File   string `toml:"file" env:"FILE"`
}

// ServerConfig configures the resource API server.
type ServerConfig struct {
	Addr   string `toml:"addr" env:"ADDR"`
	DBPath string `toml:"db_path" env:"DB_PATH"`
	Token  string `toml:"token" env:"TOKEN"`
}

// MetricsConfig configures the metrics listener. An empty address
// disables it.
type MetricsConfig struct {
	Addr string `toml:"addr" env:"ADDR"`
}

// Duration is a time.Duration written as "10s" in files and variables.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
)

// Default returns the built-in settings.
func Default() Config {
	undo, redo := hotkey.DefaultBindings(runtime.GOOS).Specs()
	return Config{
		History: HistoryConfig{Capacity: history.DefaultCapacity},
		Remote: RemoteConfig{
			BaseURL: "http://localhost:8080",
			Timeout: Duration{10 * time.Second},
		},
		Hotkeys: HotkeyConfig{Undo: undo, Redo: redo},
		Log:     LogConfig{Level: "info", Format: "text"},
		Server:  ServerConfig{Addr: ":8080", DBPath: "ballotdesk.db"},
		Metrics: MetricsConfig{Addr: ":9090"},
	}
}

// Validate checks the settings for values the rest of the program cannot
// work with.
func (c Config) Validate() error {
	var errs []error
	if c.History.Capacity < 1 {
		errs = append(errs, fmt.Errorf("history.capacity must be at least 1, got %d", c.History.Capacity))
	}
	if c.Remote.BaseURL != "" {
		if u, err := url.Parse(c.Remote.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("remote.base_url %q is not an absolute URL", c.Remote.BaseURL))
		}
	}
	if c.Remote.Timeout.Duration < 0 {
		errs = append(errs, fmt.Errorf("remote.timeout must not be negative"))
	}
	if _, err := c.Bindings(); err != nil {
		errs = append(errs, fmt.Errorf("hotkeys: %w", err))
	}
	if !slices.Contains(logLevels, strings.ToLower(c.Log.Level)) {
		errs = append(errs, fmt.Errorf("log.level %q must be one of %s", c.Log.Level, strings.Join(logLevels, ", ")))
	}
	if !slices.Contains(logFormats, strings.ToLower(c.Log.Format)) {
		errs = append(errs, fmt.Errorf("log.format %q must be one of %s", c.Log.Format, strings.Join(logFormats, ", ")))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// Bindings parses the hotkey chords.
func (c Config) Bindings() (hotkey.Bindings, error) {
	return hotkey.ParseBindings(c.Hotkeys.Undo, c.Hotkeys.Redo)
}

// Write encodes c as TOML.
func Write(w io.Writer, c Config) error {
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	return enc.Encode(c)
}

// Loader reads a Config from a file and the environment.
type Loader struct {
	path    string
	environ map[string]string
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithEnvironment replaces the process environment, mainly for tests.
func WithEnvironment(environ map[string]string) LoaderOption {
	return func(l *Loader) {
		l.environ = environ
	}
}

// NewLoader creates a loader for path. An empty path skips the file.
func NewLoader(path string, opts ...LoaderOption) *Loader {
	l := &Loader{path: path}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Path returns the configuration file path.
func (l *Loader) Path() string {
	return l.path
}

// Load resolves defaults, file and environment, then validates.
// A missing file is not an error.
func (l *Loader) Load() (Config, error) {
	cfg := Default()

	if l.path != "" {
		data, err := os.ReadFile(l.path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("reading config file %s: %w", l.path, err)
		default:
			if err := decode(l.path, data, &cfg); err != nil {
				return Config{}, err
			}
		}
	}

	opts := env.Options{Prefix: EnvPrefix, Environment: l.environ}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load is shorthand for NewLoader(path).Load().
func Load(path string) (Config, error) {
	return NewLoader(path).Load()
}

func decode(path string, data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return newParseError(path, err)
	}
	return nil
}
