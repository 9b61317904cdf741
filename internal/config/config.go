// Package config handles the XDG configuration directory, config file and environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

const (
	// AppName is the application directory name.
	AppName = "todo"

	// ConfigFile is the optional TOML configuration filename.
	ConfigFile = "config.toml"

	// SessionFile is the stored session filename.
	SessionFile = "session.json"

	// DefaultLocalDB is the local backend database filename.
	DefaultLocalDB = "todo.db"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "TODO_"
)

// Backend names.
const (
	BackendFirebase = "firebase"
	BackendLocal    = "local"
)

// DefaultTimeout bounds each remote call.
const DefaultTimeout = 10 * time.Second

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string `toml:"-"`

	// Debug enables debug logging.
	Debug bool `toml:"-"`

	// Quiet suppresses informational output.
	Quiet bool `toml:"-"`

	// Backend selects the identity/document backend: "firebase" or "local".
	Backend string `toml:"backend" env:"BACKEND"`

	// LogLevel is the log level used when Debug is off (debug, info, warn, error).
	LogLevel string `toml:"log_level" env:"LOG_LEVEL"`

	// Timeout bounds each remote call.
	Timeout time.Duration `toml:"timeout" env:"TIMEOUT"`

	// Password is read from the environment only, for non-interactive sign-in.
	Password string `toml:"-" env:"PASSWORD"`

	Firebase FirebaseConfig `toml:"firebase" envPrefix:"FIREBASE_"`
	Local    LocalConfig    `toml:"local" envPrefix:"LOCAL_"`
}

// FirebaseConfig identifies the Firebase project.
type FirebaseConfig struct {
	APIKey    string `toml:"api_key" env:"API_KEY"`
	ProjectID string `toml:"project_id" env:"PROJECT_ID"`
	Database  string `toml:"database" env:"DATABASE"`
}

// LocalConfig configures the embedded SQLite backend.
type LocalConfig struct {
	// Path is the database file; relative paths resolve against the config dir.
	Path string `toml:"path" env:"PATH"`

	// Secret signs local session tokens. Generated and stored in the database when empty.
	Secret string `toml:"secret" env:"SECRET"`
}

// New creates a new Config with defaults and the default or specified config directory.
// If configDir is empty, uses XDG_CONFIG_HOME/todo or $HOME/.config/todo.
// New does not read the config file or the environment; see Load.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	return &Config{
		Dir:      dir,
		Backend:  BackendFirebase,
		LogLevel: "warn",
		Timeout:  DefaultTimeout,
		Firebase: FirebaseConfig{Database: "(default)"},
		Local:    LocalConfig{Path: DefaultLocalDB},
	}, nil
}

// Load builds a Config from defaults, then config.toml in the config directory,
// then TODO_* environment variables.
func Load(configDir string) (*Config, error) {
	cfg, err := New(configDir)
	if err != nil {
		return nil, err
	}

	if _, err := toml.DecodeFile(cfg.FilePath(), cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("invalid %s: %w", ConfigFile, err)
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	return cfg, nil
}

// Validate checks that the selected backend has what it needs.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendFirebase:
		if c.Firebase.APIKey == "" {
			return fmt.Errorf("firebase api_key not set (set it in %s or TODO_FIREBASE_API_KEY)", c.FilePath())
		}
		if c.Firebase.ProjectID == "" {
			return fmt.Errorf("firebase project_id not set (set it in %s or TODO_FIREBASE_PROJECT_ID)", c.FilePath())
		}
	case BackendLocal:
		if strings.TrimSpace(c.Local.Path) == "" {
			return fmt.Errorf("local path not set")
		}
	default:
		return fmt.Errorf("unknown backend: %s (want firebase or local)", c.Backend)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid timeout: %s", c.Timeout)
	}
	return nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// FilePath returns the path to the TOML config file.
func (c *Config) FilePath() string {
	return filepath.Join(c.Dir, ConfigFile)
}

// SessionPath returns the path to the stored session file.
func (c *Config) SessionPath() string {
	return filepath.Join(c.Dir, SessionFile)
}

// LocalDBPath returns the local backend database path.
func (c *Config) LocalDBPath() string {
	if filepath.IsAbs(c.Local.Path) {
		return c.Local.Path
	}
	return filepath.Join(c.Dir, c.Local.Path)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}
