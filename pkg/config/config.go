// Package config resolves runtime settings from three layers: built-in
// defaults, an optional JWCC config file, and WTK_-prefixed environment
// variables, in that order of increasing precedence.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/tailscale/hujson"

	"github.com/Sardonyx001/whats-this-kanji/pkg/dictionary"
	"github.com/Sardonyx001/whats-this-kanji/pkg/ingest"
)

// DatabaseName is the file name of the live dictionary store.
const DatabaseName = "kanjidic2.db"

// Config holds every runtime setting. File keys are snake_case; the
// matching environment variables carry a WTK_ prefix (WTK_DATA_DIR and so
// on). The config file may contain comments and trailing commas.
type Config struct {
	// DataDir holds the database, snapshots, and repl history.
	DataDir string `json:"data_dir" env:"DATA_DIR"`
	// DatabasePath overrides the DataDir/kanjidic2.db default.
	DatabasePath string `json:"database_path" env:"DATABASE_PATH"`
	// SnapshotDir holds pre-built database payloads, probed before any
	// network fetch. Empty means DataDir/snapshots.
	SnapshotDir string `json:"snapshot_dir" env:"SNAPSHOT_DIR"`
	// DownloadURL is the gzip-compressed KANJIDIC2 distribution.
	DownloadURL string `json:"download_url" env:"DOWNLOAD_URL"`
	// FetchTimeout bounds the whole download. Durations do not survive
	// JSON, so this is settable only through the environment.
	FetchTimeout time.Duration `json:"-" env:"FETCH_TIMEOUT"`
	// BatchSize is how many entries are committed per import transaction.
	BatchSize int `json:"batch_size" env:"BATCH_SIZE"`
	// ListenAddr is the serve command's bind address.
	ListenAddr string `json:"listen_addr" env:"LISTEN_ADDR"`
	// Debug lowers the log level to debug.
	Debug bool `json:"debug" env:"DEBUG"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		DataDir:      defaultDataDir(),
		DownloadURL:  dictionary.DefaultURL,
		FetchTimeout: dictionary.DefaultFetchTimeout,
		BatchSize:    ingest.DefaultBatchSize,
		ListenAddr:   "127.0.0.1:8090",
	}
}

// defaultDataDir follows XDG: $XDG_DATA_HOME/wtk, falling back to
// ~/.local/share/wtk, falling back to a directory under the cwd when even
// the home directory is unknown.
func defaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "wtk")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".wtk"
	}
	return filepath.Join(home, ".local", "share", "wtk")
}

// DefaultPath returns the default config file location:
// $XDG_CONFIG_HOME/wtk/config.json, falling back to ~/.config/wtk/config.json.
func DefaultPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "wtk", "config.json")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "wtk", "config.json")
}

// Load resolves the configuration. A non-empty path names a config file
// that must exist; with an empty path the default location is tried and
// silently skipped when absent. Environment variables are applied last.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	mustExist := path != ""
	if path == "" {
		path = DefaultPath()
	}
	if path != "" {
		if err := loadFile(&cfg, path, mustExist); err != nil {
			return Config{}, err
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "WTK_"}); err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(cfg *Config, path string, mustExist bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !mustExist {
			return nil
		}
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	if err := json.Unmarshal(standardized, cfg); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	return nil
}

func (c Config) validate() error {
	if c.DataDir == "" {
		return errors.New("config: data_dir must not be empty")
	}
	if c.DownloadURL == "" {
		return errors.New("config: download_url must not be empty")
	}
	if c.BatchSize <= 0 {
		return errors.New("config: batch_size must be positive")
	}
	if c.FetchTimeout <= 0 {
		return errors.New("config: fetch timeout must be positive")
	}
	if c.ListenAddr == "" {
		return errors.New("config: listen_addr must not be empty")
	}
	return nil
}

// DatabaseFile returns the resolved database location.
func (c Config) DatabaseFile() string {
	if c.DatabasePath != "" {
		return c.DatabasePath
	}
	return filepath.Join(c.DataDir, DatabaseName)
}

// HistoryFile returns where the repl keeps its input history.
func (c Config) HistoryFile() string {
	return filepath.Join(c.DataDir, "history")
}

// SnapshotCandidates returns snapshot payload paths in probe order: the
// plain database first, then the compressed one.
func (c Config) SnapshotCandidates() []string {
	dir := c.SnapshotDir
	if dir == "" {
		dir = filepath.Join(c.DataDir, "snapshots")
	}
	return []string{
		filepath.Join(dir, DatabaseName),
		filepath.Join(dir, DatabaseName+".gz"),
	}
}
