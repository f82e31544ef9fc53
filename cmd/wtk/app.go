package main

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/Sardonyx001/whats-this-kanji/pkg/config"
	"github.com/Sardonyx001/whats-this-kanji/pkg/db"
	"github.com/Sardonyx001/whats-this-kanji/pkg/dictionary"
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "wtk",
		Usage: "offline kanji dictionary",
		Description: "wtk keeps a local KANJIDIC2-derived database and answers\n" +
			"kanji lookups from the command line, a repl, or an HTTP API.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "load configuration from `FILE`",
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "use the dictionary database at `FILE`",
			},
			&cli.StringFlag{
				Name:  "data-dir",
				Usage: "keep application data in `DIR`",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			initCommand,
			statusCommand,
			lookupCommand,
			scanCommand,
			replCommand,
			serveCommand,
			generateCommand,
			versionCommand,
		},
	}
}

// loadConfig resolves configuration and applies the global flag overrides on
// top of it.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return config.Config{}, err
	}
	if dir := c.String("data-dir"); dir != "" {
		cfg.DataDir = dir
	}
	if path := c.String("db"); path != "" {
		cfg.DatabasePath = path
	}
	if c.Bool("debug") {
		cfg.Debug = true
	}
	return cfg, nil
}

// newLogger builds the stderr text logger for interactive commands. Info
// chatter is reserved for --debug so it does not mix with command output.
func newLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelWarn
	if cfg.Debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openDictionary opens the store and wires the acquisition sources. The
// caller owns the returned handle.
func openDictionary(cfg config.Config, logger *slog.Logger) (*dictionary.Dictionary, *db.Handle, error) {
	h, err := db.Open(cfg.DatabaseFile())
	if err != nil {
		return nil, nil, err
	}
	return dictionary.New(h, buildSources(cfg, logger), logger), h, nil
}

// buildSources probes the snapshot locations and always appends the network
// fallback.
func buildSources(cfg config.Config, logger *slog.Logger) []dictionary.Source {
	var sources []dictionary.Source
	for _, path := range cfg.SnapshotCandidates() {
		if _, err := os.Stat(path); err == nil {
			sources = append(sources, &dictionary.SnapshotSource{
				FS:     os.DirFS(filepath.Dir(path)),
				Path:   filepath.Base(path),
				Logger: logger,
			})
			break
		}
	}
	sources = append(sources, &dictionary.NetworkSource{
		URL:       cfg.DownloadURL,
		Client:    &http.Client{Timeout: cfg.FetchTimeout},
		Version:   dictionary.CurrentVersion,
		BatchSize: cfg.BatchSize,
		Logger:    logger,
	})
	return sources
}

// ensureReady rejects query commands until the store holds a complete
// dataset.
func ensureReady(dict *dictionary.Dictionary) error {
	ok, err := dict.Ready()
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("dictionary not initialized; run 'wtk init' first")
	}
	return nil
}
