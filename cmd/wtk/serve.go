package main

import (
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/Sardonyx001/whats-this-kanji/pkg/server"
)

var serveCommand = &cli.Command{
	Name:  "serve",
	Usage: "run the HTTP lookup API",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "listen",
			Aliases: []string{"l"},
			Usage:   "listen address, host:port",
		},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		if addr := c.String("listen"); addr != "" {
			cfg.ListenAddr = addr
		}

		level := slog.LevelInfo
		if cfg.Debug {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

		dict, h, err := openDictionary(cfg, logger)
		if err != nil {
			return err
		}
		defer h.Close()

		// Serve regardless; lookups answer 503 until an init completes.
		if ok, err := dict.Ready(); err == nil && !ok {
			logger.Warn("dictionary not initialized, run 'wtk init'")
		}

		logger.Info("listening", "addr", cfg.ListenAddr)
		return server.New(dict, cfg.ListenAddr, logger).Run(c.Context)
	},
}
