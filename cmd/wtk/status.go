package main

import (
	"github.com/rodaine/table"
	"github.com/urfave/cli/v2"
)

var statusCommand = &cli.Command{
	Name:  "status",
	Usage: "show dictionary readiness and record counts",
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		dict, h, err := openDictionary(cfg, newLogger(cfg))
		if err != nil {
			return err
		}
		defer h.Close()

		ready, err := dict.Ready()
		if err != nil {
			return err
		}
		stats, err := dict.Stats()
		if err != nil {
			return err
		}

		version := stats.Version
		if version == "" {
			version = "-"
		}

		tbl := table.New("Field", "Value").WithWriter(c.App.Writer)
		tbl.AddRow("database", cfg.DatabaseFile())
		tbl.AddRow("ready", ready)
		tbl.AddRow("version", version)
		tbl.AddRow("kanji", stats.KanjiCount)
		tbl.AddRow("readings", stats.ReadingCount)
		tbl.AddRow("meanings", stats.MeaningCount)
		tbl.Print()
		return nil
	},
}
