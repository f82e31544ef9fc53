package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/Sardonyx001/whats-this-kanji/pkg/config"
	"github.com/Sardonyx001/whats-this-kanji/pkg/db"
	"github.com/Sardonyx001/whats-this-kanji/pkg/dictionary"
	"github.com/Sardonyx001/whats-this-kanji/pkg/ingest"
	"github.com/Sardonyx001/whats-this-kanji/pkg/kanjidic"
)

var generateCommand = &cli.Command{
	Name:  "generate",
	Usage: "build a dictionary database from a KANJIDIC2 XML file",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "input",
			Aliases:  []string{"i"},
			Usage:    "KANJIDIC2 XML file",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "database file to write",
			Value:   config.DatabaseName,
		},
		&cli.BoolFlag{
			Name:    "force",
			Aliases: []string{"f"},
			Usage:   "overwrite an existing output file",
		},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		out := c.String("output")
		if _, err := os.Stat(out); err == nil {
			if !c.Bool("force") {
				return fmt.Errorf("%s already exists, use --force to overwrite", out)
			}
			// The WAL sidecars go with the old store.
			for _, p := range []string{out, out + "-wal", out + "-shm"} {
				if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
					return err
				}
			}
		}

		in, err := os.Open(c.String("input"))
		if err != nil {
			return err
		}
		defer in.Close()

		fmt.Fprintf(c.App.Writer, "parsing %s...\n", c.String("input"))
		entries, skipped, err := kanjidic.ParseAll(in, func(count int) {
			fmt.Fprintf(c.App.Writer, "\rparsed %d entries", count)
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "\rparsed %d entries\n", len(entries))
		if skipped > 0 {
			fmt.Fprintf(c.App.Writer, "skipped %d malformed entries\n", skipped)
		}

		h, err := db.Open(out)
		if err != nil {
			return err
		}
		defer h.Close()

		im := ingest.NewImporter(h.DB(), dictionary.CurrentVersion)
		im.BatchSize = cfg.BatchSize
		im.OnProgress = func(percent int) {
			fmt.Fprintf(c.App.Writer, "\rstoring %d%%", percent)
		}
		if err := im.Run(c.Context, entries); err != nil {
			return err
		}
		fmt.Fprint(c.App.Writer, "\rstoring 100%\n")

		stats, err := db.GetStats(h.DB())
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "wrote %s: %d kanji, %d readings, %d meanings (version %s)\n",
			out, stats.KanjiCount, stats.ReadingCount, stats.MeaningCount, stats.Version)
		return nil
	},
}
