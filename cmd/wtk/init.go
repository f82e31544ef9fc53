package main

import (
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/Sardonyx001/whats-this-kanji/pkg/dictionary"
)

var initCommand = &cli.Command{
	Name:  "init",
	Usage: "build the dictionary from the bundled snapshot or the network",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    "force",
			Aliases: []string{"f"},
			Usage:   "rebuild even if the dictionary is already ready",
		},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		logger := newLogger(cfg)
		dict, h, err := openDictionary(cfg, logger)
		if err != nil {
			return err
		}
		defer h.Close()

		if !c.Bool("force") {
			ok, err := dict.Ready()
			if err != nil {
				return err
			}
			if ok {
				version, _ := dict.Version()
				fmt.Fprintf(c.App.Writer, "dictionary already initialized (version %s)\n", version)
				return nil
			}
		}

		ch, err := dict.Initialize(c.Context)
		if err != nil {
			return err
		}

		printer := &progressPrinter{w: c.App.Writer}
		var failed error
		for st := range ch {
			printer.print(st)
			if st.Stage == dictionary.StageFailed {
				failed = st.Err
			}
		}
		if failed != nil {
			return fmt.Errorf("initialization failed: %w", failed)
		}
		return nil
	},
}

// progressPrinter renders the status stream as one line per stage, updated
// in place while a stage progresses.
type progressPrinter struct {
	w     io.Writer
	stage dictionary.Stage
	seen  bool
}

func (p *progressPrinter) print(st dictionary.Status) {
	if !p.seen || st.Stage != p.stage {
		if p.seen {
			fmt.Fprintln(p.w)
		}
		p.seen = true
		p.stage = st.Stage

		switch st.Stage {
		case dictionary.StageCompleted:
			fmt.Fprintf(p.w, "done: %d kanji, %d readings, %d meanings\n",
				st.Counts.Kanji, st.Counts.Readings, st.Counts.Meanings)
		case dictionary.StageFailed:
			fmt.Fprintf(p.w, "failed: %v\n", st.Err)
		default:
			fmt.Fprintf(p.w, "%s...", st.Stage)
		}
		return
	}

	switch {
	case st.Stage == dictionary.StageParsing && st.Count > 0:
		fmt.Fprintf(p.w, "\r%s... %d entries", st.Stage, st.Count)
	case st.Percent > 0:
		fmt.Fprintf(p.w, "\r%s... %d%%", st.Stage, st.Percent)
	}
}
