package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rodaine/table"
	"github.com/urfave/cli/v2"

	"github.com/Sardonyx001/whats-this-kanji/pkg/db"
	"github.com/Sardonyx001/whats-this-kanji/pkg/tokenizer"
)

var lookupCommand = &cli.Command{
	Name:      "lookup",
	Usage:     "look up one or more kanji",
	ArgsUsage: "LITERAL...",
	Action: func(c *cli.Context) error {
		if c.NArg() == 0 {
			return errors.New("lookup needs at least one kanji argument")
		}
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		dict, h, err := openDictionary(cfg, newLogger(cfg))
		if err != nil {
			return err
		}
		defer h.Close()
		if err := ensureReady(dict); err != nil {
			return err
		}

		// Arguments may be words; every kanji in them is looked up.
		literals := tokenizer.ExtractKanji(strings.Join(c.Args().Slice(), ""))
		if len(literals) == 0 {
			return errors.New("no kanji in the given arguments")
		}

		details, err := dict.LookupBatch(literals)
		if err != nil {
			return err
		}
		printKanji(c.App.Writer, details)
		reportMissing(c.App.Writer, literals, details)
		return nil
	},
}

func printKanji(w io.Writer, details []db.KanjiDetail) {
	tbl := table.New("Kanji", "Grade", "Strokes", "Freq", "JLPT", "On", "Kun", "Meanings").WithWriter(w)
	for _, d := range details {
		tbl.AddRow(
			d.Character.Literal,
			fmtIntPtr(d.Character.Grade),
			fmtIntPtr(d.Character.StrokeCount),
			fmtIntPtr(d.Character.Freq),
			fmtIntPtr(d.Character.JLPT),
			strings.Join(d.OnReadings, " "),
			strings.Join(d.KunReadings, " "),
			strings.Join(d.Meanings, "; "),
		)
	}
	tbl.Print()
}

func fmtIntPtr(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

// reportMissing lists requested literals the dictionary does not carry.
func reportMissing(w io.Writer, literals []string, details []db.KanjiDetail) {
	found := make(map[string]bool, len(details))
	for _, d := range details {
		found[d.Character.Literal] = true
	}
	var missing []string
	for _, lit := range literals {
		if !found[lit] {
			missing = append(missing, lit)
		}
	}
	if len(missing) > 0 {
		fmt.Fprintf(w, "not found: %s\n", strings.Join(missing, " "))
	}
}
