package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
	"github.com/rodaine/table"
	"github.com/urfave/cli/v2"

	"github.com/Sardonyx001/whats-this-kanji/pkg/dictionary"
	"github.com/Sardonyx001/whats-this-kanji/pkg/tokenizer"
)

var replCommand = &cli.Command{
	Name:  "repl",
	Usage: "interactive lookup shell",
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
		if err := ensureReady(dict); err != nil {
			return err
		}

		line := liner.NewLiner()
		defer line.Close()
		line.SetCtrlCAborts(true)

		histFile := cfg.HistoryFile()
		if f, err := os.Open(histFile); err == nil {
			line.ReadHistory(f)
			f.Close()
		}

		fmt.Fprintln(c.App.Writer, "type kanji or a word to look it up, :help for commands")
		for {
			input, err := line.Prompt("wtk> ")
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return err
			}
			input = strings.TrimSpace(input)
			if input == "" {
				continue
			}
			line.AppendHistory(input)
			if input == ":quit" || input == ":q" {
				break
			}
			if err := runReplLine(c.App.Writer, dict, input); err != nil {
				fmt.Fprintln(c.App.Writer, "error:", err)
			}
		}

		// History loss is not worth aborting over.
		if err := os.MkdirAll(cfg.DataDir, 0o755); err == nil {
			if f, err := os.Create(histFile); err == nil {
				line.WriteHistory(f)
				f.Close()
			}
		}
		return nil
	},
}

func runReplLine(w io.Writer, dict *dictionary.Dictionary, input string) error {
	cmd, rest, _ := strings.Cut(input, " ")
	rest = strings.TrimSpace(rest)
	switch cmd {
	case ":help", ":h":
		printReplHelp(w)
		return nil
	case ":save", ":s":
		word, note, _ := strings.Cut(rest, " ")
		if word == "" {
			return errors.New("usage: :save WORD [NOTE]")
		}
		id, err := dict.SaveWord(word, strings.TrimSpace(note))
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "saved %s (#%d)\n", word, id)
		return nil
	case ":unsave", ":u":
		if rest == "" {
			return errors.New("usage: :unsave WORD")
		}
		if err := dict.RemoveSavedWord(rest); err != nil {
			return err
		}
		fmt.Fprintf(w, "removed %s\n", rest)
		return nil
	case ":words", ":w":
		words, err := dict.SavedWords()
		if err != nil {
			return err
		}
		if len(words) == 0 {
			fmt.Fprintln(w, "no saved words")
			return nil
		}
		tbl := table.New("Word", "Note", "Saved").WithWriter(w)
		for _, sw := range words {
			tbl.AddRow(sw.Literal, sw.Note, sw.CreatedAt.Format("2006-01-02"))
		}
		tbl.Print()
		return nil
	case ":stats":
		stats, err := dict.Stats()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%d kanji, %d readings, %d meanings (version %s)\n",
			stats.KanjiCount, stats.ReadingCount, stats.MeaningCount, stats.Version)
		return nil
	default:
		if strings.HasPrefix(cmd, ":") {
			return fmt.Errorf("unknown command %s", cmd)
		}
		return lookupLine(w, dict, input)
	}
}

func lookupLine(w io.Writer, dict *dictionary.Dictionary, input string) error {
	literals := tokenizer.ExtractKanji(input)
	if len(literals) == 0 {
		fmt.Fprintln(w, "no kanji in input")
		return nil
	}
	details, err := dict.LookupBatch(literals)
	if err != nil {
		return err
	}
	printKanji(w, details)
	reportMissing(w, literals, details)
	return nil
}

func printReplHelp(w io.Writer) {
	fmt.Fprint(w, `  TEXT           look up every kanji in TEXT
  :save WORD     bookmark a word, with an optional note after it
  :unsave WORD   drop a bookmark
  :words         list bookmarks
  :stats         dictionary record counts
  :quit          leave
`)
}
