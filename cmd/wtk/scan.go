package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/rodaine/table"
	"github.com/urfave/cli/v2"

	"github.com/Sardonyx001/whats-this-kanji/pkg/config"
	"github.com/Sardonyx001/whats-this-kanji/pkg/tokenizer"
)

const maxBodySize = 10 * 1024 * 1024 // cap on untrusted page bodies

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var scanCommand = &cli.Command{
	Name:      "scan",
	Usage:     "list the kanji and words of an article or text file",
	ArgsUsage: "URL|FILE",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:    "top",
			Aliases: []string{"n"},
			Usage:   "number of words to show in the frequency table",
			Value:   20,
		},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return errors.New("scan needs a URL or file path")
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

		text, err := readArticle(c.Context, cfg, c.Args().First())
		if err != nil {
			return err
		}

		tok, err := tokenizer.New()
		if err != nil {
			return err
		}

		literals := tokenizer.ExtractKanji(text)
		if len(literals) == 0 {
			fmt.Fprintln(c.App.Writer, "no kanji found")
			return nil
		}
		details, err := dict.LookupBatch(literals)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "%d distinct kanji, %d in dictionary\n", len(literals), len(details))
		printKanji(c.App.Writer, details)

		words := tallyWords(tok.Tokenize(text))
		if top := c.Int("top"); len(words) > top {
			words = words[:top]
		}
		if len(words) > 0 {
			fmt.Fprintln(c.App.Writer)
			tbl := table.New("Word", "Reading", "Count").WithWriter(c.App.Writer)
			for _, wc := range words {
				tbl.AddRow(wc.base, wc.reading, wc.count)
			}
			tbl.Print()
		}
		return nil
	},
}

// readArticle turns the argument into plain text: remote URLs and local
// HTML files go through article extraction, anything else is read as-is.
func readArticle(ctx context.Context, cfg config.Config, arg string) (string, error) {
	if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
		return fetchArticle(ctx, arg, cfg.FetchTimeout)
	}
	raw, err := os.ReadFile(arg)
	if err != nil {
		return "", err
	}
	switch strings.ToLower(filepath.Ext(arg)) {
	case ".html", ".htm":
		return extractText(raw, &url.URL{Scheme: "file", Path: "/" + filepath.Base(arg)})
	default:
		return string(raw), nil
	}
}

func fetchArticle(ctx context.Context, rawURL string, timeout time.Duration) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	// Some news sites refuse requests without a browser User-Agent.
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ja,en;q=0.8")

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", err
	}
	if int64(len(body)) >= int64(maxBodySize) {
		return "", fmt.Errorf("page exceeds the %d byte limit", maxBodySize)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	return extractText(body, u)
}

func extractText(raw []byte, u *url.URL) (string, error) {
	raw = stripRuby(raw)
	article, err := readability.FromReader(bytes.NewReader(raw), u)
	if err != nil {
		return "", fmt.Errorf("extract article: %w", err)
	}
	return article.TextContent, nil
}

var (
	reRT = regexp.MustCompile(`(?si)<rt\b[^>]*>.*?</rt>`)
	reRP = regexp.MustCompile(`(?si)<rp\b[^>]*>.*?</rp>`)
)

// stripRuby removes <rt> and <rp> furigana annotations so a word does not
// appear twice in the extracted text, once in kanji and once in kana.
func stripRuby(html []byte) []byte {
	html = reRT.ReplaceAll(html, nil)
	html = reRP.ReplaceAll(html, nil)
	return html
}

type wordCount struct {
	base    string
	reading string
	count   int
}

// tallyWords counts kanji-bearing base forms, most frequent first. Ties keep
// document order.
func tallyWords(tokens []tokenizer.Token) []wordCount {
	counts := make(map[string]*wordCount)
	var order []string
	for _, t := range tokens {
		if len(tokenizer.ExtractKanji(t.Base)) == 0 {
			continue
		}
		wc, ok := counts[t.Base]
		if !ok {
			wc = &wordCount{base: t.Base, reading: tokenizer.ToHiragana(t.Reading)}
			counts[t.Base] = wc
			order = append(order, t.Base)
		}
		wc.count++
	}
	out := make([]wordCount, 0, len(order))
	for _, base := range order {
		out = append(out, *counts[base])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].count > out[j].count })
	return out
}
