// Package tokenizer segments Japanese text with kagome's morphological
// analyzer and extracts the kanji worth looking up.
package tokenizer

import (
	"strings"
	"unicode"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// Token is a single analyzed unit of text.
type Token struct {
	Surface string // the text as it appears, e.g. "読ん"
	Base    string // the dictionary form, e.g. "読む"
	Reading string // katakana pronunciation, e.g. "ヨン"
}

// IPA dictionary feature indexes for base form and reading.
const (
	featBase    = 6
	featReading = 7
)

// Tokenizer segments Japanese text. Construction loads the IPA dictionary,
// which is expensive, so build one and reuse it.
type Tokenizer struct {
	t *tokenizer.Tokenizer
}

// New creates a tokenizer backed by the bundled IPA dictionary.
func New() (*Tokenizer, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &Tokenizer{t: t}, nil
}

// Tokenize splits text into tokens carrying base forms and readings where
// the dictionary knows them. Dummy and whitespace-only tokens are dropped.
func (tk *Tokenizer) Tokenize(text string) []Token {
	var out []Token
	for _, t := range tk.t.Tokenize(text) {
		if t.Class == tokenizer.DUMMY || strings.TrimSpace(t.Surface) == "" {
			continue
		}
		features := t.Features()
		tok := Token{Surface: t.Surface, Base: t.Surface}
		if len(features) > featBase && features[featBase] != "*" {
			tok.Base = features[featBase]
		}
		if len(features) > featReading && features[featReading] != "*" {
			tok.Reading = features[featReading]
		}
		out = append(out, tok)
	}
	return out
}

// ExtractKanji returns the unique kanji in text, in first-seen order.
// Non-ideograph runes (kana, latin, punctuation) are ignored.
func ExtractKanji(text string) []string {
	seen := make(map[rune]bool)
	var out []string
	for _, r := range text {
		if !unicode.Is(unicode.Han, r) || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, string(r))
	}
	return out
}

// ToHiragana converts katakana to hiragana, leaving other runes untouched.
// Kagome reports readings in katakana while kun readings in the dictionary
// are written in hiragana.
func ToHiragana(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		if r >= 0x30A1 && r <= 0x30F6 {
			runes[i] = r - 0x60
		}
	}
	return string(runes)
}
