package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/Sardonyx001/whats-this-kanji/pkg/kanjidic"
)

// Metadata keys written by the ingestion pipeline and read by the ready
// check.
const (
	MetaVersion     = "kanjidic2_version"
	MetaInitialized = "dictionary_initialized"
	MetaImportID    = "last_import_id"
	MetaImportAt    = "last_import_at"
)

// MetaTrue is the value stored under MetaInitialized once a dataset has been
// stored completely.
const MetaTrue = "true"

// ErrNotFound is returned by deletes that matched no row.
var ErrNotFound = errors.New("not found")

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// InsertCharacter inserts or replaces one character row by literal.
func InsertCharacter(db DBExecutor, c kanjidic.Character) error {
	if c.Literal == "" {
		return fmt.Errorf("character literal must be non-empty")
	}
	_, err := db.Exec(
		`INSERT OR REPLACE INTO kanji (literal, grade, strokeCount, freq, jlpt) VALUES (?, ?, ?, ?, ?)`,
		c.Literal, c.Grade, c.StrokeCount, c.Freq, c.JLPT,
	)
	if err != nil {
		return fmt.Errorf("insert kanji %s: %w", c.Literal, err)
	}
	return nil
}

// InsertReading appends one reading row. Row ids are monotonic, so insertion
// order is the order readings come back out in.
func InsertReading(db DBExecutor, r kanjidic.Reading) error {
	if r.Literal == "" || r.Text == "" {
		return fmt.Errorf("reading literal and text must be non-empty")
	}
	if r.Type != kanjidic.ReadingOn && r.Type != kanjidic.ReadingKun {
		return fmt.Errorf("reading type %q is not %s or %s", r.Type, kanjidic.ReadingOn, kanjidic.ReadingKun)
	}
	_, err := db.Exec(
		`INSERT INTO readings (literal, readingType, reading) VALUES (?, ?, ?)`,
		r.Literal, r.Type, r.Text,
	)
	if err != nil {
		return fmt.Errorf("insert reading for %s: %w", r.Literal, err)
	}
	return nil
}

// InsertMeaning appends one meaning row.
func InsertMeaning(db DBExecutor, m kanjidic.Meaning) error {
	if m.Literal == "" || m.Text == "" {
		return fmt.Errorf("meaning literal and text must be non-empty")
	}
	_, err := db.Exec(
		`INSERT INTO meanings (literal, meaning) VALUES (?, ?)`,
		m.Literal, m.Text,
	)
	if err != nil {
		return fmt.Errorf("insert meaning for %s: %w", m.Literal, err)
	}
	return nil
}

// DeleteDictionary removes every dictionary record: characters, readings,
// meanings, and the pipeline metadata that marks a dataset complete. Clearing
// the metadata too means a store caught between a clear and a finished import
// reads as uninitialized. Saved words are user data and stay. Run this inside
// a transaction to get all-or-nothing behavior.
func DeleteDictionary(db DBExecutor) error {
	for _, q := range []string{
		`DELETE FROM meanings`,
		`DELETE FROM readings`,
		`DELETE FROM kanji`,
		`DELETE FROM dictionary_metadata`,
	} {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("clearing dictionary: %w", err)
		}
	}
	return nil
}

// SetMetadata inserts or updates one metadata key.
func SetMetadata(db DBExecutor, key, value string) error {
	if key == "" {
		return fmt.Errorf("metadata key must be non-empty")
	}
	_, err := db.Exec(
		`INSERT INTO dictionary_metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set metadata %s: %w", key, err)
	}
	return nil
}

// GetMetadata returns the value stored under key, or "" when the key is
// absent.
func GetMetadata(db DBExecutor, key string) (string, error) {
	var value string
	err := db.QueryRow(`SELECT value FROM dictionary_metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get metadata %s: %w", key, err)
	}
	return value, nil
}

// CountKanji returns the number of stored characters.
func CountKanji(db DBExecutor) (int, error) {
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM kanji`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count kanji: %w", err)
	}
	return n, nil
}

// GetStats returns record counts per kind plus the stored dictionary
// version.
func GetStats(db DBExecutor) (Stats, error) {
	var s Stats
	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM kanji`, &s.KanjiCount},
		{`SELECT COUNT(*) FROM readings`, &s.ReadingCount},
		{`SELECT COUNT(*) FROM meanings`, &s.MeaningCount},
	}
	for _, c := range counts {
		if err := db.QueryRow(c.query).Scan(c.dest); err != nil {
			return Stats{}, fmt.Errorf("collecting stats: %w", err)
		}
	}
	version, err := GetMetadata(db, MetaVersion)
	if err != nil {
		return Stats{}, err
	}
	s.Version = version
	return s, nil
}

// normalizeLiteral folds a query literal to NFC so that compatibility
// ideographs and decomposed input match the composed forms the dictionary
// stores.
func normalizeLiteral(literal string) string {
	return norm.NFC.String(literal)
}

// GetKanji returns the aggregate for one literal, or nil when the literal is
// not in the dictionary.
func GetKanji(db DBExecutor, literal string) (*KanjiDetail, error) {
	literal = normalizeLiteral(literal)
	var d KanjiDetail
	err := db.QueryRow(
		`SELECT literal, grade, strokeCount, freq, jlpt FROM kanji WHERE literal = ?`, literal,
	).Scan(&d.Character.Literal, &d.Character.Grade, &d.Character.StrokeCount, &d.Character.Freq, &d.Character.JLPT)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup kanji %s: %w", literal, err)
	}

	dest := map[string]*KanjiDetail{literal: &d}
	if err := attachReadings(db, dest, literal); err != nil {
		return nil, err
	}
	if err := attachMeanings(db, dest, literal); err != nil {
		return nil, err
	}
	return &d, nil
}

// GetKanjiBatch returns aggregates for the given literals in input order.
// Duplicate literals collapse to their first occurrence and literals not in
// the dictionary are omitted from the result.
func GetKanjiBatch(db DBExecutor, literals []string) ([]KanjiDetail, error) {
	var order []string
	seen := make(map[string]bool, len(literals))
	for _, lit := range literals {
		lit = normalizeLiteral(lit)
		if lit == "" || seen[lit] {
			continue
		}
		seen[lit] = true
		order = append(order, lit)
	}
	if len(order) == 0 {
		return nil, nil
	}

	args := make([]interface{}, len(order))
	for i, lit := range order {
		args[i] = lit
	}
	in := placeholders(len(order))

	rows, err := db.Query(
		`SELECT literal, grade, strokeCount, freq, jlpt FROM kanji WHERE literal IN (`+in+`)`, args...,
	)
	if err != nil {
		return nil, fmt.Errorf("lookup kanji batch: %w", err)
	}
	defer rows.Close()

	found := make(map[string]*KanjiDetail, len(order))
	for rows.Next() {
		var d KanjiDetail
		if err := rows.Scan(&d.Character.Literal, &d.Character.Grade, &d.Character.StrokeCount, &d.Character.Freq, &d.Character.JLPT); err != nil {
			return nil, fmt.Errorf("scan kanji row: %w", err)
		}
		found[d.Character.Literal] = &d
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lookup kanji batch: %w", err)
	}

	if len(found) > 0 {
		if err := attachReadings(db, found, args...); err != nil {
			return nil, err
		}
		if err := attachMeanings(db, found, args...); err != nil {
			return nil, err
		}
	}

	out := make([]KanjiDetail, 0, len(found))
	for _, lit := range order {
		if d, ok := found[lit]; ok {
			out = append(out, *d)
		}
	}
	return out, nil
}

// attachReadings fills the reading slices of every detail in dest, keyed by
// literal. The id ordering reproduces the order readings were inserted in.
func attachReadings(db DBExecutor, dest map[string]*KanjiDetail, literals ...interface{}) error {
	rows, err := db.Query(
		`SELECT literal, readingType, reading FROM readings
		 WHERE literal IN (`+placeholders(len(literals))+`) ORDER BY id`, literals...,
	)
	if err != nil {
		return fmt.Errorf("lookup readings: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var literal, rtype, text string
		if err := rows.Scan(&literal, &rtype, &text); err != nil {
			return fmt.Errorf("scan reading row: %w", err)
		}
		d, ok := dest[literal]
		if !ok {
			continue
		}
		switch rtype {
		case kanjidic.ReadingOn:
			d.OnReadings = append(d.OnReadings, text)
		case kanjidic.ReadingKun:
			d.KunReadings = append(d.KunReadings, text)
		}
	}
	return rows.Err()
}

// attachMeanings fills the meaning slices of every detail in dest, keyed by
// literal.
func attachMeanings(db DBExecutor, dest map[string]*KanjiDetail, literals ...interface{}) error {
	rows, err := db.Query(
		`SELECT literal, meaning FROM meanings
		 WHERE literal IN (`+placeholders(len(literals))+`) ORDER BY id`, literals...,
	)
	if err != nil {
		return fmt.Errorf("lookup meanings: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var literal, text string
		if err := rows.Scan(&literal, &text); err != nil {
			return fmt.Errorf("scan meaning row: %w", err)
		}
		if d, ok := dest[literal]; ok {
			d.Meanings = append(d.Meanings, text)
		}
	}
	return rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
