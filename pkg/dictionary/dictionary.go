// Package dictionary assembles the kanji store end to end: acquiring a
// dataset from an ordered list of sources (bundled snapshot first, network
// rebuild second), verifying the result, and answering lookups against it.
//
// Initialization streams its progress as Status values so callers can render
// the copy, download, parse, and store stages as they happen.
package dictionary

import (
	"context"
	"log/slog"

	"github.com/Sardonyx001/whats-this-kanji/pkg/db"
)

// Dictionary is the public face of the kanji store: initialization on one
// side, lookups on the other. The caller owns the handle's lifecycle.
type Dictionary struct {
	handle *db.Handle
	ini    *Initializer
}

// New creates a dictionary over an opened store with the given acquisition
// sources.
func New(h *db.Handle, sources []Source, logger *slog.Logger) *Dictionary {
	ini := NewInitializer(h, sources...)
	ini.Logger = logger
	return &Dictionary{handle: h, ini: ini}
}

// Initialize builds or rebuilds the dataset, streaming progress. See
// Initializer.Initialize for the concurrency contract.
func (d *Dictionary) Initialize(ctx context.Context) (<-chan Status, error) {
	return d.ini.Initialize(ctx)
}

// Ready reports whether the store holds a complete, current, non-empty
// dataset. Read paths should be gated on this; lookups against a store that
// is mid-replacement are undefined.
func (d *Dictionary) Ready() (bool, error) {
	return ready(d.handle.DB(), d.ini.version())
}

// Version returns the stored dictionary version, or "" when none is
// recorded.
func (d *Dictionary) Version() (string, error) {
	return db.GetMetadata(d.handle.DB(), db.MetaVersion)
}

// Stats returns record counts per kind plus the stored version.
func (d *Dictionary) Stats() (db.Stats, error) {
	return db.GetStats(d.handle.DB())
}

// Lookup returns the aggregate entry for one literal, or nil when the
// dictionary does not contain it.
func (d *Dictionary) Lookup(literal string) (*db.KanjiDetail, error) {
	return db.GetKanji(d.handle.DB(), literal)
}

// LookupBatch returns aggregates for the given literals in input order,
// omitting literals the dictionary does not contain.
func (d *Dictionary) LookupBatch(literals []string) ([]db.KanjiDetail, error) {
	return db.GetKanjiBatch(d.handle.DB(), literals)
}

// SaveWord bookmarks a literal with an optional note.
func (d *Dictionary) SaveWord(literal, note string) (int64, error) {
	return db.SaveWord(d.handle.DB(), literal, note)
}

// SavedWords lists every bookmark, oldest first.
func (d *Dictionary) SavedWords() ([]db.SavedWord, error) {
	return db.ListSavedWords(d.handle.DB())
}

// RemoveSavedWord deletes a bookmark; db.ErrNotFound when absent.
func (d *Dictionary) RemoveSavedWord(literal string) error {
	return db.DeleteSavedWord(d.handle.DB(), literal)
}
