package db

import (
	"time"

	"github.com/Sardonyx001/whats-this-kanji/pkg/kanjidic"
)

// KanjiDetail is the denormalized aggregate served by lookups: one character
// with its readings split by type and its glosses, each in insertion order.
type KanjiDetail struct {
	Character   kanjidic.Character
	OnReadings  []string
	KunReadings []string
	Meanings    []string
}

// Stats summarizes the stored dataset.
type Stats struct {
	KanjiCount   int
	ReadingCount int
	MeaningCount int
	Version      string
}

// SavedWord is a user bookmark. Saved words live in the same database file
// as the dictionary but belong to the user: dataset replacement never drops
// them.
type SavedWord struct {
	ID        int64
	Literal   string
	Note      string
	CreatedAt time.Time
}
