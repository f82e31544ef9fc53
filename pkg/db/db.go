// Package db owns the sqlite dictionary store: schema migrations, the
// connection lifecycle including whole-file replacement, and the record-level
// read and write functions the rest of the application goes through.
package db

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/natefinch/atomic"
)

// connParams tunes every connection: WAL keeps readers working during batch
// imports and the busy timeout rides out short write contention.
const connParams = "?_busy_timeout=5000&_journal_mode=WAL"

// Handle owns the dictionary database file: it opens and migrates it, hands
// out the live connection, and can swap the whole file for a new payload.
// Components hold the *Handle and fetch the connection per operation; a
// *sql.DB kept across a Replace points at a closed pool.
type Handle struct {
	path string

	mu   sync.RWMutex
	conn *sql.DB
}

// Open opens the sqlite database at path, creating the file and its parent
// directory as needed, and brings the schema up to date.
func Open(path string) (*Handle, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	conn, err := open(path)
	if err != nil {
		return nil, err
	}
	return &Handle{path: path, conn: conn}, nil
}

func open(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite3", path+connParams)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	if err := Migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating database %s: %w", path, err)
	}
	return conn, nil
}

// DB returns the live connection. The pointer is valid until the next
// Replace; grab it once per operation rather than caching it.
func (h *Handle) DB() *sql.DB {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.conn
}

// Path returns the database file path.
func (h *Handle) Path() string {
	return h.path
}

// Close closes the underlying connection.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conn.Close()
}

// Replace swaps the database file for the payload read from r and reopens on
// the result. Saved words are the user's data, not the dictionary's, so they
// are carried across the swap; everything else afterwards is whatever the
// payload contains.
//
// The current connection is closed first so sqlite checkpoints and releases
// the file, then the payload is written to a temporary file and renamed into
// place. A payload that cannot even be written leaves the previous database
// untouched and reopened. A payload that was written but does not open as a
// migratable sqlite database is discarded again, and the handle reopens on a
// fresh empty store so a later import can still proceed.
func (h *Handle) Replace(r io.Reader) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	saved, err := ListSavedWords(h.conn)
	if err != nil {
		return fmt.Errorf("collecting saved words before replace: %w", err)
	}

	if err := h.conn.Close(); err != nil {
		return fmt.Errorf("closing database before replace: %w", err)
	}

	if err := atomic.WriteFile(h.path, r); err != nil {
		if conn, reopenErr := open(h.path); reopenErr == nil {
			h.conn = conn
		}
		return fmt.Errorf("writing database payload: %w", err)
	}

	// A clean close leaves no WAL sidecars, but a crashed predecessor
	// might have; they belong to the old file and would poison the new one.
	os.Remove(h.path + "-wal")
	os.Remove(h.path + "-shm")

	conn, err := open(h.path)
	if err != nil {
		os.Remove(h.path)
		fresh, freshErr := open(h.path)
		if freshErr != nil {
			return fmt.Errorf("recovering from bad payload: %w", freshErr)
		}
		h.conn = fresh
		_ = restoreSavedWords(fresh, saved)
		return fmt.Errorf("opening database payload: %w", err)
	}
	h.conn = conn

	if err := restoreSavedWords(conn, saved); err != nil {
		return fmt.Errorf("restoring saved words after replace: %w", err)
	}
	return nil
}

// restoreSavedWords reinserts bookmarks into a freshly installed database,
// keeping their original timestamps. Literals the payload already carries
// win.
func restoreSavedWords(ex DBExecutor, words []SavedWord) error {
	for _, w := range words {
		_, err := ex.Exec(
			`INSERT OR IGNORE INTO saved_words (literal, note, created_at) VALUES (?, ?, ?)`,
			w.Literal, w.Note, w.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("restore saved word %s: %w", w.Literal, err)
		}
	}
	return nil
}
