package db

import (
	"fmt"
	"strings"
)

// SaveWord bookmarks a literal, returning the row id. Saving an already
// saved literal keeps the row and updates its note; an empty note leaves the
// existing one in place.
func SaveWord(db DBExecutor, literal, note string) (int64, error) {
	trimmed := strings.TrimSpace(literal)
	if trimmed == "" {
		return 0, fmt.Errorf("literal must be non-empty")
	}

	var id int64
	err := db.QueryRow(
		`INSERT INTO saved_words (literal, note) VALUES (?, ?)
		 ON CONFLICT(literal) DO UPDATE SET
		   note = COALESCE(NULLIF(excluded.note, ''), saved_words.note)
		 RETURNING id`,
		trimmed, note,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("save word %s: %w", trimmed, err)
	}
	return id, nil
}

// ListSavedWords returns every bookmark, oldest first.
func ListSavedWords(db DBExecutor) ([]SavedWord, error) {
	rows, err := db.Query(`SELECT id, literal, note, created_at FROM saved_words ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list saved words: %w", err)
	}
	defer rows.Close()

	var out []SavedWord
	for rows.Next() {
		var w SavedWord
		if err := rows.Scan(&w.ID, &w.Literal, &w.Note, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan saved word: %w", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list saved words: %w", err)
	}
	return out, nil
}

// DeleteSavedWord removes the bookmark for literal. It returns ErrNotFound
// when nothing was saved under that literal.
func DeleteSavedWord(db DBExecutor, literal string) error {
	res, err := db.Exec(`DELETE FROM saved_words WHERE literal = ?`, literal)
	if err != nil {
		return fmt.Errorf("delete saved word %s: %w", literal, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete saved word %s: %w", literal, err)
	}
	if n == 0 {
		return fmt.Errorf("saved word %s: %w", literal, ErrNotFound)
	}
	return nil
}
