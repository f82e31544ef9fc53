package db

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Sardonyx001/whats-this-kanji/pkg/kanjidic"
)

// TestMigrateCreatesSchema verifies a fresh database ends up with every
// table the store functions talk to, including the camelCase column names
// the lookup queries depend on.
func TestMigrateCreatesSchema(t *testing.T) {
	conn := setupTestDB(t)

	for _, table := range []string{"kanji", "readings", "meanings", "dictionary_metadata", "saved_words"} {
		var name string
		err := conn.QueryRow(
			`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table,
		).Scan(&name)
		if err != nil {
			t.Fatalf("table %s missing: %v", table, err)
		}
	}

	cols := tableColumns(t, conn, "kanji")
	for _, col := range []string{"literal", "grade", "strokeCount", "freq", "jlpt"} {
		if !cols[col] {
			t.Errorf("kanji table missing column %s, have %v", col, cols)
		}
	}
	if cols := tableColumns(t, conn, "readings"); !cols["readingType"] {
		t.Errorf("readings table missing readingType, have %v", cols)
	}
}

func TestMigrateIdempotent(t *testing.T) {
	conn := setupTestDB(t)
	if err := Migrate(conn); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if err := InsertCharacter(conn, kanjidic.Character{Literal: "一", StrokeCount: intp(1)}); err != nil {
		t.Fatalf("insert after remigration: %v", err)
	}
	if err := Migrate(conn); err != nil {
		t.Fatalf("migrate with data present: %v", err)
	}
	n, err := CountKanji(conn)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected data to survive remigration, got %d rows", n)
	}
}

func tableColumns(t *testing.T, conn *sql.DB, table string) map[string]bool {
	t.Helper()
	rows, err := conn.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		t.Fatalf("table_info %s: %v", table, err)
	}
	defer rows.Close()
	cols := map[string]bool{}
	for rows.Next() {
		var cid, notnull, pk int
		var name, ctype string
		var dflt interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			t.Fatalf("scan column: %v", err)
		}
		cols[name] = true
	}
	return cols
}
