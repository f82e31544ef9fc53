package db

import (
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Sardonyx001/whats-this-kanji/pkg/kanjidic"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// Ensure single connection to avoid separate in-memory DBs per connection.
	conn.SetMaxOpenConns(1)
	if err := Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func intp(v int) *int {
	return &v
}

// seedSunAndMoon stores two characters with readings and meanings, the way
// an import would: characters, then readings, then meanings.
func seedSunAndMoon(t *testing.T, conn *sql.DB) {
	t.Helper()
	chars := []kanjidic.Character{
		{Literal: "日", Grade: intp(1), StrokeCount: intp(4), Freq: intp(1), JLPT: intp(4)},
		{Literal: "月", Grade: intp(1), StrokeCount: intp(4), Freq: intp(23)},
	}
	for _, c := range chars {
		if err := InsertCharacter(conn, c); err != nil {
			t.Fatalf("insert character %s: %v", c.Literal, err)
		}
	}
	readings := []kanjidic.Reading{
		{Literal: "日", Type: kanjidic.ReadingOn, Text: "ニチ"},
		{Literal: "日", Type: kanjidic.ReadingOn, Text: "ジツ"},
		{Literal: "日", Type: kanjidic.ReadingKun, Text: "ひ"},
		{Literal: "月", Type: kanjidic.ReadingOn, Text: "ゲツ"},
		{Literal: "月", Type: kanjidic.ReadingKun, Text: "つき"},
	}
	for _, r := range readings {
		if err := InsertReading(conn, r); err != nil {
			t.Fatalf("insert reading %s: %v", r.Text, err)
		}
	}
	meanings := []kanjidic.Meaning{
		{Literal: "日", Text: "day"},
		{Literal: "日", Text: "sun"},
		{Literal: "月", Text: "month"},
		{Literal: "月", Text: "moon"},
	}
	for _, m := range meanings {
		if err := InsertMeaning(conn, m); err != nil {
			t.Fatalf("insert meaning %s: %v", m.Text, err)
		}
	}
}

func TestGetKanjiRoundTrip(t *testing.T) {
	conn := setupTestDB(t)
	seedSunAndMoon(t, conn)

	d, err := GetKanji(conn, "日")
	if err != nil {
		t.Fatalf("get kanji: %v", err)
	}
	if d == nil {
		t.Fatal("expected a result for 日")
	}
	if d.Character.Grade == nil || *d.Character.Grade != 1 {
		t.Errorf("grade = %v, want 1", d.Character.Grade)
	}
	if d.Character.StrokeCount == nil || *d.Character.StrokeCount != 4 {
		t.Errorf("strokeCount = %v, want 4", d.Character.StrokeCount)
	}
	wantOn := []string{"ニチ", "ジツ"}
	if len(d.OnReadings) != 2 || d.OnReadings[0] != wantOn[0] || d.OnReadings[1] != wantOn[1] {
		t.Errorf("on readings = %v, want %v", d.OnReadings, wantOn)
	}
	if len(d.KunReadings) != 1 || d.KunReadings[0] != "ひ" {
		t.Errorf("kun readings = %v, want [ひ]", d.KunReadings)
	}
	if len(d.Meanings) != 2 || d.Meanings[0] != "day" || d.Meanings[1] != "sun" {
		t.Errorf("meanings = %v, want [day sun]", d.Meanings)
	}
}

func TestGetKanjiNullFields(t *testing.T) {
	conn := setupTestDB(t)
	if err := InsertCharacter(conn, kanjidic.Character{Literal: "凛"}); err != nil {
		t.Fatalf("insert character: %v", err)
	}

	d, err := GetKanji(conn, "凛")
	if err != nil {
		t.Fatalf("get kanji: %v", err)
	}
	if d == nil {
		t.Fatal("expected a result for 凛")
	}
	if d.Character.Grade != nil || d.Character.StrokeCount != nil || d.Character.Freq != nil || d.Character.JLPT != nil {
		t.Errorf("expected all optional fields nil, got %+v", d.Character)
	}
	if d.OnReadings != nil || d.KunReadings != nil || d.Meanings != nil {
		t.Errorf("expected no readings or meanings, got %+v", d)
	}
}

func TestGetKanjiMissing(t *testing.T) {
	conn := setupTestDB(t)
	d, err := GetKanji(conn, "無")
	if err != nil {
		t.Fatalf("get kanji: %v", err)
	}
	if d != nil {
		t.Fatalf("expected nil for missing literal, got %+v", d)
	}
}

func TestGetKanjiReplacesByLiteral(t *testing.T) {
	conn := setupTestDB(t)
	if err := InsertCharacter(conn, kanjidic.Character{Literal: "本", Grade: intp(1)}); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := InsertCharacter(conn, kanjidic.Character{Literal: "本", Grade: intp(2)}); err != nil {
		t.Fatalf("second insert: %v", err)
	}
	n, err := CountKanji(conn)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 row after replace, got %d", n)
	}
	d, err := GetKanji(conn, "本")
	if err != nil {
		t.Fatalf("get kanji: %v", err)
	}
	if d.Character.Grade == nil || *d.Character.Grade != 2 {
		t.Errorf("grade = %v, want 2 after replace", d.Character.Grade)
	}
}

func TestGetKanjiBatch(t *testing.T) {
	conn := setupTestDB(t)
	seedSunAndMoon(t, conn)

	// Order preserved, duplicates collapsed, misses omitted.
	out, err := GetKanjiBatch(conn, []string{"月", "無", "日", "月"})
	if err != nil {
		t.Fatalf("get batch: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 results, got %d", len(out))
	}
	if out[0].Character.Literal != "月" || out[1].Character.Literal != "日" {
		t.Errorf("result order = [%s %s], want [月 日]", out[0].Character.Literal, out[1].Character.Literal)
	}
	if len(out[0].KunReadings) != 1 || out[0].KunReadings[0] != "つき" {
		t.Errorf("月 kun readings = %v, want [つき]", out[0].KunReadings)
	}
	if len(out[1].Meanings) != 2 {
		t.Errorf("日 meanings = %v, want 2 entries", out[1].Meanings)
	}
}

func TestGetKanjiBatchEmpty(t *testing.T) {
	conn := setupTestDB(t)
	out, err := GetKanjiBatch(conn, nil)
	if err != nil {
		t.Fatalf("get batch: %v", err)
	}
	if out != nil {
		t.Fatalf("expected nil result for empty input, got %+v", out)
	}
}

func TestLookupNormalizesCompatibilityIdeograph(t *testing.T) {
	conn := setupTestDB(t)
	if err := InsertCharacter(conn, kanjidic.Character{Literal: "神"}); err != nil {
		t.Fatalf("insert character: %v", err)
	}

	// U+FA19 is the compatibility form of 神 (U+795E); NFC folds it.
	d, err := GetKanji(conn, "神")
	if err != nil {
		t.Fatalf("get kanji: %v", err)
	}
	if d == nil || d.Character.Literal != "神" {
		t.Fatalf("expected compatibility lookup to find 神, got %+v", d)
	}
}

func TestDeleteDictionary(t *testing.T) {
	conn := setupTestDB(t)
	seedSunAndMoon(t, conn)
	if err := SetMetadata(conn, MetaInitialized, MetaTrue); err != nil {
		t.Fatalf("set metadata: %v", err)
	}
	if _, err := SaveWord(conn, "日", "first kanji"); err != nil {
		t.Fatalf("save word: %v", err)
	}

	if err := DeleteDictionary(conn); err != nil {
		t.Fatalf("delete dictionary: %v", err)
	}

	stats, err := GetStats(conn)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.KanjiCount != 0 || stats.ReadingCount != 0 || stats.MeaningCount != 0 {
		t.Errorf("expected empty dataset, got %+v", stats)
	}
	flag, err := GetMetadata(conn, MetaInitialized)
	if err != nil {
		t.Fatalf("get metadata: %v", err)
	}
	if flag != "" {
		t.Errorf("initialized flag = %q, want cleared", flag)
	}

	saved, err := ListSavedWords(conn)
	if err != nil {
		t.Fatalf("list saved words: %v", err)
	}
	if len(saved) != 1 || saved[0].Literal != "日" {
		t.Errorf("saved words = %+v, want 日 to survive the clear", saved)
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	conn := setupTestDB(t)

	v, err := GetMetadata(conn, MetaVersion)
	if err != nil {
		t.Fatalf("get absent metadata: %v", err)
	}
	if v != "" {
		t.Fatalf("absent key = %q, want empty", v)
	}

	if err := SetMetadata(conn, MetaVersion, "2025-01"); err != nil {
		t.Fatalf("set metadata: %v", err)
	}
	if err := SetMetadata(conn, MetaVersion, "2025-02"); err != nil {
		t.Fatalf("update metadata: %v", err)
	}
	v, err = GetMetadata(conn, MetaVersion)
	if err != nil {
		t.Fatalf("get metadata: %v", err)
	}
	if v != "2025-02" {
		t.Fatalf("version = %q, want 2025-02", v)
	}
}

func TestGetStats(t *testing.T) {
	conn := setupTestDB(t)
	seedSunAndMoon(t, conn)
	if err := SetMetadata(conn, MetaVersion, "2025-01"); err != nil {
		t.Fatalf("set metadata: %v", err)
	}

	stats, err := GetStats(conn)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := Stats{KanjiCount: 2, ReadingCount: 5, MeaningCount: 4, Version: "2025-01"}
	if stats != want {
		t.Fatalf("stats = %+v, want %+v", stats, want)
	}
}

func TestInsertReadingRejectsUnknownType(t *testing.T) {
	conn := setupTestDB(t)
	err := InsertReading(conn, kanjidic.Reading{Literal: "日", Type: "pinyin", Text: "ri4"})
	if err == nil {
		t.Fatal("expected error for unknown reading type")
	}
}

func TestDeleteSavedWordNotFound(t *testing.T) {
	conn := setupTestDB(t)
	err := DeleteSavedWord(conn, "日")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveWordUpsert(t *testing.T) {
	conn := setupTestDB(t)

	id1, err := SaveWord(conn, "日", "first")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	id2, err := SaveWord(conn, "日", "")
	if err != nil {
		t.Fatalf("save again: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected same id, got %d and %d", id1, id2)
	}

	saved, err := ListSavedWords(conn)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(saved) != 1 {
		t.Fatalf("expected 1 saved word, got %d", len(saved))
	}
	if saved[0].Note != "first" {
		t.Errorf("note = %q, want empty update to keep %q", saved[0].Note, "first")
	}
	if saved[0].CreatedAt.IsZero() {
		t.Errorf("created_at not populated: %+v", saved[0])
	}

	if err := DeleteSavedWord(conn, "日"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	saved, err = ListSavedWords(conn)
	if err != nil {
		t.Fatalf("list after delete: %v", err)
	}
	if len(saved) != 0 {
		t.Fatalf("expected no saved words, got %+v", saved)
	}
}
