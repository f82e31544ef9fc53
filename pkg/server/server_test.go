package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/Sardonyx001/whats-this-kanji/pkg/db"
	"github.com/Sardonyx001/whats-this-kanji/pkg/dictionary"
	"github.com/Sardonyx001/whats-this-kanji/pkg/kanjidic"
)

func intp(v int) *int { return &v }

// newServer builds a server over a temp store. With seed set the store is
// populated with two characters and stamped ready.
func newServer(t *testing.T, seed bool) *Server {
	t.Helper()
	h, err := db.Open(filepath.Join(t.TempDir(), "dict.db"))
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })

	if seed {
		conn := h.DB()
		require.NoError(t, db.InsertCharacter(conn, kanjidic.Character{
			Literal: "日", Grade: intp(1), StrokeCount: intp(4), Freq: intp(1), JLPT: intp(4),
		}))
		require.NoError(t, db.InsertCharacter(conn, kanjidic.Character{Literal: "月", Grade: intp(1), StrokeCount: intp(4)}))
		for _, r := range []kanjidic.Reading{
			{Literal: "日", Type: kanjidic.ReadingOn, Text: "ニチ"},
			{Literal: "日", Type: kanjidic.ReadingKun, Text: "ひ"},
			{Literal: "月", Type: kanjidic.ReadingOn, Text: "ゲツ"},
		} {
			require.NoError(t, db.InsertReading(conn, r))
		}
		for _, m := range []kanjidic.Meaning{
			{Literal: "日", Text: "day"},
			{Literal: "日", Text: "sun"},
			{Literal: "月", Text: "moon"},
		} {
			require.NoError(t, db.InsertMeaning(conn, m))
		}
		require.NoError(t, db.SetMetadata(conn, db.MetaVersion, dictionary.CurrentVersion))
		require.NoError(t, db.SetMetadata(conn, db.MetaInitialized, db.MetaTrue))
	}

	dict := dictionary.New(h, nil, nil)
	return New(dict, "127.0.0.1:0", nil)
}

func doRequest(t *testing.T, h http.Handler, method, target string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	h := newServer(t, false).Handler()
	rec := doRequest(t, h, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestReadinessGate(t *testing.T) {
	h := newServer(t, false).Handler()

	rec := doRequest(t, h, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	// Dictionary reads are gated...
	for _, target := range []string{"/v1/stats", "/v1/kanji?literals=日", "/v1/kanji/" + url.PathEscape("日")} {
		rec := doRequest(t, h, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "target %s", target)
	}

	// ...saved words are not.
	rec = doRequest(t, h, http.MethodPost, "/v1/saved-words", strings.NewReader(`{"literal":"勉強"}`))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestReadyzWhenReady(t *testing.T) {
	h := newServer(t, true).Handler()
	rec := doRequest(t, h, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestKanjiLookup(t *testing.T) {
	h := newServer(t, true).Handler()

	rec := doRequest(t, h, http.MethodGet, "/v1/kanji/"+url.PathEscape("日"), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got kanjiResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "日", got.Literal)
	require.NotNil(t, got.Grade)
	assert.Equal(t, 1, *got.Grade)
	assert.Equal(t, []string{"ニチ"}, got.OnReadings)
	assert.Equal(t, []string{"ひ"}, got.KunReadings)
	assert.Equal(t, []string{"day", "sun"}, got.Meanings)
}

func TestKanjiLookupNotFound(t *testing.T) {
	h := newServer(t, true).Handler()
	rec := doRequest(t, h, http.MethodGet, "/v1/kanji/"+url.PathEscape("犬"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestKanjiBatch(t *testing.T) {
	h := newServer(t, true).Handler()

	// A bare run of text works the same as comma-separated literals;
	// unknown kanji are omitted from the response.
	target := "/v1/kanji?literals=" + url.QueryEscape("月日犬")
	rec := doRequest(t, h, http.MethodGet, target, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string][]kanjiResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	kanji := got["kanji"]
	require.Len(t, kanji, 2)
	assert.Equal(t, "月", kanji[0].Literal)
	assert.Equal(t, "日", kanji[1].Literal)
}

func TestKanjiBatchMissingParam(t *testing.T) {
	h := newServer(t, true).Handler()
	rec := doRequest(t, h, http.MethodGet, "/v1/kanji", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStats(t *testing.T) {
	h := newServer(t, true).Handler()
	rec := doRequest(t, h, http.MethodGet, "/v1/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got statsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, statsResponse{KanjiCount: 2, ReadingCount: 3, MeaningCount: 3, Version: dictionary.CurrentVersion}, got)
}

func TestSavedWordsRoundTrip(t *testing.T) {
	h := newServer(t, true).Handler()

	rec := doRequest(t, h, http.MethodPost, "/v1/saved-words", strings.NewReader(`{"literal":"日本","note":"seen in the news"}`))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created map[string]int64
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Positive(t, created["id"])

	rec = doRequest(t, h, http.MethodGet, "/v1/saved-words", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed map[string][]savedWordResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&listed))
	words := listed["saved_words"]
	require.Len(t, words, 1)
	assert.Equal(t, "日本", words[0].Literal)
	assert.Equal(t, "seen in the news", words[0].Note)

	rec = doRequest(t, h, http.MethodDelete, "/v1/saved-words/"+url.PathEscape("日本"), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, h, http.MethodDelete, "/v1/saved-words/"+url.PathEscape("日本"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSaveWordRejectsBadBody(t *testing.T) {
	h := newServer(t, true).Handler()

	rec := doRequest(t, h, http.MethodPost, "/v1/saved-words", strings.NewReader("not json"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, h, http.MethodPost, "/v1/saved-words", strings.NewReader(`{"literal":"  "}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequestIDHeader(t *testing.T) {
	h := newServer(t, false).Handler()

	rec := doRequest(t, h, http.MethodGet, "/healthz", nil)
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(HeaderRequestID, "client-chosen")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "client-chosen", rec.Header().Get(HeaderRequestID))
}

func TestRateLimit(t *testing.T) {
	s := newServer(t, false)
	s.limiter = rate.NewLimiter(rate.Every(time.Hour), 1)
	h := s.Handler()

	rec := doRequest(t, h, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, h, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestSplitLiterals(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"comma_separated", "日,月", []string{"日", "月"}},
		{"bare_text", "日月", []string{"日", "月"}},
		{"duplicates", "日,日月", []string{"日", "月"}},
		{"spaces", " 日 , 月 ", []string{"日", "月"}},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitLiterals(tt.raw))
		})
	}
}
