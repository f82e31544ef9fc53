package server

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/Sardonyx001/whats-this-kanji/pkg/db"
)

// maxBatchLiterals caps one batch lookup; it stays well under SQLite's
// placeholder limit.
const maxBatchLiterals = 100

type kanjiResponse struct {
	Literal     string   `json:"literal"`
	Grade       *int     `json:"grade,omitempty"`
	StrokeCount *int     `json:"stroke_count,omitempty"`
	Freq        *int     `json:"freq,omitempty"`
	JLPT        *int     `json:"jlpt,omitempty"`
	OnReadings  []string `json:"on_readings"`
	KunReadings []string `json:"kun_readings"`
	Meanings    []string `json:"meanings"`
}

func toKanjiResponse(d db.KanjiDetail) kanjiResponse {
	return kanjiResponse{
		Literal:     d.Character.Literal,
		Grade:       d.Character.Grade,
		StrokeCount: d.Character.StrokeCount,
		Freq:        d.Character.Freq,
		JLPT:        d.Character.JLPT,
		OnReadings:  emptyIfNil(d.OnReadings),
		KunReadings: emptyIfNil(d.KunReadings),
		Meanings:    emptyIfNil(d.Meanings),
	}
}

// emptyIfNil keeps the JSON arrays as [] rather than null.
func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

type statsResponse struct {
	KanjiCount   int    `json:"kanji_count"`
	ReadingCount int    `json:"reading_count"`
	MeaningCount int    `json:"meaning_count"`
	Version      string `json:"version"`
}

type savedWordResponse struct {
	ID        int64     `json:"id"`
	Literal   string    `json:"literal"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ok, err := s.dict.Ready()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "readiness check failed")
		return
	}
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "dictionary not ready")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requireReady turns requests away with 503 until the store holds a
// complete dataset.
func (s *Server) requireReady(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, err := s.dict.Ready()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "readiness check failed")
			return
		}
		if !ok {
			writeError(w, http.StatusServiceUnavailable, "dictionary not ready")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// pathLiteral returns the decoded {literal} route parameter. chi hands back
// the raw path segment, which for kanji is percent-encoded.
func pathLiteral(r *http.Request) string {
	literal := chi.URLParam(r, "literal")
	if unescaped, err := url.PathUnescape(literal); err == nil {
		literal = unescaped
	}
	return literal
}

func (s *Server) handleKanji(w http.ResponseWriter, r *http.Request) {
	detail, err := s.dict.Lookup(pathLiteral(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if detail == nil {
		writeError(w, http.StatusNotFound, "kanji not found")
		return
	}
	writeJSON(w, http.StatusOK, toKanjiResponse(*detail))
}

func (s *Server) handleKanjiBatch(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("literals")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "literals query parameter is required")
		return
	}
	literals := splitLiterals(raw)
	if len(literals) == 0 {
		writeError(w, http.StatusBadRequest, "no literals given")
		return
	}
	if len(literals) > maxBatchLiterals {
		writeError(w, http.StatusBadRequest, "too many literals")
		return
	}

	details, err := s.dict.LookupBatch(literals)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	resp := make([]kanjiResponse, 0, len(details))
	for _, d := range details {
		resp = append(resp, toKanjiResponse(d))
	}
	writeJSON(w, http.StatusOK, map[string][]kanjiResponse{"kanji": resp})
}

// splitLiterals accepts comma-separated literals as well as a bare run of
// text; multi-rune pieces are exploded into single characters. Whitespace
// is ignored, order is kept, duplicates are dropped.
func splitLiterals(raw string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, piece := range strings.Split(raw, ",") {
		for _, r := range piece {
			if unicode.IsSpace(r) {
				continue
			}
			lit := string(r)
			if seen[lit] {
				continue
			}
			seen[lit] = true
			out = append(out, lit)
		}
	}
	return out
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.dict.Stats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "stats failed")
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		KanjiCount:   stats.KanjiCount,
		ReadingCount: stats.ReadingCount,
		MeaningCount: stats.MeaningCount,
		Version:      stats.Version,
	})
}

func (s *Server) handleListSavedWords(w http.ResponseWriter, r *http.Request) {
	words, err := s.dict.SavedWords()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "listing saved words failed")
		return
	}
	resp := make([]savedWordResponse, 0, len(words))
	for _, word := range words {
		resp = append(resp, savedWordResponse{
			ID:        word.ID,
			Literal:   word.Literal,
			Note:      word.Note,
			CreatedAt: word.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string][]savedWordResponse{"saved_words": resp})
}

type saveWordRequest struct {
	Literal string `json:"literal"`
	Note    string `json:"note"`
}

func (s *Server) handleSaveWord(w http.ResponseWriter, r *http.Request) {
	var req saveWordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Literal = strings.TrimSpace(req.Literal)
	if req.Literal == "" {
		writeError(w, http.StatusBadRequest, "literal is required")
		return
	}

	id, err := s.dict.SaveWord(req.Literal, req.Note)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "saving word failed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) handleDeleteSavedWord(w http.ResponseWriter, r *http.Request) {
	err := s.dict.RemoveSavedWord(pathLiteral(r))
	switch {
	case errors.Is(err, db.ErrNotFound):
		writeError(w, http.StatusNotFound, "saved word not found")
	case err != nil:
		writeError(w, http.StatusInternalServerError, "deleting saved word failed")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}
