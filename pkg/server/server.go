// Package server exposes the dictionary read side over HTTP: kanji lookups,
// stats, and saved-word management, all JSON. Dictionary reads are gated on
// store readiness; until initialization completes they answer 503.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/Sardonyx001/whats-this-kanji/pkg/dictionary"
)

// Token bucket defaults for the shared rate limiter.
const (
	DefaultRateLimit = 50 // requests per second
	DefaultBurst     = 100
)

const shutdownGrace = 10 * time.Second

// Server serves the query API over a dictionary.
type Server struct {
	dict    *dictionary.Dictionary
	logger  *slog.Logger
	addr    string
	limiter *rate.Limiter
}

// New creates a server around dict listening on addr. A nil logger disables
// request logging.
func New(dict *dictionary.Dictionary, addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		dict:    dict,
		logger:  logger,
		addr:    addr,
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultBurst),
	}
}

// Handler builds the route tree. Exposed so tests can drive the full
// middleware chain through httptest.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(requestLogger(s.logger))
	r.Use(rateLimit(s.limiter))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/v1", func(v1 chi.Router) {
		v1.Group(func(g chi.Router) {
			g.Use(s.requireReady)
			g.Get("/kanji", s.handleKanjiBatch)
			g.Get("/kanji/{literal}", s.handleKanji)
			g.Get("/stats", s.handleStats)
		})

		// Saved words are user data, usable before the dictionary is
		// built.
		v1.Get("/saved-words", s.handleListSavedWords)
		v1.Post("/saved-words", s.handleSaveWord)
		v1.Delete("/saved-words/{literal}", s.handleDeleteSavedWord)
	})
	return r
}

// Run serves until ctx is cancelled, then drains in-flight requests for up
// to shutdownGrace.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("server_listening", slog.String("addr", s.addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		s.logger.Info("server_stopping")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
