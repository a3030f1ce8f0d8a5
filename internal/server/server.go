// Package server exposes the read API: localized article listings as
// JSON.
package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"tamilnews/internal/database"
)

// Localizer rewrites article summaries into a requested language.
// Implemented by the translation cache.
type Localizer interface {
	Localize(ctx context.Context, articles []database.Article, language string) []database.Article
}

type Server struct {
	logger    *log.Logger
	db        *database.DB
	localizer Localizer
	httpSrv   *http.Server
}

func NewServer(logger *log.Logger, db *database.DB, localizer Localizer) *Server {
	return &Server{
		logger:    logger,
		db:        db,
		localizer: localizer,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/news", s.handleNews)
	mux.HandleFunc("/news/", s.handleNews)
	mux.HandleFunc("/news.rss", s.handleRSS)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/healthz/", s.handleHealthz)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			s.writeError(w, http.StatusNotFound, "not found")
			return
		}
		s.handleIndex(w, r)
	})

	return gzipMiddleware(mux)
}

// Start serves until the context is canceled, then drains in-flight
// requests.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("Starting server on %s", addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	}
}
