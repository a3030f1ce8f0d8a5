// Package ingest drives the periodic pipeline: fetch feeds, filter for
// freshness, resolve article text, summarize, and persist.
package ingest

import (
	"context"
	"log"
	"sync"
	"time"

	"tamilnews/internal/config"
	"tamilnews/internal/content"
	"tamilnews/internal/database"
	"tamilnews/internal/feed"
	"tamilnews/internal/lang"
	"tamilnews/internal/summarize"
)

// Summarizer produces a short primary-language summary, or "" when none
// could be made. Implemented by the summarization engine.
type Summarizer interface {
	Summarize(ctx context.Context, req summarize.Request) string
}

// Resolver picks the article text and image for one entry.
type Resolver interface {
	Resolve(ctx context.Context, source config.Source, item feed.Item) content.Resolved
}

type Service struct {
	logger     *log.Logger
	db         *database.DB
	fetcher    *feed.Fetcher
	cursors    *feed.Cursors
	resolver   Resolver
	summarizer Summarizer
	sources    []config.Source
	maxAge     time.Duration

	// runMu serializes ingestion runs; an overlapping trigger is
	// coalesced into the run already in flight.
	runMu sync.Mutex

	done chan struct{}

	now func() time.Time
}

func NewService(logger *log.Logger, db *database.DB, resolver Resolver,
	summarizer Summarizer, sources []config.Source, maxAge time.Duration) *Service {
	return &Service{
		logger:     logger,
		db:         db,
		fetcher:    feed.NewFetcher(logger),
		cursors:    feed.NewCursors(),
		resolver:   resolver,
		summarizer: summarizer,
		sources:    sources,
		maxAge:     maxAge,
		done:       make(chan struct{}),
		now:        time.Now,
	}
}

// Start launches the periodic update loop. An initial ingestion runs
// immediately.
func (s *Service) Start(interval time.Duration) {
	go s.updateLoop(interval)
}

func (s *Service) Stop() {
	close(s.done)
}

func (s *Service) updateLoop(interval time.Duration) {
	s.logger.Printf("Starting ingestion loop (every %v)", interval)

	if _, err := s.RunIngestion(context.Background()); err != nil {
		s.logger.Printf("Initial ingestion failed: %v", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.RunIngestion(context.Background()); err != nil {
				s.logger.Printf("Scheduled ingestion failed: %v", err)
			}
		case <-s.done:
			s.logger.Printf("Ingestion service shutting down")
			return
		}
	}
}

// RunIngestion processes every configured source sequentially and
// reports the number of rows inserted or changed. When a run is already
// in flight, the call returns immediately without starting another.
func (s *Service) RunIngestion(ctx context.Context) (int, error) {
	if !s.runMu.TryLock() {
		s.logger.Printf("Ingestion already running; skipping trigger")
		return 0, nil
	}
	defer s.runMu.Unlock()

	started := s.now()
	seen := make(map[string]bool)
	total := 0

	for _, source := range s.sources {
		select {
		case <-ctx.Done():
			return total, ctx.Err()
		default:
		}

		upserted, err := s.ingestSource(ctx, source, seen)
		if err != nil {
			s.logger.Printf("Error ingesting %s: %v", source.Name, err)
			continue
		}
		total += upserted
	}

	s.logger.Printf("Ingestion finished: %d articles upserted in %v",
		total, s.now().Sub(started).Round(time.Millisecond))
	return total, nil
}

func (s *Service) ingestSource(ctx context.Context, source config.Source, seen map[string]bool) (int, error) {
	feedURL, items := s.fetcher.FetchSource(ctx, source)
	if len(items) == 0 {
		return 0, nil
	}

	fresh := s.cursors.Filter(feedURL, items, s.maxAge, seen, s.now())
	if len(fresh) == 0 {
		return 0, nil
	}
	s.logger.Printf("%s: %d new entries of %d fetched", source.Name, len(fresh), len(items))

	articles := make([]database.Article, 0, len(fresh))
	for _, item := range fresh {
		articles = append(articles, s.buildArticle(ctx, source, item))
	}

	return s.db.UpsertArticles(ctx, articles)
}

// buildArticle resolves one entry into a storable article: page text per
// the source's policy, then a summary with the feed description as the
// degraded fallback.
func (s *Service) buildArticle(ctx context.Context, source config.Source, item feed.Item) database.Article {
	resolved := s.resolver.Resolve(ctx, source, item)

	summary := s.summarizer.Summarize(ctx, summarize.Request{
		Text:        resolved.Text,
		ArticleURL:  item.Link,
		Description: item.Description,
		Source:      source,
	})
	if summary == "" && item.Description != "" {
		summary = summarize.Truncate(item.Description, summarize.FallbackLength)
	}

	return database.Article{
		Title:       item.Title,
		Description: item.Description,
		URL:         item.Link,
		Source:      source.Name,
		Summary:     summary,
		ImageURL:    resolved.ImageURL,
		Language:    lang.DefaultLanguage,
		PublishedAt: item.Published,
		Processed:   summary != "",
	}
}
