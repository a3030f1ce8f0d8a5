package translate

import (
	"context"
	"fmt"
	"log"

	"tamilnews/internal/database"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the in-memory tier.
const DefaultCacheSize = 2000

// DefaultBudget bounds translator invocations per read request, keeping
// tail latency and external cost in check when many uncached articles
// are requested at once.
const DefaultBudget = 10

// TextTranslator is what the cache needs from the cascade.
type TextTranslator interface {
	Translate(ctx context.Context, text, target string) string
}

// Store persists translations dirtied by the read path.
type Store interface {
	SaveTranslations(ctx context.Context, articles []*database.Article) error
}

// Cache serves per-language summaries from three tiers: a bounded
// in-memory LRU, the dedicated per-language column, and the language
// map. Misses past all three consult the translator, and every tier is
// back-filled on success.
type Cache struct {
	logger     *log.Logger
	translator TextTranslator
	store      Store
	memory     *lru.Cache[string, string]
	budget     int
}

func NewCache(logger *log.Logger, translator TextTranslator, store Store, capacity, budget int) (*Cache, error) {
	if capacity < 1 {
		capacity = DefaultCacheSize
	}
	if budget < 1 {
		budget = DefaultBudget
	}
	memory, err := lru.New[string, string](capacity)
	if err != nil {
		return nil, fmt.Errorf("error creating translation cache: %w", err)
	}
	return &Cache{
		logger:     logger,
		translator: translator,
		store:      store,
		memory:     memory,
		budget:     budget,
	}, nil
}

func cacheKey(id int64, language string) string {
	return fmt.Sprintf("%d:%s", id, language)
}

// Localize rewrites each article's Summary into the requested language.
// One failing article never blocks the rest, and all records dirtied by
// new translations are committed once at the end; a commit failure is
// logged and does not fail the response.
func (c *Cache) Localize(ctx context.Context, articles []database.Article, language string) []database.Article {
	budget := c.budget
	var dirty []*database.Article

	for i := range articles {
		a := &articles[i]

		// Primary language: the dedicated column wins, then the
		// primary summary as stored.
		if language == a.Language {
			if cached := a.SummaryFor(language); cached != "" {
				a.Summary = cached
			}
			continue
		}

		key := cacheKey(a.ID, language)
		if cached, ok := c.memory.Get(key); ok {
			a.Summary = cached
			continue
		}

		// Column or map hit back-fills the memory tier
		if cached := a.SummaryFor(language); cached != "" {
			a.Summary = cached
			c.memory.Add(key, cached)
			continue
		}

		if budget <= 0 {
			continue
		}
		budget--

		source := a.Summary
		if source == "" {
			source = a.Description
		}
		if source == "" {
			source = a.Title
		}
		translated := c.translator.Translate(ctx, source, language)
		if translated == "" {
			// Leave the article's summary unchanged for this response
			continue
		}

		a.SetSummary(language, translated)
		a.Summary = translated
		c.memory.Add(key, translated)
		dirty = append(dirty, a)
	}

	if len(dirty) > 0 && c.store != nil {
		if err := c.store.SaveTranslations(ctx, dirty); err != nil {
			c.logger.Printf("Error persisting %d translations: %v", len(dirty), err)
		}
	}
	return articles
}

// Len reports the number of in-memory cached translations.
func (c *Cache) Len() int {
	return c.memory.Len()
}
