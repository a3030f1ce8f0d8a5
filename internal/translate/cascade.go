// Package translate turns summaries into other supported languages via
// an ordered cascade of backends and caches the results across three
// tiers.
package translate

import (
	"context"
	"log"
	"strings"

	"tamilnews/internal/lang"
)

// Backend is one translation provider. Errors are isolated: a failing
// backend only means the cascade moves on to the next one.
type Backend interface {
	Name() string
	Translate(ctx context.Context, text, target string) (string, error)
}

// Cascade tries backends in fixed priority order and returns the first
// non-empty result. Unsupported target codes and total failure both
// yield ""; the cascade never returns an error.
type Cascade struct {
	logger   *log.Logger
	backends []Backend
}

func NewCascade(logger *log.Logger, backends ...Backend) *Cascade {
	return &Cascade{logger: logger, backends: backends}
}

func (c *Cascade) Translate(ctx context.Context, text, target string) string {
	text = strings.TrimSpace(text)
	if text == "" || !lang.IsSupported(target) {
		return ""
	}

	for _, backend := range c.backends {
		out, err := backend.Translate(ctx, text, target)
		if err != nil {
			c.logger.Printf("Translation backend %s failed: %v", backend.Name(), err)
			continue
		}
		if out = strings.TrimSpace(out); out != "" {
			return out
		}
	}
	return ""
}
