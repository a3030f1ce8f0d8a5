package feed

import (
	"sync"
	"time"
)

// Cursors tracks, per feed endpoint, the newest publish epoch seen so
// far. State lives for the process lifetime only: a restart re-evaluates
// older entries, which the URL-keyed store absorbs without duplicates.
type Cursors struct {
	mu     sync.Mutex
	newest map[string]int64
}

func NewCursors() *Cursors {
	return &Cursors{newest: make(map[string]int64)}
}

// Filter applies the freshness and dedup rules to one feed's items:
// URLs already emitted during this run are dropped, entries at or below
// the endpoint's cursor are dropped, and entries older than maxAge
// (against now) are dropped regardless of cursor state. The cursor
// advances to the maximum epoch observed in the batch.
func (c *Cursors) Filter(feedURL string, items []Item, maxAge time.Duration, seen map[string]bool, now time.Time) []Item {
	c.mu.Lock()
	defer c.mu.Unlock()

	cursor := c.newest[feedURL]
	maxObserved := cursor
	cutoff := now.UTC().Add(-maxAge)

	kept := make([]Item, 0, len(items))
	for _, item := range items {
		epoch := item.Published.Unix()
		if epoch > maxObserved {
			maxObserved = epoch
		}
		if seen[item.Link] {
			continue
		}
		if epoch <= cursor {
			continue
		}
		if item.Published.Before(cutoff) {
			continue
		}
		seen[item.Link] = true
		kept = append(kept, item)
	}

	c.newest[feedURL] = maxObserved
	return kept
}

// Newest returns the stored cursor epoch for a feed endpoint, zero when
// the endpoint has not been seen yet.
func (c *Cursors) Newest(feedURL string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.newest[feedURL]
}
