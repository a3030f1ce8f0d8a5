package feed

import (
	"time"
)

// Item is the canonical, normalized form of one feed entry. The adapter
// in fetcher.go is the only place that touches the loosely-shaped gofeed
// representation.
type Item struct {
	Link        string
	Title       string
	Description string
	ImageURL    string
	Published   time.Time // always UTC
}
