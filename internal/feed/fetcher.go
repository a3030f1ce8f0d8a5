package feed

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"tamilnews/internal/config"

	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html"
)

// UserAgent is a browser-like identity; several Tamil outlets refuse
// requests from obvious bot agents.
const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// AcceptLanguage prefers Tamil content where feeds are multi-lingual.
const AcceptLanguage = "ta,en;q=0.8"

// Source timestamps without a zone are local newsroom time.
var sourceLocation = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		return time.FixedZone("IST", 5*3600+1800)
	}
	return loc
}()

type Fetcher struct {
	logger *log.Logger
	parser *gofeed.Parser
	client *http.Client
}

func NewFetcher(logger *log.Logger) *Fetcher {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
	}
	return &Fetcher{
		logger: logger,
		parser: gofeed.NewParser(),
		client: &http.Client{Timeout: 10 * time.Second, Transport: transport, CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("stopped after 5 redirects")
			}
			return nil
		}},
	}
}

// FetchSource tries a source's candidate feed URLs in order and returns
// the winning endpoint URL plus the entries of the first candidate that
// yields at least one parseable item. A source whose candidates all fail
// returns an empty slice; it never stops processing of other sources.
func (f *Fetcher) FetchSource(ctx context.Context, source config.Source) (string, []Item) {
	for _, url := range source.URLs {
		items, err := f.fetchFeed(ctx, url)
		if err != nil {
			f.logger.Printf("Error fetching feed %s for %s: %v", url, source.Name, err)
			continue
		}
		if len(items) == 0 {
			f.logger.Printf("No entries found for %s (%s)", url, source.Name)
			continue
		}
		return url, items
	}
	return "", nil
}

func (f *Fetcher) fetchFeed(ctx context.Context, url string) ([]Item, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept-Language", AcceptLanguage)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected response status %d", resp.StatusCode)
	}

	// Parse with a size limit (5MB) to avoid huge downloads
	const maxFeedBytes = 5 << 20
	limited := io.LimitReader(resp.Body, maxFeedBytes)
	parsedFeed, err := f.parser.Parse(limited)
	if err != nil {
		return nil, fmt.Errorf("error parsing feed: %w", err)
	}
	if parsedFeed == nil {
		return nil, fmt.Errorf("error parsing feed: empty document")
	}

	items := make([]Item, 0, len(parsedFeed.Items))
	for _, raw := range parsedFeed.Items {
		item, ok := normalizeItem(raw)
		if !ok {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// normalizeItem adapts a gofeed item into the canonical Item shape.
// Entries without any resolvable link are skipped.
func normalizeItem(raw *gofeed.Item) (Item, bool) {
	if raw == nil {
		return Item{}, false
	}

	link := strings.TrimSpace(raw.Link)
	if link == "" && len(raw.Links) > 0 {
		link = strings.TrimSpace(raw.Links[0])
	}
	if link == "" && strings.HasPrefix(raw.GUID, "http") {
		link = strings.TrimSpace(raw.GUID)
	}
	if link == "" {
		return Item{}, false
	}

	return Item{
		Link:        link,
		Title:       strings.TrimSpace(raw.Title),
		Description: strings.TrimSpace(raw.Description),
		ImageURL:    itemImage(raw),
		Published:   itemPublished(raw),
	}, true
}

func itemImage(raw *gofeed.Item) string {
	if raw.Image != nil && raw.Image.URL != "" {
		return raw.Image.URL
	}
	for _, enc := range raw.Enclosures {
		if enc == nil || enc.URL == "" {
			continue
		}
		if strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	if media, ok := raw.Extensions["media"]; ok {
		for _, key := range []string{"content", "thumbnail"} {
			for _, ext := range media[key] {
				if url := ext.Attrs["url"]; url != "" {
					return url
				}
			}
		}
	}
	// Last resort: scrape the embedded description HTML
	if img := imageFromHTML(raw.Description); img != "" {
		return img
	}
	if raw.Content != "" {
		return imageFromHTML(raw.Content)
	}
	return ""
}

// imageFromHTML scans an embedded HTML fragment for og:image or
// twitter:image meta tags, falling back to the first <img> src.
func imageFromHTML(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return ""
	}
	tokenizer := html.NewTokenizer(strings.NewReader(fragment))
	firstImg := ""
	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			return firstImg
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		token := tokenizer.Token()
		switch token.Data {
		case "meta":
			var property, content string
			for _, attr := range token.Attr {
				switch attr.Key {
				case "property", "name":
					property = attr.Val
				case "content":
					content = attr.Val
				}
			}
			if (property == "og:image" || property == "twitter:image") && content != "" {
				return content
			}
		case "img":
			if firstImg == "" {
				for _, attr := range token.Attr {
					if attr.Key == "src" && attr.Val != "" {
						firstImg = attr.Val
						break
					}
				}
			}
		}
	}
}

// normalizeZone corrects times parsed from a bare zone abbreviation the
// parser did not recognize. Go assigns unknown abbreviations like "IST"
// a zero offset, which would shift the entry 5.5 hours into the future;
// the wall-clock time is reinterpreted as newsroom time instead.
func normalizeZone(t time.Time) time.Time {
	name, offset := t.Zone()
	if offset != 0 || name == "" || name == "UTC" || name == "GMT" {
		return t
	}
	if name[0] == '+' || name[0] == '-' {
		// Numeric zone such as +0000: the offset is trustworthy
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(),
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), sourceLocation)
}

// Layouts carrying an explicit zone offset or name.
var zonedLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
}

// Layouts with no zone information at all; interpreted as newsroom time.
var nakedLayouts = []string{
	"Mon, 02 Jan 2006 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"02 Jan 2006 15:04:05",
}

// itemPublished resolves an entry's publish time to UTC. Date strings
// without a zone are assumed to be Asia/Kolkata; when no string parses,
// gofeed's pre-parsed struct is used as-is, and the current time is the
// final fallback.
func itemPublished(raw *gofeed.Item) time.Time {
	for _, candidate := range []string{raw.Published, raw.Updated} {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		for _, layout := range zonedLayouts {
			if t, err := time.Parse(layout, candidate); err == nil {
				return normalizeZone(t).UTC()
			}
		}
		for _, layout := range nakedLayouts {
			if t, err := time.ParseInLocation(layout, candidate, sourceLocation); err == nil {
				return t.UTC()
			}
		}
	}
	if raw.PublishedParsed != nil {
		return raw.PublishedParsed.UTC()
	}
	if raw.UpdatedParsed != nil {
		return raw.UpdatedParsed.UTC()
	}
	return time.Now().UTC()
}
