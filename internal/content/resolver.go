// Package content resolves the full text and lead image of an article
// page, subject to each source's fetch policy.
package content

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"tamilnews/internal/config"
	"tamilnews/internal/feed"
	"tamilnews/internal/netutil"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// MaxArticleChars caps extracted text to bound downstream token cost.
const MaxArticleChars = 6000

type Resolver struct {
	logger *log.Logger
	client *http.Client
}

// NewResolver builds a resolver whose client refuses private addresses:
// article links come straight from third-party feeds.
func NewResolver(logger *log.Logger) *Resolver {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         netutil.SafeDialContext(netutil.DefaultDialer()),
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &Resolver{
		logger: logger,
		client: &http.Client{Timeout: 12 * time.Second, Transport: transport},
	}
}

// Resolved is the text and image chosen for one article.
type Resolved struct {
	Text     string
	ImageURL string
}

// Resolve picks the article text per the source's policy. Sources marked
// rss_only keep the feed's inline description; everything else gets a
// page fetch that degrades to the description on any failure.
func (r *Resolver) Resolve(ctx context.Context, source config.Source, item feed.Item) Resolved {
	resolved := Resolved{
		Text:     truncate(item.Description, MaxArticleChars),
		ImageURL: item.ImageURL,
	}
	if source.RSSOnly {
		return resolved
	}

	text, image, err := r.fetchArticle(ctx, item.Link)
	if err != nil {
		r.logger.Printf("Failed to fetch article from %s: %v", item.Link, err)
		return resolved
	}
	if text != "" {
		resolved.Text = text
	}
	if resolved.ImageURL == "" && image != "" {
		resolved.ImageURL = image
	}
	return resolved
}

func (r *Resolver) fetchArticle(ctx context.Context, link string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", link, nil)
	if err != nil {
		return "", "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("User-Agent", feed.UserAgent)
	req.Header.Set("Accept-Language", feed.AcceptLanguage)
	// A same-origin Referer reduces 403s from hotlink protection
	if parsed, err := url.Parse(link); err == nil && parsed.Host != "" {
		req.Header.Set("Referer", parsed.Scheme+"://"+parsed.Host+"/")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("error fetching article: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", "", fmt.Errorf("unexpected response status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("error parsing article HTML: %w", err)
	}

	return extractText(doc, link), ExtractImage(doc), nil
}

// extractText prefers readability's article extraction and falls back to
// concatenated paragraph text.
func extractText(doc *goquery.Document, link string) string {
	pageURL, _ := url.Parse(link)
	if html, err := doc.Html(); err == nil {
		if article, err := readability.FromReader(strings.NewReader(html), pageURL); err == nil {
			if text := strings.TrimSpace(article.TextContent); text != "" {
				return truncate(text, MaxArticleChars)
			}
		}
	}

	var paragraphs []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	return truncate(strings.Join(paragraphs, "\n"), MaxArticleChars)
}

// ExtractImage finds a page's lead image: og:image or twitter:image meta
// tags first, then the first inline <img>.
func ExtractImage(doc *goquery.Document) string {
	for _, selector := range []string{
		`meta[property="og:image"]`,
		`meta[name="twitter:image"]`,
	} {
		if content, ok := doc.Find(selector).First().Attr("content"); ok {
			if content = strings.TrimSpace(content); content != "" {
				return content
			}
		}
	}
	if src, ok := doc.Find("img").First().Attr("src"); ok {
		return strings.TrimSpace(src)
	}
	return ""
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	// Back off to a rune boundary
	for !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}
