// Package rss renders the aggregated articles back out as an RSS feed,
// so downstream readers can subscribe to the summarized stream.
package rss

import (
	"encoding/xml"
	"time"

	"tamilnews/internal/database"
)

// RSS is the root element of an RSS feed.
type RSS struct {
	XMLName xml.Name `xml:"rss"`
	Version string   `xml:"version,attr"`
	Channel Channel  `xml:"channel"`
}

// Channel represents the channel element in an RSS feed.
type Channel struct {
	XMLName       xml.Name `xml:"channel"`
	Title         string   `xml:"title"`
	Link          string   `xml:"link"`
	Description   string   `xml:"description"`
	Language      string   `xml:"language,omitempty"`
	LastBuildDate string   `xml:"lastBuildDate,omitempty"` // RFC1123Z
	Items         []Item   `xml:"item"`
}

// Item represents an item element in an RSS feed.
type Item struct {
	XMLName     xml.Name `xml:"item"`
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description string   `xml:"description,omitempty"`
	Source      string   `xml:"source,omitempty"`
	PubDate     string   `xml:"pubDate,omitempty"` // RFC1123Z
	GUID        string   `xml:"guid,omitempty"`
}

// Build assembles an RSS document from localized articles. Summaries
// become item descriptions; articles without one fall back to the feed
// description.
func Build(articles []database.Article, language, siteURL string, now time.Time) RSS {
	channel := Channel{
		Title:         "Tamil News Digest",
		Link:          siteURL,
		Description:   "Summarized Tamil news from multiple sources",
		Language:      language,
		LastBuildDate: now.UTC().Format(time.RFC1123Z),
	}

	for _, a := range articles {
		description := a.Summary
		if description == "" {
			description = a.Description
		}
		item := Item{
			Title:       a.Title,
			Link:        a.URL,
			Description: description,
			Source:      a.Source,
			GUID:        a.URL,
		}
		if !a.PublishedAt.IsZero() {
			item.PubDate = a.PublishedAt.UTC().Format(time.RFC1123Z)
		}
		channel.Items = append(channel.Items, item)
	}

	return RSS{Version: "2.0", Channel: channel}
}

// Marshal renders the document with the XML prologue.
func Marshal(doc RSS) ([]byte, error) {
	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}
