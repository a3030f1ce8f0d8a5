package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port            int
	DBPath          string
	SourcesPath     string
	GeminiAPIKey    string
	GeminiModel     string
	TranslateAPIKey string
	MaxEntryAge     time.Duration
	FetchInterval   time.Duration
	// Optional Gemini tool augmentations for summarization prompts.
	EnableURLContext bool
	EnableSearch     bool
}

// Source describes one news source: an ordered list of candidate feed
// URLs and its fetch policy.
type Source struct {
	Name string   `yaml:"name"`
	URLs []string `yaml:"urls"`
	// RSSOnly sources aggressively block scraping; use the feed
	// description instead of fetching the article page.
	RSSOnly bool `yaml:"rss_only"`
	// ForceSummary sources always get a summary, falling back to the
	// truncated feed description when everything else fails.
	ForceSummary bool `yaml:"force_summary"`
}

func GetConfig() Config {
	config := Config{
		Port:          8080,
		DBPath:        "data/tamilnews.db",
		GeminiModel:   "gemini-2.5-flash-lite",
		MaxEntryAge:   72 * time.Hour,
		FetchInterval: 15 * time.Minute,
	}

	// Override with environment variables if present
	if port := os.Getenv("TAMILNEWS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Port = p
		}
	}

	if dbPath := os.Getenv("TAMILNEWS_DB_PATH"); dbPath != "" {
		config.DBPath = dbPath
	}

	if sourcesPath := os.Getenv("TAMILNEWS_SOURCES_PATH"); sourcesPath != "" {
		config.SourcesPath = sourcesPath
	}

	config.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	if model := os.Getenv("GEMINI_MODEL"); model != "" {
		config.GeminiModel = model
	}
	config.TranslateAPIKey = os.Getenv("TRANSLATE_API_KEY")

	if age := os.Getenv("TAMILNEWS_MAX_ENTRY_AGE"); age != "" {
		if d, err := time.ParseDuration(age); err == nil && d > 0 {
			config.MaxEntryAge = d
		}
	}

	if interval := os.Getenv("TAMILNEWS_FETCH_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil && d >= time.Minute {
			config.FetchInterval = d
		}
	}

	config.EnableURLContext = os.Getenv("TAMILNEWS_GEMINI_URL_CONTEXT") == "1"
	config.EnableSearch = os.Getenv("TAMILNEWS_GEMINI_SEARCH") == "1"

	return config
}

func (c Config) GetAddress() string {
	return fmt.Sprintf(":%d", c.Port)
}

// DefaultSources returns the built-in Tamil news source list.
func DefaultSources() []Source {
	return []Source{
		{
			Name:    "BBC Tamil",
			URLs:    []string{"https://feeds.bbci.co.uk/tamil/rss.xml"},
			RSSOnly: false,
		},
		{
			Name:    "OneIndia Tamil",
			URLs:    []string{"https://tamil.oneindia.com/rss/tamil-news-fb.xml"},
			RSSOnly: true,
		},
		{
			Name: "Dinamalar",
			URLs: []string{
				"https://www.dinamalar.com/rss/ta_tamil.asp",
				"https://www.dinamalar.com/rss.xml",
			},
			RSSOnly: true,
		},
		{
			Name: "Vikatan",
			URLs: []string{
				"https://www.vikatan.com/rss/tn",
				"https://www.vikatan.com/rss/india",
				"https://www.vikatan.com/rss/world",
			},
			RSSOnly: true,
		},
		{
			Name: "The Hindu Tamil",
			URLs: []string{
				"https://www.hindutamil.in/rss/tamilnadu.xml",
				"https://www.hindutamil.in/rss/india.xml",
				"https://www.hindutamil.in/rss/world.xml",
				"https://www.hindutamil.in/rss/cinema.xml",
				"https://www.hindutamil.in/rss/sports.xml",
			},
			RSSOnly: true,
		},
		{
			Name:    "Dinamani",
			URLs:    []string{"https://www.dinamani.com/rss/ta_tamil.xml"},
			RSSOnly: true,
		},
	}
}

// LoadSources reads a YAML source list. An empty path returns the
// built-in defaults.
func LoadSources(path string) ([]Source, error) {
	if path == "" {
		return DefaultSources(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading sources file: %w", err)
	}

	var doc struct {
		Sources []Source `yaml:"sources"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("error parsing sources file: %w", err)
	}
	if len(doc.Sources) == 0 {
		return nil, fmt.Errorf("sources file %s defines no sources", path)
	}
	for i, s := range doc.Sources {
		if s.Name == "" || len(s.URLs) == 0 {
			return nil, fmt.Errorf("source %d is missing a name or feed URLs", i)
		}
	}
	return doc.Sources, nil
}
