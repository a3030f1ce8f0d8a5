package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"tamilnews/internal/database"
	"tamilnews/internal/lang"
	"tamilnews/internal/rss"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// articleResponse is the wire shape of one article.
type articleResponse struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url"`
	Source      string `json:"source"`
	Summary     string `json:"summary"`
	ImageURL    string `json:"image_url,omitempty"`
	Language    string `json:"language"`
	PublishedAt string `json:"published_at,omitempty"`
}

type newsResponse struct {
	Language string            `json:"language"`
	Count    int               `json:"count"`
	Articles []articleResponse `json:"articles"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":   "Tamil news aggregator",
		"languages": lang.Supported,
		"endpoints": []string{"/news?lang=ta&limit=50", "/healthz"},
	})
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	// Unknown language codes fall back to the primary language rather
	// than erroring; clients always get a usable response.
	language := r.URL.Query().Get("lang")
	if !lang.IsSupported(language) {
		language = lang.DefaultLanguage
	}

	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	articles, err := s.db.GetRecentArticles(r.Context(), limit)
	if err != nil {
		s.logger.Printf("Error fetching articles: %v", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	articles = s.localizer.Localize(r.Context(), articles, language)

	resp := newsResponse{
		Language: language,
		Count:    len(articles),
		Articles: make([]articleResponse, 0, len(articles)),
	}
	for _, a := range articles {
		resp.Articles = append(resp.Articles, toArticleResponse(a, language))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleRSS republishes the aggregated, localized stream as RSS.
func (s *Server) handleRSS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	language := r.URL.Query().Get("lang")
	if !lang.IsSupported(language) {
		language = lang.DefaultLanguage
	}

	articles, err := s.db.GetRecentArticles(r.Context(), defaultLimit)
	if err != nil {
		s.logger.Printf("Error fetching articles: %v", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	articles = s.localizer.Localize(r.Context(), articles, language)

	siteURL := "http://" + r.Host
	doc := rss.Build(articles, language, siteURL, time.Now())
	body, err := rss.Marshal(doc)
	if err != nil {
		s.logger.Printf("Error rendering RSS: %v", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Write(body)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Printf("Health check failed: %v", err)
		s.writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func toArticleResponse(a database.Article, language string) articleResponse {
	resp := articleResponse{
		Title:       a.Title,
		Description: a.Description,
		URL:         a.URL,
		Source:      a.Source,
		Summary:     a.Summary,
		ImageURL:    a.ImageURL,
		Language:    language,
	}
	if !a.PublishedAt.IsZero() {
		resp.PublishedAt = a.PublishedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Printf("Error encoding response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
