// Package summarize produces short Tamil summaries of article text via
// the Gemini API, with quota-aware backoff and Tamil-enforcement
// recovery.
package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tamilnews/internal/config"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// Client is a minimal Gemini text-generation client.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	client     *http.Client
	urlContext bool
	search     bool
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		apiKey:     cfg.GeminiAPIKey,
		model:      cfg.GeminiModel,
		baseURL:    defaultBaseURL,
		client:     &http.Client{Timeout: 60 * time.Second},
		urlContext: cfg.EnableURLContext,
		search:     cfg.EnableSearch,
	}
}

type generateRequest struct {
	Contents []content             `json:"contents"`
	Tools    []map[string]struct{} `json:"tools,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate sends one text prompt and returns the model's plain-text
// response. Non-2xx responses become errors carrying the body, which may
// embed a machine-readable retry-delay hint.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	payload := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	}
	if c.urlContext {
		payload.Tools = append(payload.Tools, map[string]struct{}{"url_context": {}})
	}
	if c.search {
		payload.Tools = append(payload.Tools, map[string]struct{}{"google_search": {}})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("gemini API %d: %s", resp.StatusCode, string(b))
	}

	var gr generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return "", err
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty gemini response")
	}

	var sb strings.Builder
	for _, p := range gr.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return strings.TrimSpace(sb.String()), nil
}
