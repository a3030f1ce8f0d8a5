package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var languageNames = map[string]string{
	"ta": "Tamil",
	"en": "English",
	"hi": "Hindi",
}

// webBackend uses the unkeyed Google web translation endpoint. It is the
// cheapest option and therefore first in the cascade.
type webBackend struct {
	baseURL string
	client  *http.Client
}

func NewWebBackend() Backend {
	return &webBackend{
		baseURL: "https://translate.googleapis.com",
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (b *webBackend) Name() string { return "google-web" }

func (b *webBackend) Translate(ctx context.Context, text, target string) (string, error) {
	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("sl", "auto")
	params.Set("tl", target)
	params.Set("dt", "t")
	params.Set("q", text)

	endpoint := b.baseURL + "/translate_a/single?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return "", err
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("web translate error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("web translate status %d", resp.StatusCode)
	}

	// Response shape: [[["translated","source",...],...],...]
	var payload []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("web translate decode: %w", err)
	}
	if len(payload) == 0 {
		return "", fmt.Errorf("web translate empty response")
	}

	var segments [][]json.RawMessage
	if err := json.Unmarshal(payload[0], &segments); err != nil {
		return "", fmt.Errorf("web translate decode segments: %w", err)
	}

	var sb strings.Builder
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		var piece string
		if err := json.Unmarshal(seg[0], &piece); err == nil {
			sb.WriteString(piece)
		}
	}
	return sb.String(), nil
}

// apiBackend is the keyed Google Translate REST API.
type apiBackend struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewAPIBackend(apiKey string) Backend {
	return &apiBackend{
		baseURL: "https://translation.googleapis.com",
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (b *apiBackend) Name() string { return "translate-api" }

func (b *apiBackend) Translate(ctx context.Context, text, target string) (string, error) {
	if b.apiKey == "" {
		return "", fmt.Errorf("translate API key not configured")
	}

	form := url.Values{}
	form.Set("q", text)
	form.Set("target", target)
	form.Set("format", "text")
	form.Set("model", "nmt")
	form.Set("key", b.apiKey)

	endpoint := b.baseURL + "/language/translate/v2"
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("translate API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("translate API %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Data struct {
			Translations []struct {
				TranslatedText string `json:"translatedText"`
			} `json:"translations"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("translate API decode: %w", err)
	}
	if len(payload.Data.Translations) == 0 {
		return "", fmt.Errorf("translate API empty response")
	}
	return html.UnescapeString(payload.Data.Translations[0].TranslatedText), nil
}

// GenerateFunc is a single text-completion call; the LLM backend reuses
// the summarization client through it.
type GenerateFunc func(ctx context.Context, prompt string) (string, error)

type llmBackend struct {
	generate GenerateFunc
}

func NewLLMBackend(generate GenerateFunc) Backend {
	return &llmBackend{generate: generate}
}

func (b *llmBackend) Name() string { return "llm" }

func (b *llmBackend) Translate(ctx context.Context, text, target string) (string, error) {
	name, ok := languageNames[target]
	if !ok {
		name = target
	}
	prompt := fmt.Sprintf(
		"Translate the following text into %s. Respond with ONLY the translated text, no commentary.\n\n%s",
		name, text)
	return b.generate(ctx, prompt)
}
