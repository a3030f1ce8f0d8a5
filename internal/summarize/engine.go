package summarize

import (
	"context"
	"log"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"tamilnews/internal/config"
	"tamilnews/internal/lang"
)

// Translator re-translates text into a target language. Implemented by
// the cascading translator; wired in from main to keep this package free
// of translation backends.
type Translator interface {
	Translate(ctx context.Context, text, target string) string
}

// FallbackLength caps the description fallback used when no summary can
// be produced for a force-summary source.
const FallbackLength = 400

var retryDelayPattern = regexp.MustCompile(`retryDelay['"]?:\s*['"]?(\d+)(?:\.\d+)?s`)

const defaultCooldown = 60 * time.Second

// Request carries everything the engine may need for one article.
type Request struct {
	Text        string
	ArticleURL  string
	Description string
	Source      config.Source
}

// Engine drives summarization: a quota cooldown guard, bounded retries,
// and a Tamil-enforcement recovery chain. Failures always degrade to an
// empty summary; they never propagate.
type Engine struct {
	logger     *log.Logger
	client     *Client
	translator Translator

	mu            sync.Mutex
	cooldownUntil time.Time

	// overridable for tests
	now   func() time.Time
	sleep func(time.Duration)
}

func NewEngine(logger *log.Logger, client *Client, translator Translator) *Engine {
	return &Engine{
		logger:     logger,
		client:     client,
		translator: translator,
		now:        time.Now,
		sleep:      time.Sleep,
	}
}

// inCooldown reports whether the quota circuit breaker is open.
func (e *Engine) inCooldown() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now().Before(e.cooldownUntil)
}

func (e *Engine) setCooldown(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cooldownUntil = e.now().Add(d)
}

// Summarize returns a short Tamil summary for the request, or "" when
// none could be produced. The caller is expected to fall back to the
// feed description.
func (e *Engine) Summarize(ctx context.Context, req Request) string {
	if strings.TrimSpace(req.Text) == "" && req.ArticleURL == "" {
		return ""
	}
	if e.inCooldown() {
		return ""
	}

	summary := e.generateWithRetry(ctx, buildPrompt(req.Text, req.ArticleURL))
	if summary == "" {
		return ""
	}
	if lang.IsTamil(summary) {
		return summary
	}
	return e.recover(ctx, summary, req)
}

func (e *Engine) generateWithRetry(ctx context.Context, prompt string) string {
	delays := []time.Duration{time.Second, 3 * time.Second, 7 * time.Second}

	var lastErr error
	for i, delay := range delays {
		text, err := e.client.Generate(ctx, prompt)
		if err == nil && text != "" {
			return text
		}
		if err != nil {
			lastErr = err
			e.logger.Printf("Gemini summarization attempt %d failed: %v", i+1, err)
			if isQuotaError(err) {
				wait := parseRetryDelay(err.Error())
				e.setCooldown(wait)
				e.logger.Printf("Quota exhausted. Pausing summarization for ~%v.", wait)
				return ""
			}
		}
		e.sleep(delay)
	}

	e.logger.Printf("Gemini summarization failed after retries: %v", lastErr)
	return ""
}

// recover runs the Tamil-enforcement cascade: each strategy is tried in
// order and the first acceptable result wins.
func (e *Engine) recover(ctx context.Context, summary string, req Request) string {
	strategies := []struct {
		name string
		run  func() string
		// accept decides whether a non-empty result ends the cascade
		accept func(string) bool
	}{
		{
			name:   "retranslate summary",
			run:    func() string { return e.translate(ctx, summary) },
			accept: lang.IsTamil,
		},
		{
			name:   "retranslate source text",
			run:    func() string { return e.translate(ctx, req.Text) },
			accept: lang.IsTamil,
		},
		{
			// The script filter is accepted even when only digits and
			// punctuation survive; it is the degraded floor.
			name:   "script filter",
			run:    func() string { return lang.FilterTamil(summary) },
			accept: func(s string) bool { return true },
		},
	}

	for _, s := range strategies {
		result := strings.TrimSpace(s.run())
		if result != "" && s.accept(result) {
			return result
		}
	}

	if req.Source.ForceSummary {
		if fallback := strings.TrimSpace(req.Description); fallback != "" {
			return Truncate(fallback, FallbackLength)
		}
	}
	return ""
}

func (e *Engine) translate(ctx context.Context, text string) string {
	if e.translator == nil || strings.TrimSpace(text) == "" {
		return ""
	}
	return e.translator.Translate(ctx, text, lang.DefaultLanguage)
}

// Truncate shortens text to at most max runes, appending an ellipsis
// when anything was cut.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}

func isQuotaError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "RESOURCE_EXHAUSTED") ||
		strings.Contains(msg, "Too Many Requests") ||
		strings.Contains(msg, "429")
}

func parseRetryDelay(msg string) time.Duration {
	if m := retryDelayPattern.FindStringSubmatch(msg); m != nil {
		if secs, err := strconv.Atoi(m[1]); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultCooldown
}

// buildPrompt instructs the model to answer strictly in Tamil: a 3-4
// line neutral summary keeping dates, places, and figures.
func buildPrompt(text, articleURL string) string {
	var sb strings.Builder
	sb.WriteString("நீங்கள் ஒரு செய்தி தொகுப்பாளர். கீழே உள்ள கட்டுரையின் முக்கிய அம்சங்களை" +
		" தமிழில் மட்டும் 3–4 வரிகளில், எளிய மற்றும் நடுநிலையான மொழியில் சுருக்கமாக எழுதுங்கள்." +
		" தேதிகள், இடங்கள், எண்கள் போன்ற முக்கிய தகவல்களை மட்டும் வைத்துக் கொள்ளுங்கள்." +
		" அத்தியாவசியமற்ற விபரங்களை தவிர்க்கவும்.\n\n")
	if articleURL != "" {
		sb.WriteString("URL: " + articleURL + "\n")
	}
	if text != "" {
		sb.WriteString("கட்டுரை:\n" + text)
	}
	return sb.String()
}
