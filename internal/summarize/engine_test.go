package summarize

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"tamilnews/internal/config"
)

const tamilSummary = "சென்னையில் இன்று கனமழை பெய்தது. பள்ளிகளுக்கு விடுமுறை அறிவிக்கப்பட்டது."

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// newTestEngine wires an Engine to an httptest Gemini endpoint with a
// controllable clock and no real sleeping.
func newTestEngine(t *testing.T, handler http.HandlerFunc, translator Translator) (*Engine, *httptest.Server, *time.Time) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := &Client{
		apiKey:  "test-key",
		model:   "gemini-test",
		baseURL: server.URL,
		client:  server.Client(),
	}

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	clock := &now
	e := NewEngine(testLogger(), client, translator)
	e.now = func() time.Time { return *clock }
	e.sleep = func(time.Duration) {}
	return e, server, clock
}

func geminiResponse(text string) string {
	return fmt.Sprintf(`{"candidates":[{"content":{"parts":[{"text":%q}]}}]}`, text)
}

type stubTranslator struct {
	result string
	calls  int
}

func (s *stubTranslator) Translate(_ context.Context, _, _ string) string {
	s.calls++
	return s.result
}

func TestSummarizeAccepted(t *testing.T) {
	e, _, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(geminiResponse(tamilSummary)))
	}, nil)

	got := e.Summarize(context.Background(), Request{Text: "article text", ArticleURL: "http://x.example/a"})
	if got != tamilSummary {
		t.Errorf("Summarize() = %q, want Tamil summary accepted as-is", got)
	}
}

func TestSummarizeEmptyInput(t *testing.T) {
	var calls int32
	e, _, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}, nil)

	if got := e.Summarize(context.Background(), Request{Text: "   "}); got != "" {
		t.Errorf("Summarize() = %q, want empty for blank input", got)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Error("blank input must not reach the network")
	}
}

func TestSummarizeRetriesThenGivesUp(t *testing.T) {
	var calls int32
	e, _, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"boom"}}`))
	}, nil)

	if got := e.Summarize(context.Background(), Request{Text: "text"}); got != "" {
		t.Errorf("Summarize() = %q, want empty after exhausted retries", got)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("made %d calls, want 3 retries", calls)
	}
}

func TestQuotaCooldown(t *testing.T) {
	// Scenario: quota error carries a 30-second retry hint. The breaker
	// opens for 30s, blocks a call at +10s with zero network traffic,
	// and lets a call at +31s through.
	var calls int32
	quotaTripped := int32(1)
	e, _, clock := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if atomic.LoadInt32(&quotaTripped) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"code":429,"status":"RESOURCE_EXHAUSTED","details":[{"retryDelay":"30s"}]}}`))
			return
		}
		w.Write([]byte(geminiResponse(tamilSummary)))
	}, nil)

	req := Request{Text: "text"}
	ctx := context.Background()

	if got := e.Summarize(ctx, req); got != "" {
		t.Errorf("quota-limited call returned %q, want empty", got)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("quota error is a circuit breaker, not a retry; made %d calls", calls)
	}

	// 10 seconds later: still cooling down, no network call
	*clock = clock.Add(10 * time.Second)
	if got := e.Summarize(ctx, req); got != "" {
		t.Errorf("call during cooldown returned %q, want empty", got)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("call during cooldown reached the network (%d calls)", calls)
	}

	// 31 seconds after the trip: proceeds normally
	atomic.StoreInt32(&quotaTripped, 0)
	*clock = clock.Add(21 * time.Second)
	if got := e.Summarize(ctx, req); got != tamilSummary {
		t.Errorf("call after cooldown = %q, want summary", got)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("made %d calls, want 2", calls)
	}
}

func TestParseRetryDelay(t *testing.T) {
	tests := []struct {
		msg  string
		want time.Duration
	}{
		{`details: {"retryDelay":"30s"}`, 30 * time.Second},
		{`retryDelay: '7s'`, 7 * time.Second},
		{`retryDelay: 12.5s`, 12 * time.Second},
		{`no hint here`, defaultCooldown},
	}
	for _, tt := range tests {
		if got := parseRetryDelay(tt.msg); got != tt.want {
			t.Errorf("parseRetryDelay(%q) = %v, want %v", tt.msg, got, tt.want)
		}
	}
}

func TestRecoveryRetranslatesSummary(t *testing.T) {
	translator := &stubTranslator{result: tamilSummary}
	e, _, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(geminiResponse("Breaking news happened")))
	}, translator)

	got := e.Summarize(context.Background(), Request{Text: "text"})
	if got != tamilSummary {
		t.Errorf("Summarize() = %q, want retranslated summary", got)
	}
	if translator.calls != 1 {
		t.Errorf("translator called %d times, want 1", translator.calls)
	}
}

func TestRecoveryFallsBackToScriptFilter(t *testing.T) {
	// Scenario: the model answers in English, re-translation fails, and
	// the character filter leaves only digits and punctuation, which is
	// accepted as the degraded summary.
	translator := &stubTranslator{result: ""}
	e, _, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(geminiResponse("Breaking news: 42 dead!")))
	}, translator)

	got := e.Summarize(context.Background(), Request{Text: "text"})
	if got != ": 42 !" {
		t.Errorf("Summarize() = %q, want filtered remnant", got)
	}
	if translator.calls != 2 {
		t.Errorf("translator called %d times, want summary then source text", translator.calls)
	}
}

func TestRecoveryForceSummaryDescriptionFallback(t *testing.T) {
	translator := &stubTranslator{result: ""}
	e, _, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		// No digits or punctuation: the script filter yields nothing
		w.Write([]byte(geminiResponse("Breaking news happened")))
	}, translator)

	long := ""
	for i := 0; i < 50; i++ {
		long += "விவரமான தமிழ் "
	}
	got := e.Summarize(context.Background(), Request{
		Text:        "text",
		Description: long,
		Source:      config.Source{Name: "S", ForceSummary: true},
	})
	if got == "" {
		t.Fatal("force-summary source must fall back to the description")
	}
	if []rune(got)[len([]rune(got))-1] != '…' {
		t.Errorf("fallback %q should be truncated with an ellipsis", got)
	}
	if len([]rune(got)) != FallbackLength+1 {
		t.Errorf("fallback is %d runes, want %d plus ellipsis", len([]rune(got)), FallbackLength)
	}
}

func TestRecoveryWithoutForceReturnsEmpty(t *testing.T) {
	translator := &stubTranslator{result: ""}
	e, _, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(geminiResponse("Breaking news happened")))
	}, translator)

	got := e.Summarize(context.Background(), Request{Text: "text", Description: "desc"})
	if got != "" {
		t.Errorf("Summarize() = %q, want empty when recovery is exhausted", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate(short) = %q", got)
	}
	long := "தமிழ்த் தமிழ்த் தமிழ்த்"
	got := Truncate(long, 5)
	if []rune(got)[5] != '…' || len([]rune(got)) != 6 {
		t.Errorf("Truncate() = %q, want 5 runes plus ellipsis", got)
	}
}
