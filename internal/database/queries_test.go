package database

import (
	"context"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(":memory:", DefaultConfig())
	if err != nil {
		t.Fatalf("Failed to create in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testArticle(url string) Article {
	return Article{
		Title:       "சென்னையில் கனமழை",
		Description: "சென்னையில் இன்று கனமழை பெய்தது.",
		URL:         url,
		Source:      "BBC Tamil",
		Summary:     "சென்னையில் கனமழை பெய்தது, பள்ளிகளுக்கு விடுமுறை.",
		Language:    "ta",
		PublishedAt: time.Date(2026, 8, 30, 6, 0, 0, 0, time.UTC),
	}
}

func TestUpsertArticlesInsert(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	a := testArticle("https://example.com/news/1")
	n, err := db.UpsertArticles(ctx, []Article{a})
	if err != nil {
		t.Fatalf("UpsertArticles: %v", err)
	}
	if n != 1 {
		t.Errorf("upserted = %d, want 1", n)
	}

	stored, err := db.GetArticleByURL(ctx, a.URL)
	if err != nil {
		t.Fatalf("GetArticleByURL: %v", err)
	}
	if stored.Title != a.Title || stored.Source != a.Source {
		t.Errorf("stored article mismatch: %+v", stored)
	}
	// The primary summary must be mirrored into the map and the column
	if stored.SummaryTa != a.Summary {
		t.Errorf("summary_ta = %q, want mirror of summary", stored.SummaryTa)
	}
	if stored.Summaries["ta"] != a.Summary {
		t.Errorf("summaries[ta] = %q, want mirror of summary", stored.Summaries["ta"])
	}
	if !stored.PublishedAt.Equal(a.PublishedAt) {
		t.Errorf("published_at = %v, want %v", stored.PublishedAt, a.PublishedAt)
	}
	if stored.CreatedAt.IsZero() {
		t.Error("created_at was not set")
	}
}

func TestUpsertArticlesURLUnique(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	a := testArticle("https://example.com/news/unique")
	if _, err := db.UpsertArticles(ctx, []Article{a}); err != nil {
		t.Fatal(err)
	}
	// Re-ingesting the same URL must never create a second row
	if _, err := db.UpsertArticles(ctx, []Article{a}); err != nil {
		t.Fatal(err)
	}

	count, err := db.CountArticles(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("article count = %d, want 1", count)
	}
}

func TestUpsertArticlesIdempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	a := testArticle("https://example.com/news/idem")
	if _, err := db.UpsertArticles(ctx, []Article{a}); err != nil {
		t.Fatal(err)
	}

	// Unchanged content on a second run reports zero upserts
	n, err := db.UpsertArticles(ctx, []Article{a})
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("second identical upsert reported %d changes, want 0", n)
	}
}

func TestUpsertArticlesMerge(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first := testArticle("https://example.com/news/merge")
	first.Description = ""
	first.ImageURL = ""
	first.PublishedAt = time.Time{}
	if _, err := db.UpsertArticles(ctx, []Article{first}); err != nil {
		t.Fatal(err)
	}

	second := first
	second.Description = "விரிவான விளக்கம்"
	second.ImageURL = "https://example.com/img.jpg"
	second.PublishedAt = time.Date(2026, 8, 30, 9, 30, 0, 0, time.UTC)
	second.Title = "Different title that must not overwrite"

	n, err := db.UpsertArticles(ctx, []Article{second})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("merge reported %d changes, want 1", n)
	}

	stored, err := db.GetArticleByURL(ctx, first.URL)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Description != second.Description {
		t.Errorf("description was not backfilled: %q", stored.Description)
	}
	if stored.ImageURL != second.ImageURL {
		t.Errorf("image_url was not backfilled: %q", stored.ImageURL)
	}
	if !stored.PublishedAt.Equal(second.PublishedAt) {
		t.Errorf("published_at was not backfilled: %v", stored.PublishedAt)
	}
	if stored.Title != first.Title {
		t.Errorf("title was overwritten: %q", stored.Title)
	}
}

func TestUpsertArticlesSummaryReplacement(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		oldSummary string
		newSummary string
		want       string
	}{
		{
			name:       "new non-empty summary replaces old",
			oldSummary: "பழைய சுருக்கம்",
			newSummary: "புதிய சுருக்கம் இன்று வெளியானது",
			want:       "புதிய சுருக்கம் இன்று வெளியானது",
		},
		{
			name:       "empty new summary keeps good Tamil summary",
			oldSummary: "நல்ல தமிழ் சுருக்கம் இங்கே உள்ளது",
			newSummary: "",
			want:       "நல்ல தமிழ் சுருக்கம் இங்கே உள்ளது",
		},
		{
			name:       "empty new summary clears non-Tamil summary",
			oldSummary: "Breaking news happened in English",
			newSummary: "",
			want:       "",
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url := "https://example.com/news/summary-" + string(rune('a'+i))
			a := testArticle(url)
			a.Summary = tt.oldSummary
			if _, err := db.UpsertArticles(ctx, []Article{a}); err != nil {
				t.Fatal(err)
			}

			a.Summary = tt.newSummary
			if _, err := db.UpsertArticles(ctx, []Article{a}); err != nil {
				t.Fatal(err)
			}

			stored, err := db.GetArticleByURL(ctx, url)
			if err != nil {
				t.Fatal(err)
			}
			if stored.Summary != tt.want {
				t.Errorf("summary = %q, want %q", stored.Summary, tt.want)
			}
		})
	}
}

func TestGetRecentArticles(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	var batch []Article
	for i := 0; i < 5; i++ {
		a := testArticle("https://example.com/news/recent-" + string(rune('a'+i)))
		a.PublishedAt = base.Add(time.Duration(i) * time.Hour)
		batch = append(batch, a)
	}
	if _, err := db.UpsertArticles(ctx, batch); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetRecentArticles(ctx, 3)
	if err != nil {
		t.Fatalf("GetRecentArticles: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d articles, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].PublishedAt.After(got[i-1].PublishedAt) {
			t.Errorf("articles not ordered newest first: %v before %v",
				got[i-1].PublishedAt, got[i].PublishedAt)
		}
	}

	if _, err := db.GetRecentArticles(ctx, 0); err != ErrInvalidInput {
		t.Errorf("limit 0 error = %v, want ErrInvalidInput", err)
	}
}

func TestGetArticleByURLNotFound(t *testing.T) {
	db := setupTestDB(t)
	if _, err := db.GetArticleByURL(context.Background(), "https://example.com/missing"); err != ErrNotFound {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestSaveTranslations(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	a := testArticle("https://example.com/news/translated")
	if _, err := db.UpsertArticles(ctx, []Article{a}); err != nil {
		t.Fatal(err)
	}
	stored, err := db.GetArticleByURL(ctx, a.URL)
	if err != nil {
		t.Fatal(err)
	}

	stored.SetSummary("en", "Heavy rain in Chennai, schools closed.")
	if err := db.SaveTranslations(ctx, []*Article{&stored}); err != nil {
		t.Fatalf("SaveTranslations: %v", err)
	}

	reread, err := db.GetArticleByURL(ctx, a.URL)
	if err != nil {
		t.Fatal(err)
	}
	if reread.SummaryEn != "Heavy rain in Chennai, schools closed." {
		t.Errorf("summary_en = %q", reread.SummaryEn)
	}
	if reread.Summaries["en"] != reread.SummaryEn {
		t.Errorf("summaries map not mirrored: %v", reread.Summaries)
	}
	// Untouched fields stay put
	if reread.Summary != a.Summary {
		t.Errorf("primary summary changed: %q", reread.Summary)
	}
}

func TestSummaryForPrefersColumn(t *testing.T) {
	a := Article{
		Summaries: map[string]string{"en": "from map", "fr": "french"},
		SummaryEn: "from column",
	}
	if got := a.SummaryFor("en"); got != "from column" {
		t.Errorf("SummaryFor(en) = %q, want column value", got)
	}
	if got := a.SummaryFor("fr"); got != "french" {
		t.Errorf("SummaryFor(fr) = %q, want map value", got)
	}
	if got := a.SummaryFor("de"); got != "" {
		t.Errorf("SummaryFor(de) = %q, want empty", got)
	}
}
