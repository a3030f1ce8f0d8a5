package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tamilnews/internal/lang"
)

// Error definitions
var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// TimeFormat is how timestamps are stored in the database (always UTC).
const TimeFormat = "2006-01-02 15:04:05"

// Article represents one news article keyed by its canonical URL.
type Article struct {
	ID          int64
	Title       string
	Description string
	URL         string
	Source      string
	Summary     string            // display text in the primary language
	Summaries   map[string]string // language code -> translated summary
	SummaryTa   string
	SummaryEn   string
	SummaryHi   string
	ImageURL    string
	Language    string
	PublishedAt time.Time
	CreatedAt   time.Time
	Processed   bool
}

// SummaryFor returns the cached summary for a language. The dedicated
// column is authoritative; the summaries map is a write-through mirror.
func (a *Article) SummaryFor(code string) string {
	switch code {
	case "ta":
		if a.SummaryTa != "" {
			return a.SummaryTa
		}
	case "en":
		if a.SummaryEn != "" {
			return a.SummaryEn
		}
	case "hi":
		if a.SummaryHi != "" {
			return a.SummaryHi
		}
	}
	return a.Summaries[code]
}

// SetSummary stores a translated summary in both the dedicated column
// (when one exists for the language) and the summaries map.
func (a *Article) SetSummary(code, text string) {
	switch code {
	case "ta":
		a.SummaryTa = text
	case "en":
		a.SummaryEn = text
	case "hi":
		a.SummaryHi = text
	}
	if a.Summaries == nil {
		a.Summaries = make(map[string]string)
	}
	a.Summaries[code] = text
}

func encodeSummaries(m map[string]string) (string, error) {
	if len(m) == 0 {
		return "", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("error encoding summaries: %w", err)
	}
	return string(data), nil
}

func decodeSummaries(s string) map[string]string {
	if s == "" {
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil
	}
	return m
}

func formatTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(TimeFormat)
}

func parseTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(TimeFormat, s.String)
	if err != nil {
		// Older rows may carry sqlite's own CURRENT_TIMESTAMP layout
		t, err = time.Parse("2006-01-02T15:04:05Z", s.String)
		if err != nil {
			return time.Time{}
		}
	}
	return t.UTC()
}

const articleColumns = `id, title, description, url, source, summary, summaries,
	summary_ta, summary_en, summary_hi, image_url, language,
	published_at, processed, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanArticle(row rowScanner) (Article, error) {
	var a Article
	var description, summary, summaries, summaryTa, summaryEn, summaryHi,
		imageURL sql.NullString
	var publishedAt, createdAt sql.NullString

	err := row.Scan(
		&a.ID, &a.Title, &description, &a.URL, &a.Source, &summary,
		&summaries, &summaryTa, &summaryEn, &summaryHi, &imageURL,
		&a.Language, &publishedAt, &a.Processed, &createdAt,
	)
	if err != nil {
		return Article{}, err
	}

	a.Description = description.String
	a.Summary = summary.String
	a.Summaries = decodeSummaries(summaries.String)
	a.SummaryTa = summaryTa.String
	a.SummaryEn = summaryEn.String
	a.SummaryHi = summaryHi.String
	a.ImageURL = imageURL.String
	a.PublishedAt = parseTime(publishedAt)
	a.CreatedAt = parseTime(createdAt)
	return a, nil
}

// GetArticleByURL looks up a single article by its canonical URL.
func (db *DB) GetArticleByURL(ctx context.Context, url string) (Article, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE url = ?`, url)
	a, err := scanArticle(row)
	if err == sql.ErrNoRows {
		return Article{}, ErrNotFound
	}
	return a, err
}

// GetRecentArticles retrieves the newest articles ordered by publish time.
func (db *DB) GetRecentArticles(ctx context.Context, limit int) ([]Article, error) {
	if limit < 1 {
		return nil, ErrInvalidInput
	}
	rows, err := db.QueryContext(ctx,
		`SELECT `+articleColumns+` FROM articles
		ORDER BY published_at DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// UpsertArticles persists a batch of candidate articles in one
// transaction. New URLs are inserted; existing rows are merged without
// overwriting populated fields. The summary is replaced only when the new
// one differs and is either non-empty or replacing text that is not
// actually Tamil. Returns the number of rows inserted or changed; a
// failed transaction is rolled back and reports zero.
func (db *DB) UpsertArticles(ctx context.Context, articles []Article) (int, error) {
	if len(articles) == 0 {
		return 0, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	upserted := 0
	for _, a := range articles {
		row := tx.QueryRowContext(ctx,
			`SELECT `+articleColumns+` FROM articles WHERE url = ?`, a.URL)
		existing, err := scanArticle(row)
		if err == sql.ErrNoRows {
			if err := insertArticle(ctx, tx, a); err != nil {
				return 0, fmt.Errorf("error inserting article %s: %w", a.URL, err)
			}
			upserted++
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("error looking up article %s: %w", a.URL, err)
		}

		changed, err := mergeArticle(ctx, tx, existing, a)
		if err != nil {
			return 0, fmt.Errorf("error merging article %s: %w", a.URL, err)
		}
		if changed {
			upserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return upserted, nil
}

func insertArticle(ctx context.Context, tx *sql.Tx, a Article) error {
	if a.Language == "" {
		a.Language = lang.DefaultLanguage
	}
	// Mirror the primary summary into the map and dedicated column
	if a.Summary != "" {
		a.SetSummary(a.Language, a.Summary)
	}
	summaries, err := encodeSummaries(a.Summaries)
	if err != nil {
		return err
	}
	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO articles (
			title, description, url, source, summary, summaries,
			summary_ta, summary_en, summary_hi, image_url, language,
			published_at, processed, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Title, a.Description, a.URL, a.Source, a.Summary, summaries,
		a.SummaryTa, a.SummaryEn, a.SummaryHi, a.ImageURL, a.Language,
		formatTime(a.PublishedAt), a.Processed, formatTime(created),
	)
	return err
}

func mergeArticle(ctx context.Context, tx *sql.Tx, old, candidate Article) (bool, error) {
	changed := false
	merged := old

	if candidate.Summary != old.Summary && (candidate.Summary != "" || !lang.IsTamil(old.Summary)) {
		merged.Summary = candidate.Summary
		merged.SetSummary(merged.Language, candidate.Summary)
		changed = true
	}
	if old.Description == "" && candidate.Description != "" {
		merged.Description = candidate.Description
		changed = true
	}
	if old.PublishedAt.IsZero() && !candidate.PublishedAt.IsZero() {
		merged.PublishedAt = candidate.PublishedAt
		changed = true
	}
	if old.ImageURL == "" && candidate.ImageURL != "" {
		merged.ImageURL = candidate.ImageURL
		changed = true
	}

	if !changed {
		return false, nil
	}

	summaries, err := encodeSummaries(merged.Summaries)
	if err != nil {
		return false, err
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE articles SET
			description = ?, summary = ?, summaries = ?,
			summary_ta = ?, summary_en = ?, summary_hi = ?,
			image_url = ?, published_at = ?
		WHERE id = ?`,
		merged.Description, merged.Summary, summaries,
		merged.SummaryTa, merged.SummaryEn, merged.SummaryHi,
		merged.ImageURL, formatTime(merged.PublishedAt), merged.ID,
	)
	return true, err
}

// SaveTranslations writes back the translated-summary fields of articles
// dirtied by the read path. Only translation fields are touched.
func (db *DB) SaveTranslations(ctx context.Context, articles []*Article) error {
	if len(articles) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`UPDATE articles SET summaries = ?, summary_ta = ?, summary_en = ?, summary_hi = ?
		WHERE id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range articles {
		summaries, err := encodeSummaries(a.Summaries)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			summaries, a.SummaryTa, a.SummaryEn, a.SummaryHi, a.ID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// CountArticles reports the total number of stored articles.
func (db *DB) CountArticles(ctx context.Context) (int64, error) {
	var n int64
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles").Scan(&n)
	return n, err
}
