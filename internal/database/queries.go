package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/thomaskoefod/podcast-briefing/pkg/models"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// GetArticle returns cached content for url, or nil when there is none.
func (db *DB) GetArticle(ctx context.Context, url string) (*models.ArticleContent, error) {
	query, args, err := psql.Select("text", "published_date").
		From("articles").
		Where(sq.Eq{"url": url}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building article query: %w", err)
	}

	var content models.ArticleContent
	err = db.QueryRowContext(ctx, query, args...).Scan(&content.Text, &content.PublishedDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying article: %w", err)
	}
	return &content, nil
}

// SaveArticle stores or replaces the extracted content for url.
func (db *DB) SaveArticle(ctx context.Context, url string, content *models.ArticleContent) error {
	if content == nil {
		return nil
	}

	query, args, err := psql.Insert("articles").
		Columns("url", "text", "published_date", "fetched_at").
		Values(url, content.Text, content.PublishedDate, now()).
		Suffix("ON CONFLICT(url) DO UPDATE SET text = excluded.text, published_date = excluded.published_date, fetched_at = excluded.fetched_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("building article insert: %w", err)
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting article: %w", err)
	}
	return nil
}

// GetSummary returns the cached summary for url, or nil when there is none.
func (db *DB) GetSummary(ctx context.Context, url string) (*models.Summary, error) {
	query, args, err := psql.Select("summary").
		From("summaries").
		Where(sq.Eq{"url": url}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building summary query: %w", err)
	}

	var raw string
	err = db.QueryRowContext(ctx, query, args...).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying summary: %w", err)
	}

	var summary models.Summary
	if err := json.Unmarshal([]byte(raw), &summary); err != nil {
		return nil, fmt.Errorf("decoding cached summary: %w", err)
	}
	return &summary, nil
}

// SaveSummary caches a summary. Failed summaries are skipped so the next run
// tries them again.
func (db *DB) SaveSummary(ctx context.Context, url string, summary models.Summary) error {
	if summary.Kind() == models.KindFailed {
		return nil
	}

	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}

	query, args, err := psql.Insert("summaries").
		Columns("url", "kind", "summary", "created_at").
		Values(url, string(summary.Kind()), string(data), now()).
		Suffix("ON CONFLICT(url) DO UPDATE SET kind = excluded.kind, summary = excluded.summary, created_at = excluded.created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("building summary insert: %w", err)
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting summary: %w", err)
	}
	return nil
}

// Prune removes cache entries written before cutoff.
func (db *DB) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	stamp := cutoff.UTC().Format(time.RFC3339)

	var total int64
	for table, column := range map[string]string{"articles": "fetched_at", "summaries": "created_at"} {
		query, args, err := psql.Delete(table).Where(sq.Lt{column: stamp}).ToSql()
		if err != nil {
			return total, fmt.Errorf("building prune for %s: %w", table, err)
		}
		res, err := db.ExecContext(ctx, query, args...)
		if err != nil {
			return total, fmt.Errorf("pruning %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}
