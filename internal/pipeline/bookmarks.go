package pipeline

import (
	"log/slog"
	"strings"
	"time"

	"github.com/thomaskoefod/podcast-briefing/internal/logging"
	"github.com/thomaskoefod/podcast-briefing/pkg/models"
)

// Cutoff is days before now, with now's local wall-clock reading taken as
// UTC so a "last N days" window follows the operator's calendar.
func Cutoff(now time.Time, days int) time.Time {
	return LocalWallclockAsUTC(now).AddDate(0, 0, -days)
}

// LocalWallclockAsUTC keeps t's local date and time fields but labels them UTC.
func LocalWallclockAsUTC(t time.Time) time.Time {
	l := t.Local()
	return time.Date(l.Year(), l.Month(), l.Day(), l.Hour(), l.Minute(), l.Second(), 0, time.UTC)
}

// FilterSince drops bookmarks created at or before since. Bookmarks whose
// timestamp cannot be read are kept.
func FilterSince(bookmarks []models.Bookmark, since time.Time) []models.Bookmark {
	out := bookmarks[:0:0]
	for _, b := range bookmarks {
		if created, err := time.Parse(time.RFC3339, b.Created); err == nil && !created.After(since) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// Dedupe keeps the first bookmark for each link. Bookmarks without a link
// are dropped with a warning.
func Dedupe(bookmarks []models.Bookmark, logger *slog.Logger) []models.Bookmark {
	if logger == nil {
		logger = logging.Discard()
	}
	seen := make(map[string]bool, len(bookmarks))
	out := make([]models.Bookmark, 0, len(bookmarks))
	for _, b := range bookmarks {
		link := strings.TrimSpace(b.Link)
		if link == "" {
			logger.Warn("dropping bookmark without link", "id", b.ID, "title", b.Title)
			continue
		}
		if seen[link] {
			continue
		}
		seen[link] = true
		b.Link = link
		out = append(out, b)
	}
	return out
}
