package extractor

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DisplayLayout is the human-readable publish date format, minus the hour,
// which is space padded separately.
const DisplayLayout = "Monday, 01/02/2006"

var dateSelectors = []string{
	`meta[property="article:published_time"]`,
	`meta[property="og:published_time"]`,
	`meta[name="article:published_time"]`,
	`meta[name="publishdate"]`,
	`meta[name="publish_date"]`,
	`meta[name="date"]`,
	`meta[name="publication_date"]`,
	`meta[itemprop="datePublished"]`,
	`time[datetime]`,
}

// PublishedDate returns the first parseable date found by the selector list,
// formatted for display, or "" when none is found.
func PublishedDate(doc *goquery.Document) string {
	for _, sel := range dateSelectors {
		el := doc.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		for _, attr := range []string{"content", "datetime"} {
			if v, ok := el.Attr(attr); ok {
				if formatted, ok := FormatDate(v); ok {
					return formatted
				}
			}
		}
	}
	return ""
}

// FormatDate parses a full timestamp or a bare YYYY-MM-DD date (midnight
// UTC) and renders it as e.g. "Monday, 01/05/2026  9:30 AM".
func FormatDate(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		t, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return "", false
		}
	}
	return display(t.UTC()), true
}

func display(t time.Time) string {
	hour := t.Hour() % 12
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%s %2d:%s", t.Format(DisplayLayout), hour, t.Format("04 PM"))
}
