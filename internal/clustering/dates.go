package clustering

import (
	"slices"
	"strings"
	"time"

	"github.com/thomaskoefod/podcast-briefing/pkg/models"
)

var sortLayouts = []string{
	"Mon, 2 Jan 2006",
	"Mon, 02 Jan 2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"2006-01-02",
	"Monday, 01/02/2006 3:04 PM",
	"Monday, 01/02/2006",
}

// ParseSortDate reads the date formats stories arrive in: RFC 3339 from
// bookmarks, a few date-only forms, and the display form the extractor
// writes.
func ParseSortDate(s string) (time.Time, bool) {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	for _, layout := range sortLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// SortByDate orders stories oldest first. Undatable stories go last and keep
// their relative order.
func SortByDate(stories []models.Story) {
	type dated struct {
		story models.Story
		at    time.Time
		ok    bool
	}

	items := make([]dated, len(stories))
	for i, s := range stories {
		at, ok := ParseSortDate(s.Created)
		items[i] = dated{story: s, at: at, ok: ok}
	}

	slices.SortStableFunc(items, func(a, b dated) int {
		switch {
		case a.ok && b.ok:
			return a.at.Compare(b.at)
		case a.ok:
			return -1
		case b.ok:
			return 1
		}
		return 0
	})

	for i, it := range items {
		stories[i] = it.story
	}
}
