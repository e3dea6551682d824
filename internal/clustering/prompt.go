package clustering

import (
	"fmt"
	"strings"

	"github.com/thomaskoefod/podcast-briefing/pkg/models"
)

const promptTemplate = `You are sorting a list of news articles for a tech podcast briefing.

GROUPING RULES (highest priority first):
1. If an article is mainly about one specific company (Google, Apple, Microsoft, Tesla, Meta, Amazon and so on), use the company name as the topic title
2. Put every article about the same company under that company's name
3. For articles not mainly about one company, use a descriptive topic such as "AI Development", "Privacy & Security" or "Industry News"
4. Keep topic names short (1-3 words), with company names written the way they are commonly known

Articles:
%s

Respond with JSON in this shape:
{
  "topics": [
    {"title": "Apple", "article_indices": [0, 3, 7]},
    {"title": "Google", "article_indices": [1, 5]},
    {"title": "AI Development", "article_indices": [2, 4, 6]}
  ]
}

Important: every article index from 0 to %d must appear in exactly one topic.`

// Manifest lists each story as "index: title - lede", one per line.
func Manifest(stories []models.Story) string {
	lines := make([]string, len(stories))
	for i, s := range stories {
		title := strings.Join(strings.Fields(s.Title), " ")
		lede := strings.Join(strings.Fields(s.Summary.Lede()), " ")
		lines[i] = fmt.Sprintf("%d: %s - %s", i, title, lede)
	}
	return strings.Join(lines, "\n")
}

func buildPrompt(stories []models.Story) string {
	return fmt.Sprintf(promptTemplate, Manifest(stories), len(stories)-1)
}
