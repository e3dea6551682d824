package models

// Bookmark is a saved link pulled from a bookmark source.
type Bookmark struct {
	ID      int64    `json:"_id"`
	Title   string   `json:"title"`
	Link    string   `json:"link"`
	Excerpt string   `json:"excerpt,omitempty"`
	Tags    []string `json:"tags"`
	Created string   `json:"created"`
}

// ArticleContent is the extracted body of an article.
type ArticleContent struct {
	Text          string `json:"text"`
	PublishedDate string `json:"published_date,omitempty"`
}

// Story is one summarized article inside a topic.
type Story struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Created string  `json:"created"`
	Summary Summary `json:"summary"`
}

// Topic groups related stories under a short title.
type Topic struct {
	Title   string  `json:"title"`
	Stories []Story `json:"stories"`
}

// ShowInfo identifies the show a briefing is prepared for.
type ShowInfo struct {
	Name string `json:"name" yaml:"name"`
	Slug string `json:"slug" yaml:"slug"`
	Tag  string `json:"tag" yaml:"tag"`
}

// BriefingData is the complete output of one collection run.
type BriefingData struct {
	Version   string   `json:"version"`
	ID        string   `json:"id,omitempty"`
	CreatedAt string   `json:"created_at"`
	Show      ShowInfo `json:"show"`
	Topics    []Topic  `json:"topics"`
}

// StoryCount returns the number of stories across all topics.
func (b *BriefingData) StoryCount() int {
	n := 0
	for _, t := range b.Topics {
		n += len(t.Stories)
	}
	return n
}
