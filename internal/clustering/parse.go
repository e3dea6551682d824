package clustering

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/thomaskoefod/podcast-briefing/pkg/models"
)

// ErrParse marks replies that could not be turned into topics.
var ErrParse = errors.New("parsing clustering reply")

// Group is one topic as the model proposed it, before validation.
type Group struct {
	Title   string
	Indices []int
}

type topicsReply struct {
	Topics *[]struct {
		Title          string `json:"title"`
		ArticleIndices []int  `json:"article_indices"`
	} `json:"topics"`
}

// Parse reads a clustering reply and assigns every story to exactly one
// topic. Out-of-range indices are dropped, a story claimed twice stays with
// the first topic that claimed it, and stories never claimed are collected
// into a trailing "Other" topic. Stories inside each topic are ordered by
// date. A reply yielding no topics at all is an ErrParse.
func Parse(reply string, stories []models.Story) ([]models.Topic, error) {
	groups, err := ParseGroups(reply)
	if err != nil {
		return nil, err
	}

	assigned := make([]bool, len(stories))
	var topics []models.Topic
	for _, g := range groups {
		var members []models.Story
		for _, idx := range g.Indices {
			if idx < 0 || idx >= len(stories) || assigned[idx] {
				continue
			}
			assigned[idx] = true
			members = append(members, stories[idx])
		}
		if len(members) == 0 {
			continue
		}

		title := strings.TrimSpace(g.Title)
		if title == "" {
			title = FallbackTitle
		}
		SortByDate(members)
		topics = append(topics, models.Topic{Title: title, Stories: members})
	}

	if len(topics) == 0 {
		return nil, fmt.Errorf("%w: no topics with valid stories", ErrParse)
	}

	var rest []models.Story
	for i, ok := range assigned {
		if !ok {
			rest = append(rest, stories[i])
		}
	}
	if len(rest) > 0 {
		SortByDate(rest)
		topics = append(topics, models.Topic{Title: OtherTitle, Stories: rest})
	}

	return topics, nil
}

// ParseGroups extracts the JSON object between the first '{' and the last
// '}' and reads either {"topics":[{"title","article_indices"}]} or a flat
// {"Title":[indices]} object, keeping key order.
func ParseGroups(reply string) ([]Group, error) {
	text := reply
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start >= 0 && end > start {
		text = reply[start : end+1]
	}

	var tr topicsReply
	if err := json.Unmarshal([]byte(text), &tr); err == nil && tr.Topics != nil {
		groups := make([]Group, 0, len(*tr.Topics))
		for _, t := range *tr.Topics {
			groups = append(groups, Group{Title: t.Title, Indices: t.ArticleIndices})
		}
		return groups, nil
	}

	groups, err := parseFlat(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return groups, nil
}

func parseFlat(text string) ([]Group, error) {
	dec := json.NewDecoder(strings.NewReader(text))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("reply is not a JSON object")
	}

	var groups []Group
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		title, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected key %v", tok)
		}

		var indices []int
		if err := dec.Decode(&indices); err != nil {
			return nil, fmt.Errorf("topic %q: %w", title, err)
		}
		groups = append(groups, Group{Title: title, Indices: indices})
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return groups, nil
}
