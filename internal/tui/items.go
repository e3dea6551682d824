package tui

import (
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/bubbles/list"

	"github.com/thomaskoefod/podcast-briefing/internal/stories"
	"github.com/thomaskoefod/podcast-briefing/pkg/models"
)

type briefingItem struct {
	entry stories.Entry
}

func (i briefingItem) Title() string {
	return fmt.Sprintf("%s (%s)", i.entry.Data.Show.Name, filepath.Base(i.entry.Path))
}

func (i briefingItem) Description() string {
	return fmt.Sprintf("%d stories | %d topics | %s", i.entry.Data.StoryCount(), len(i.entry.Data.Topics), i.entry.Data.CreatedAt)
}

func (i briefingItem) FilterValue() string {
	return i.entry.Data.Show.Name + " " + i.entry.Data.Show.Slug
}

type storyItem struct {
	topic string
	story models.Story
}

func (i storyItem) Title() string {
	return i.story.Title
}

func (i storyItem) Description() string {
	lede := i.story.Summary.Lede()
	if lede == "" {
		lede = string(i.story.Summary.Kind())
	}
	return fmt.Sprintf("[%s] %s", i.topic, lede)
}

func (i storyItem) FilterValue() string {
	return i.topic + " " + i.story.Title
}

func storyItems(data *models.BriefingData) []list.Item {
	items := make([]list.Item, 0, data.StoryCount())
	for _, t := range data.Topics {
		for _, s := range t.Stories {
			items = append(items, storyItem{topic: t.Title, story: s})
		}
	}
	return items
}

var (
	_ list.Item = briefingItem{}
	_ list.Item = storyItem{}
)
