// Package tui is an interactive browser for saved briefings.
package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/browser"

	"github.com/thomaskoefod/podcast-briefing/internal/console"
	"github.com/thomaskoefod/podcast-briefing/internal/stories"
)

type View int

const (
	ViewBriefings View = iota
	ViewStories
	ViewDetail
	ViewHelp
)

// Lister supplies saved briefings, newest first.
type Lister interface {
	List() ([]stories.Entry, error)
}

type Model struct {
	store     Lister
	view      View
	prev      View
	briefings list.Model
	stories   list.Model
	detail    viewport.Model
	current   *stories.Entry
	storyURL  string
	width     int
	height    int
	err       error
	statusMsg string
	open      func(string) error
}

// The launcher's own output would scribble over the alt screen.
func init() {
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
}

type briefingsLoadedMsg struct {
	entries []stories.Entry
}

type errorMsg struct {
	err error
}

type statusMsg string

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))
)

func newList(title string) list.Model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle
	return l
}

func New(store Lister) Model {
	return Model{
		store:     store,
		view:      ViewBriefings,
		briefings: newList("Saved Briefings"),
		stories:   newList("Stories"),
		detail:    viewport.New(0, 0),
		open:      browser.OpenURL,
	}
}

func (m Model) Init() tea.Cmd {
	return loadBriefings(m.store)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.briefings.SetSize(msg.Width, msg.Height-4)
		m.stories.SetSize(msg.Width, msg.Height-4)
		m.detail.Width = msg.Width
		m.detail.Height = msg.Height - 4
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case briefingsLoadedMsg:
		items := make([]list.Item, len(msg.entries))
		for i, e := range msg.entries {
			items[i] = briefingItem{e}
		}
		m.briefings.SetItems(items)
		m.err = nil
		m.statusMsg = fmt.Sprintf("Loaded %d briefings", len(msg.entries))
		return m, nil

	case errorMsg:
		m.err = msg.err
		return m, nil

	case statusMsg:
		m.statusMsg = string(msg)
		return m, nil
	}

	return m.updateActiveList(msg)
}

func (m Model) updateActiveList(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case ViewBriefings:
		m.briefings, cmd = m.briefings.Update(msg)
	case ViewStories:
		m.stories, cmd = m.stories.Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	}
	return m, cmd
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.view {
	case ViewBriefings:
		return m.handleBriefingKeys(msg)
	case ViewStories:
		return m.handleStoryKeys(msg)
	case ViewDetail:
		return m.handleDetailKeys(msg)
	case ViewHelp:
		return m.handleHelpKeys(msg)
	}
	return m, nil
}

func (m Model) filtering() bool {
	switch m.view {
	case ViewBriefings:
		return m.briefings.FilterState() == list.Filtering
	case ViewStories:
		return m.stories.FilterState() == list.Filtering
	}
	return false
}

func (m Model) handleBriefingKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.filtering() {
		return m.updateActiveList(msg)
	}

	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "enter":
		if i, ok := m.briefings.SelectedItem().(briefingItem); ok {
			entry := i.entry
			m.current = &entry
			m.stories.Title = entry.Data.Show.Name
			m.stories.ResetFilter()
			m.stories.Select(0)
			m.view = ViewStories
			return m, m.stories.SetItems(storyItems(entry.Data))
		}
		return m, nil

	case "r":
		return m, tea.Batch(
			loadBriefings(m.store),
			func() tea.Msg { return statusMsg("Refreshing briefings...") },
		)

	case "?":
		m.prev, m.view = m.view, ViewHelp
		return m, nil
	}

	return m.updateActiveList(msg)
}

func (m Model) handleStoryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.filtering() {
		return m.updateActiveList(msg)
	}

	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "esc", "backspace":
		m.view = ViewBriefings
		return m, nil

	case "enter":
		if i, ok := m.stories.SelectedItem().(storyItem); ok {
			m.storyURL = i.story.URL
			m.detail.SetContent(m.renderStory(i))
			m.detail.GotoTop()
			m.view = ViewDetail
		}
		return m, nil

	case "o":
		if i, ok := m.stories.SelectedItem().(storyItem); ok {
			return m, m.openURL(i.story.URL)
		}
		return m, nil

	case "?":
		m.prev, m.view = m.view, ViewHelp
		return m, nil
	}

	return m.updateActiveList(msg)
}

func (m Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "esc", "backspace":
		m.view = ViewStories
		return m, nil

	case "o":
		return m, m.openURL(m.storyURL)

	case "?":
		m.prev, m.view = m.view, ViewHelp
		return m, nil
	}

	return m.updateActiveList(msg)
}

func (m Model) handleHelpKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "?", "q":
		m.view = m.prev
		return m, nil
	}
	return m, nil
}

func (m Model) openURL(url string) tea.Cmd {
	open := m.open
	return func() tea.Msg {
		if err := open(url); err != nil {
			return errorMsg{fmt.Errorf("opening %s: %w", url, err)}
		}
		return statusMsg("Opened in browser")
	}
}

func (m Model) View() string {
	switch m.view {
	case ViewBriefings:
		return m.renderList(m.briefings, "enter: open briefing • r: refresh • /: filter • ?: help • q: quit")
	case ViewStories:
		return m.renderList(m.stories, "enter: read summary • o: open browser • esc: back • ?: help • q: quit")
	case ViewDetail:
		return m.renderDetail()
	case ViewHelp:
		return m.renderHelp()
	}
	return ""
}

func (m Model) renderStatus(s *strings.Builder) {
	if m.err != nil {
		s.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	} else if m.statusMsg != "" {
		s.WriteString(statusStyle.Render(m.statusMsg))
	}
	s.WriteString("\n")
}

func (m Model) renderList(l list.Model, help string) string {
	var s strings.Builder

	s.WriteString(l.View())
	s.WriteString("\n")
	m.renderStatus(&s)
	s.WriteString(helpStyle.Render(help))

	return s.String()
}

func (m Model) renderDetail() string {
	var s strings.Builder

	s.WriteString(m.detail.View())
	s.WriteString("\n")
	m.renderStatus(&s)
	s.WriteString(helpStyle.Render(fmt.Sprintf("%3.f%% • ↑/↓: scroll • o: open browser • esc: back • q: quit", m.detail.ScrollPercent()*100)))

	return s.String()
}

func (m Model) renderHelp() string {
	help := `
Briefing Review - Keyboard Shortcuts

Briefings:
  ↑/↓, j/k     Navigate briefings
  enter        Show stories
  r            Reload from disk
  /            Filter briefings
  q, ctrl+c    Quit

Stories:
  enter        Read summary
  o            Open article in browser
  /            Filter stories
  esc          Back to briefings

Summary:
  ↑/↓, pgup/pgdn  Scroll
  o            Open article in browser
  esc          Back to stories

General:
  ?            Show/hide this help
`
	return help + "\n" + helpStyle.Render("Press ? or esc to close help")
}

func (m Model) renderStory(i storyItem) string {
	md := fmt.Sprintf("_%s_\n\n%s", i.topic, console.StoryMarkdown(i.story))
	out, err := console.Render(md, "dark", m.width)
	if err != nil {
		return md
	}
	return out
}

func loadBriefings(store Lister) tea.Cmd {
	return func() tea.Msg {
		entries, err := store.List()
		if err != nil {
			return errorMsg{err}
		}
		return briefingsLoadedMsg{entries}
	}
}
