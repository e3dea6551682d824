// Package console prints stage progress and briefing outlines for the
// command-line tools.
package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/thomaskoefod/podcast-briefing/pkg/models"
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	HelpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	StatusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	StageStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))
)

// Console writes human progress. It is not safe for concurrent use; the
// pipeline reports from a single goroutine.
type Console struct {
	out  io.Writer
	dots int
}

func New(out io.Writer) *Console {
	return &Console{out: out}
}

func (c *Console) StageStarted(name string, total int) {
	if total > 0 {
		fmt.Fprintf(c.out, "%s %s %s\n", StageStyle.Render("→"), name, HelpStyle.Render(fmt.Sprintf("(%d)", total)))
		return
	}
	fmt.Fprintf(c.out, "%s %s\n", StageStyle.Render("→"), name)
}

func (c *Console) ItemDone(ok bool) {
	c.dots++
	if ok {
		fmt.Fprint(c.out, StatusStyle.Render("."))
		return
	}
	fmt.Fprint(c.out, warnStyle.Render("x"))
}

func (c *Console) StageFinished(name string, ok, total int) {
	if c.dots > 0 {
		fmt.Fprintln(c.out)
		c.dots = 0
	}
	mark := StatusStyle.Render("✓")
	if total > 0 && ok < total {
		mark = warnStyle.Render("!")
	}
	fmt.Fprintf(c.out, "%s %s: %d/%d\n", mark, name, ok, total)
}

func (c *Console) Infof(format string, args ...any) {
	fmt.Fprintf(c.out, "  %s\n", HelpStyle.Render(fmt.Sprintf(format, args...)))
}

func (c *Console) Error(err error) {
	fmt.Fprintf(c.out, "%s\n", ErrorStyle.Render("Error: "+err.Error()))
}

// Saved prints the final counts for a written briefing.
func (c *Console) Saved(path string, data *models.BriefingData) {
	counts := Counts(data)
	fmt.Fprintf(c.out, "\n%s\n", TitleStyle.Render(fmt.Sprintf("%s briefing saved", data.Show.Name)))
	fmt.Fprintf(c.out, "  %d stories in %d topics (%d summarized, %d insufficient, %d failed)\n",
		data.StoryCount(), len(data.Topics), counts.Usable, counts.Insufficient, counts.Failed)
	fmt.Fprintf(c.out, "  %s\n", HelpStyle.Render(path))
}

// Preview renders the briefing outline as terminal markdown.
func (c *Console) Preview(data *models.BriefingData, width int) error {
	out, err := Render(Outline(data), "auto", width)
	if err != nil {
		return err
	}
	fmt.Fprint(c.out, out)
	return nil
}

// Render turns markdown into styled terminal text. style is a glamour
// style name; "auto" picks one from the terminal background.
func Render(markdown, style string, width int) (string, error) {
	if width <= 0 {
		width = 80
	}
	styleOpt := glamour.WithStandardStyle(style)
	if style == "" || style == "auto" {
		styleOpt = glamour.WithAutoStyle()
	}

	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return "", fmt.Errorf("creating markdown renderer: %w", err)
	}
	out, err := r.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return out, nil
}

type SummaryCounts struct {
	Usable       int
	Insufficient int
	Failed       int
}

func Counts(data *models.BriefingData) SummaryCounts {
	var c SummaryCounts
	for _, t := range data.Topics {
		for _, s := range t.Stories {
			switch s.Summary.Kind() {
			case models.KindEditorial, models.KindProduct:
				c.Usable++
			case models.KindFailed:
				c.Failed++
			default:
				c.Insufficient++
			}
		}
	}
	return c
}

// Outline lists topics and story ledes as markdown.
func Outline(data *models.BriefingData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", data.Show.Name)
	fmt.Fprintf(&b, "_%d stories in %d topics, collected %s_\n\n", data.StoryCount(), len(data.Topics), data.CreatedAt)

	for _, t := range data.Topics {
		fmt.Fprintf(&b, "## %s\n\n", t.Title)
		for _, s := range t.Stories {
			fmt.Fprintf(&b, "- **%s**", s.Title)
			switch s.Summary.Kind() {
			case models.KindEditorial, models.KindProduct:
				fmt.Fprintf(&b, ": %s", s.Summary.Lede())
			case models.KindFailed:
				b.WriteString(" _(summary failed)_")
			default:
				b.WriteString(" _(no summary)_")
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// StoryMarkdown is the full summary of one story.
func StoryMarkdown(s models.Story) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", s.Title)
	if s.Created != "" {
		fmt.Fprintf(&b, "_%s_\n\n", s.Created)
	}
	fmt.Fprintf(&b, "<%s>\n\n", s.URL)

	section := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "**%s** %s\n\n", label, value)
		}
	}

	if e, ok := s.Summary.Editorial(); ok {
		section("What's happening:", e.WhatsHappening)
		section("Why it matters:", e.WhyItMatters)
		section("The big picture:", e.BigPicture)
		if e.Quote != nil {
			fmt.Fprintf(&b, "> %s\n", *e.Quote)
		}
		return b.String()
	}
	if p, ok := s.Summary.Product(); ok {
		section("The product:", p.TheProduct)
		section("Cost:", p.Cost)
		section("Availability:", p.Availability)
		section("Platforms:", p.Platforms)
		if p.Quote != nil {
			fmt.Fprintf(&b, "> %s\n", *p.Quote)
		}
		return b.String()
	}
	if reason, ok := s.Summary.FailureReason(); ok {
		fmt.Fprintf(&b, "_Summary failed: %s_\n", reason)
		return b.String()
	}
	b.WriteString("_Insufficient content for summary._\n")
	return b.String()
}
