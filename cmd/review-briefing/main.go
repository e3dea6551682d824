// Command review-briefing browses saved briefings in the terminal.
package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/thomaskoefod/podcast-briefing/internal/config"
	"github.com/thomaskoefod/podcast-briefing/internal/console"
	"github.com/thomaskoefod/podcast-briefing/internal/logging"
	"github.com/thomaskoefod/podcast-briefing/internal/stories"
	"github.com/thomaskoefod/podcast-briefing/internal/tui"
)

func main() {
	configPath := flag.String("config", config.DefaultConfigPath(), "path to config file")
	file := flag.String("file", "", "print one briefing outline instead of starting the browser")
	flag.Parse()

	out := console.New(os.Stdout)
	if err := run(*configPath, *file, out); err != nil {
		out.Error(err)
		os.Exit(1)
	}
}

func run(configPath, file string, out *console.Console) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if file != "" {
		data, err := stories.Load(file)
		if err != nil {
			return err
		}
		return out.Preview(data, 100)
	}

	logger := logging.New(cfg.Logging.Level, os.Stderr)
	store := stories.NewStore(cfg.Stories.Dir, logger)

	p := tea.NewProgram(tui.New(store), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running briefing browser: %w", err)
	}
	return nil
}
