// Package stories saves and loads briefing files, the hand-off between
// collecting stories and preparing the show.
package stories

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/thomaskoefod/podcast-briefing/internal/logging"
	"github.com/thomaskoefod/podcast-briefing/pkg/models"
)

const Version = "1.0"

var (
	ErrNotFound           = errors.New("story file not found")
	ErrUnsupportedVersion = errors.New("unsupported story file version")
	ErrNoTopics           = errors.New("story file contains no topics")
)

// NewBriefing stamps topics with the current version and time.
func NewBriefing(id string, show models.ShowInfo, topics []models.Topic) *models.BriefingData {
	return &models.BriefingData{
		Version:   Version,
		ID:        id,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Show:      show,
		Topics:    topics,
	}
}

// Filename is the default file name for a show's briefing on a given day.
func Filename(show models.ShowInfo, day time.Time) string {
	slug := show.Slug
	if slug == "" {
		slug = strings.ToLower(show.Tag)
	}
	return fmt.Sprintf("%s-%s.json", slug, day.Format("2006-01-02"))
}

type Store struct {
	dir    string
	logger *slog.Logger
}

type Entry struct {
	Path string
	Data *models.BriefingData
}

func NewStore(dir string, logger *slog.Logger) *Store {
	return &Store{dir: dir, logger: logging.Component(logger, "stories")}
}

func (s *Store) Dir() string { return s.dir }

// Save writes data as indented JSON. A bare filename lands in the store
// directory; a path with a directory is used as given.
func (s *Store) Save(data *models.BriefingData, filename string) (string, error) {
	path := filename
	if filepath.Base(filename) == filename {
		path = filepath.Join(s.dir, filename)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating stories directory: %w", err)
	}

	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serializing briefing data: %w", err)
	}

	if err := os.WriteFile(path, out, 0644); err != nil {
		return "", fmt.Errorf("writing story file: %w", err)
	}
	return path, nil
}

// Load reads and validates a story file.
func Load(path string) (*models.BriefingData, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading story file %s: %w", path, err)
	}

	var data models.BriefingData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parsing story JSON from %s (the file may be corrupted): %w", path, err)
	}

	if data.Version != Version {
		return nil, fmt.Errorf("%w: %q, expected %s; regenerate it with collect-stories", ErrUnsupportedVersion, data.Version, Version)
	}
	if len(data.Topics) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoTopics, path)
	}

	return &data, nil
}

// List returns every loadable story file, newest first. Files that fail to
// load are logged and skipped.
func (s *Store) List() ([]Entry, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading stories directory: %w", err)
	}

	var files []Entry
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		data, err := Load(path)
		if err != nil {
			s.logger.Warn("could not load story file", "path", path, "error", err)
			continue
		}
		files = append(files, Entry{Path: path, Data: data})
	}

	slices.SortStableFunc(files, func(a, b Entry) int {
		ta, _ := time.Parse(time.RFC3339, a.Data.CreatedAt)
		tb, _ := time.Parse(time.RFC3339, b.Data.CreatedAt)
		return tb.Compare(ta)
	})
	return files, nil
}
