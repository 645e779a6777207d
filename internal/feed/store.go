package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"devotion-feed/internal/devotion"
	"devotion-feed/internal/models"

	"github.com/google/uuid"
)

var ErrEmptyMessage = errors.New("empty devotion message")

// Store keeps the devotions.json feed on disk, newest broadcast first
type Store struct {
	mu         sync.Mutex
	path       string
	maxEntries int
	now        func() time.Time
}

// NewStore creates a Store writing to path and keeping at most maxEntries broadcasts
func NewStore(path string, maxEntries int) *Store {
	return &Store{
		path:       path,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Path returns the location of the feed file
func (s *Store) Path() string {
	return s.path
}

// Load reads the feed from disk. A missing file is an empty feed.
func (s *Store) Load() (*models.Feed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// AddMessage parses message and stores it as the latest broadcast.
// It reports false without touching the file when the same message is already stored.
func (s *Store) AddMessage(source models.Source, message string, receivedAt time.Time) (models.FeedEntry, bool, error) {
	message = normalize(message)
	if message == "" {
		return models.FeedEntry{}, false, ErrEmptyMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	feed, err := s.load()
	if err != nil {
		return models.FeedEntry{}, false, err
	}

	for _, existing := range feed.Devotions {
		if normalize(existing.Message) == message {
			return existing, false, nil
		}
	}

	if receivedAt.IsZero() {
		receivedAt = s.now()
	}

	entry := models.FeedEntry{
		ID:         uuid.New().String(),
		Source:     source,
		Message:    message,
		ReceivedAt: receivedAt,
		Devotion:   devotion.ParseAt(message, receivedAt),
	}

	feed.Devotions = append([]models.FeedEntry{entry}, feed.Devotions...)
	if s.maxEntries > 0 && len(feed.Devotions) > s.maxEntries {
		feed.Devotions = feed.Devotions[:s.maxEntries]
	}

	if err := s.save(feed); err != nil {
		return models.FeedEntry{}, false, err
	}
	return entry, true, nil
}

// Latest returns the newest parsed devotion, or the sample devotion when the feed is empty
func (s *Store) Latest() (models.Devotion, error) {
	feed, err := s.Load()
	if err != nil {
		return models.Devotion{}, err
	}
	if len(feed.Devotions) == 0 {
		return models.SampleDevotion, nil
	}

	// entries written by the widget's own webhook only carry the raw message
	latest := feed.Devotions[0]
	if latest.Devotion.Title == "" {
		receivedAt := latest.ReceivedAt
		if receivedAt.IsZero() {
			receivedAt = s.now()
		}
		return devotion.ParseAt(latest.Message, receivedAt), nil
	}
	return latest.Devotion, nil
}

func (s *Store) load() (*models.Feed, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return &models.Feed{Devotions: []models.FeedEntry{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading feed: %w", err)
	}

	var feed models.Feed
	if err := json.Unmarshal(data, &feed); err != nil {
		return nil, fmt.Errorf("decoding feed %s: %w", s.path, err)
	}
	if feed.Devotions == nil {
		feed.Devotions = []models.FeedEntry{}
	}
	return &feed, nil
}

// save writes through a temp file in the same directory so readers never see a partial feed
func (s *Store) save(feed *models.Feed) error {
	data, err := json.MarshalIndent(feed, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding feed: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating feed dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".devotions-*.json")
	if err != nil {
		return fmt.Errorf("creating temp feed: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing temp feed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp feed: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod temp feed: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replacing feed: %w", err)
	}
	return nil
}

func normalize(message string) string {
	return strings.TrimSpace(strings.ReplaceAll(message, "\r\n", "\n"))
}
