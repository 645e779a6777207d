package whatsapp

import (
	"context"
	"time"

	"devotion-feed/internal/logging"
	"devotion-feed/internal/models"

	"github.com/google/uuid"
)

// Sink stores accepted devotion broadcasts
type Sink interface {
	AddMessage(source models.Source, message string, receivedAt time.Time) (models.FeedEntry, bool, error)
}

type Service struct {
	scraper Scraper
	sink    Sink
	config  models.WhatsAppConfig
}

// NewService creates a channel poller storing new posts into sink
func NewService(scraper Scraper, sink Sink, cfg models.WhatsAppConfig) *Service {
	return &Service{
		scraper: scraper,
		sink:    sink,
		config:  cfg,
	}
}

// Poll scrapes the channel once and reports whether a new devotion was stored
func (s *Service) Poll() bool {
	traceID := uuid.New().String()
	locallog := logging.Log.WithField("trace_id", traceID)

	result, text, err := s.scraper.LatestPost(s.config.ChannelURL, s.config.Selector, traceID)
	if err != nil {
		locallog.WithError(err).Error("Scraper error")
		return false
	}

	switch result {
	case models.ScrapeEmpty:
		locallog.Info("No post found on channel page")
		return false
	case models.ScrapeFailed:
		return false
	}

	entry, added, err := s.sink.AddMessage(models.SourceWhatsApp, text, time.Now())
	if err != nil {
		locallog.WithError(err).Error("Failed to store channel post")
		return false
	}
	if !added {
		locallog.Debugf("Latest channel post already stored as %s", entry.ID)
		return false
	}

	locallog.Infof("Stored channel post %s", entry.ID)
	return true
}

// Run polls every RefreshTime until ctx is cancelled
func (s *Service) Run(ctx context.Context) {
	s.Poll()

	ticker := time.NewTicker(s.config.RefreshTime)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Poll()
		}
	}
}
