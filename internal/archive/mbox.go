// Package archive backfills the feed from an exported mbox of past devotion emails.
package archive

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"devotion-feed/internal/logging"
	"devotion-feed/internal/mailparse"
	"devotion-feed/internal/models"

	"github.com/emersion/go-mbox"
)

// Sink stores accepted devotion broadcasts
type Sink interface {
	AddMessage(source models.Source, message string, receivedAt time.Time) (models.FeedEntry, bool, error)
}

// Stats summarizes one import run
type Stats struct {
	Read       int
	Added      int
	Duplicates int
	Skipped    int
	Failed     int
}

// ImportMbox reads every message of the archive at path and adds the ones from allowedFrom to sink, oldest first
func ImportMbox(path string, sink Sink, allowedFrom []string) (Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return Stats{}, err
	}
	defer f.Close()

	return Import(f, sink, allowedFrom)
}

// Import is ImportMbox over an already opened archive
func Import(r io.Reader, sink Sink, allowedFrom []string) (Stats, error) {
	var stats Stats
	var emails []*models.Email

	reader := mbox.NewReader(r)
	for {
		msgReader, err := reader.NextMessage()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("reading mbox: %w", err)
		}
		stats.Read++

		email, err := mailparse.ParseReader(msgReader)
		if err != nil {
			logging.Log.WithError(err).Warnf("Skipping unreadable message #%d", stats.Read)
			stats.Failed++
			continue
		}

		if !senderAllowed(email.From, allowedFrom) || strings.TrimSpace(email.BodyText) == "" {
			stats.Skipped++
			continue
		}
		emails = append(emails, email)
	}

	// the feed is newest first, so the newest message has to be added last
	sort.SliceStable(emails, func(i, j int) bool {
		return emails[i].Date.Before(emails[j].Date)
	})

	for _, email := range emails {
		locallog := logging.Log.WithField("trace_id", email.TraceID)

		_, added, err := sink.AddMessage(models.SourceMbox, email.BodyText, email.Date)
		switch {
		case err == nil && added:
			stats.Added++
		case err == nil:
			stats.Duplicates++
		default:
			locallog.WithError(err).Warn("Failed to store archived devotion")
			stats.Failed++
		}
	}

	logging.Log.WithField("read", stats.Read).
		WithField("added", stats.Added).
		WithField("duplicates", stats.Duplicates).
		Info("Mbox import finished")

	return stats, nil
}

func senderAllowed(from string, allowedFrom []string) bool {
	if len(allowedFrom) == 0 {
		return true
	}
	for _, allowed := range allowedFrom {
		if strings.EqualFold(allowed, from) {
			return true
		}
	}
	return false
}
