package emailprocessor

import (
	"strings"
	"time"

	imapclient "devotion-feed/internal/imap"
	"devotion-feed/internal/logging"
	"devotion-feed/internal/mailparse"
	"devotion-feed/internal/models"
)

// Sink stores accepted devotion broadcasts
type Sink interface {
	AddMessage(source models.Source, message string, receivedAt time.Time) (models.FeedEntry, bool, error)
}

type Processor struct {
	imapClient  imapclient.Client
	sink        Sink
	allowedFrom []string
	maxAge      time.Duration
}

// NewProcessor creates a Processor storing devotions from allowedFrom senders no older than maxAge
func NewProcessor(imapClient imapclient.Client, sink Sink, allowedFrom []string, maxAge time.Duration) *Processor {
	return &Processor{
		imapClient:  imapClient,
		sink:        sink,
		allowedFrom: allowedFrom,
		maxAge:      maxAge,
	}
}

// ProcessEmail orchestrates the complete email processing workflow:
// fetch → parse → validate age and sender → store → mark as seen
func (p *Processor) ProcessEmail(uid uint32) error {
	msg, err := p.imapClient.FetchMessage(uid)
	if err != nil {
		return err
	}

	email, err := mailparse.Parse(msg)
	if err != nil {
		logging.Log.WithField("trace_id", "unknown").Errorf("Error parsing email UID %d: %v", uid, err)
		return err
	}

	locallog := logging.Log.WithField("trace_id", email.TraceID)

	if !p.isEmailValidAt(email, time.Now()) {
		locallog.Infof("Message UID %d is older than %v (date: %v), skipping", uid, p.maxAge, email.Date)
		return nil
	}

	if !p.HandleEmail(email) {
		return nil
	}

	if err := p.imapClient.MarkSeen(uid); err != nil {
		locallog.Errorf("Error marking message UID %d as seen: %v", uid, err)
	}
	return nil
}

// HandleEmail filters the email and stores its body as a devotion. It reports whether the email was consumed.
func (p *Processor) HandleEmail(email *models.Email) bool {
	locallog := logging.Log.WithField("trace_id", email.TraceID)

	if !p.isSenderAllowed(email.From) {
		locallog.Infof("Email received from %s, skip ...", email.From)
		return false
	}

	if strings.TrimSpace(email.BodyText) == "" {
		locallog.Info("Empty email body, nothing to store")
		return false
	}

	entry, added, err := p.sink.AddMessage(models.SourceEmail, email.BodyText, email.Date)
	if err != nil {
		locallog.WithError(err).Error("Failed to store devotion")
		return false
	}

	if added {
		locallog.Infof("Stored devotion %s dated %s", entry.ID, entry.Devotion.Date)
	} else {
		locallog.Infof("Devotion already stored as %s", entry.ID)
	}
	return true
}

func (p *Processor) isSenderAllowed(from string) bool {
	if len(p.allowedFrom) == 0 {
		return true
	}
	for _, allowed := range p.allowedFrom {
		if strings.EqualFold(allowed, from) {
			return true
		}
	}
	return false
}

// isEmailValidAt allows testing with a fixed "now" time for deterministic unit tests
func (p *Processor) isEmailValidAt(email *models.Email, now time.Time) bool {
	if email.Date.IsZero() || p.maxAge <= 0 {
		return true
	}

	cutoff := now.Add(-p.maxAge)
	return !email.Date.Before(cutoff) // inclusive
}
