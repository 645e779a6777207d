package emailprocessor

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"devotion-feed/internal/models"

	"github.com/emersion/go-imap"
)

type fakeSink struct {
	messages []string
	added    bool
	err      error
}

func (s *fakeSink) AddMessage(source models.Source, message string, receivedAt time.Time) (models.FeedEntry, bool, error) {
	if s.err != nil {
		return models.FeedEntry{}, false, s.err
	}
	s.messages = append(s.messages, message)
	return models.FeedEntry{ID: "entry-1", Source: source, Message: message}, s.added, nil
}

type fakeClient struct {
	msg      *imap.Message
	fetchErr error
	seen     []uint32
}

func (c *fakeClient) Connect(string) error       { return nil }
func (c *fakeClient) Login(string, string) error { return nil }
func (c *fakeClient) SelectMailbox(string) error { return nil }
func (c *fakeClient) ListUnseenUIDs(time.Duration, []string) ([]uint32, error) {
	return nil, nil
}
func (c *fakeClient) FetchMessage(uint32) (*imap.Message, error) { return c.msg, c.fetchErr }
func (c *fakeClient) MarkSeen(uid uint32) error {
	c.seen = append(c.seen, uid)
	return nil
}
func (c *fakeClient) Close() error { return nil }

func newMessage(uid uint32, raw string, internal time.Time) *imap.Message {
	section := &imap.BodySectionName{}
	return &imap.Message{
		Uid:          uid,
		InternalDate: internal,
		Body: map[*imap.BodySectionName]imap.Literal{
			section: bytes.NewBufferString(raw),
		},
	}
}

const devotionMail = "From: Pastor <pastor@example.com>\r\n" +
	"Subject: Devotion\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Good morning,\r\nPsalm 23:1\r\nBody.\r\n"

func TestIsEmailValid(t *testing.T) {
	p := &Processor{maxAge: 48 * time.Hour}
	now := time.Now()

	tests := []struct {
		name          string
		date          time.Time
		expectedValid bool
	}{
		{
			name:          "Email within window (1 hour ago)",
			date:          now.Add(-1 * time.Hour),
			expectedValid: true,
		},
		{
			name:          "Email at edge of window (48 hours ago)",
			date:          now.Add(-48 * time.Hour),
			expectedValid: true,
		},
		{
			name:          "Email outside window (3 days ago)",
			date:          now.Add(-72 * time.Hour),
			expectedValid: false,
		},
		{
			name:          "Email with zero date (always valid)",
			date:          time.Time{},
			expectedValid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			email := &models.Email{Date: tt.date}

			valid := p.isEmailValidAt(email, now)
			if valid != tt.expectedValid {
				t.Errorf("isEmailValidAt() = %v, want %v (date: %v)", valid, tt.expectedValid, tt.date)
			}
		})
	}
}

func TestHandleEmail_FilterBySender(t *testing.T) {
	sink := &fakeSink{added: true}
	p := NewProcessor(nil, sink, []string{"pastor@example.com"}, time.Hour)

	if p.HandleEmail(&models.Email{From: "spam@example.com", BodyText: "Body", TraceID: "t"}) {
		t.Error("Expected email to be rejected due to wrong sender")
	}
	if len(sink.messages) != 0 {
		t.Errorf("Expected nothing stored, got %v", sink.messages)
	}

	if !p.HandleEmail(&models.Email{From: "PASTOR@example.com", BodyText: "Body", TraceID: "t"}) {
		t.Error("Expected sender match to be case-insensitive")
	}
}

func TestHandleEmail_EmptyBody(t *testing.T) {
	p := NewProcessor(nil, &fakeSink{added: true}, nil, time.Hour)

	if p.HandleEmail(&models.Email{From: "pastor@example.com", BodyText: " \r\n", TraceID: "t"}) {
		t.Error("Expected email to be rejected due to empty body")
	}
}

func TestHandleEmail_Duplicate(t *testing.T) {
	p := NewProcessor(nil, &fakeSink{added: false}, nil, time.Hour)

	if !p.HandleEmail(&models.Email{From: "pastor@example.com", BodyText: "Body", TraceID: "t"}) {
		t.Error("Expected duplicate to count as handled")
	}
}

func TestHandleEmail_SinkError(t *testing.T) {
	p := NewProcessor(nil, &fakeSink{err: errors.New("disk full")}, nil, time.Hour)

	if p.HandleEmail(&models.Email{From: "pastor@example.com", BodyText: "Body", TraceID: "t"}) {
		t.Error("Expected storage failure to leave email unhandled")
	}
}

func TestProcessEmail_StoresAndMarksSeen(t *testing.T) {
	client := &fakeClient{msg: newMessage(42, devotionMail, time.Now())}
	sink := &fakeSink{added: true}
	p := NewProcessor(client, sink, []string{"pastor@example.com"}, time.Hour)

	if err := p.ProcessEmail(42); err != nil {
		t.Fatalf("ProcessEmail() error: %v", err)
	}
	if len(sink.messages) != 1 || sink.messages[0] != "Good morning,\r\nPsalm 23:1\r\nBody.\r\n" {
		t.Errorf("Unexpected stored messages: %q", sink.messages)
	}
	if len(client.seen) != 1 || client.seen[0] != 42 {
		t.Errorf("Expected UID 42 marked seen, got %v", client.seen)
	}
}

func TestProcessEmail_TooOld(t *testing.T) {
	client := &fakeClient{msg: newMessage(7, devotionMail, time.Now().Add(-72*time.Hour))}
	sink := &fakeSink{added: true}
	p := NewProcessor(client, sink, nil, 48*time.Hour)

	if err := p.ProcessEmail(7); err != nil {
		t.Fatalf("ProcessEmail() error: %v", err)
	}
	if len(sink.messages) != 0 || len(client.seen) != 0 {
		t.Errorf("Expected old email to be skipped, stored=%v seen=%v", sink.messages, client.seen)
	}
}

func TestProcessEmail_FetchError(t *testing.T) {
	client := &fakeClient{fetchErr: errors.New("timeout")}
	p := NewProcessor(client, &fakeSink{}, nil, time.Hour)

	if err := p.ProcessEmail(1); err == nil {
		t.Error("Expected fetch error to be returned")
	}
}
