package mailparse

import (
	"html"
	"io"
	"regexp"
	"strings"

	"devotion-feed/internal/models"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

func init() {
	message.CharsetReader = charsetReader
}

// Parse normalizes a message fetched over IMAP
func Parse(msg *imap.Message) (*models.Email, error) {
	section := &imap.BodySectionName{}
	r := msg.GetBody(section)
	if r == nil {
		return nil, io.EOF
	}

	email, err := ParseReader(r)
	if err != nil {
		return nil, err
	}

	email.UID = msg.Uid
	if !msg.InternalDate.IsZero() {
		email.Date = msg.InternalDate
	}
	return email, nil
}

// ParseReader normalizes a raw RFC 5322 message, e.g. one entry of an mbox archive
func ParseReader(r io.Reader) (*models.Email, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return nil, err
	}

	email := &models.Email{
		TraceID: uuid.New().String(),
	}

	header := mr.Header

	// Extract From
	if fromList, err := header.AddressList("From"); err == nil && len(fromList) > 0 {
		email.From = strings.ToLower(fromList[0].Address)
	} else {
		email.From = strings.ToLower(extractEmailAddress(header.Get("From")))
	}

	// Subject decoding is lenient: fall back to the raw header
	if subject, err := header.Subject(); err == nil {
		email.Subject = subject
	} else {
		email.Subject = header.Get("Subject")
	}

	if date, err := header.Date(); err == nil {
		email.Date = date
	}

	var htmlBody string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}

		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, err := h.ContentType()
		if err != nil {
			// RFC 2045 default for a missing header
			if h.Get("Content-Type") != "" {
				continue
			}
			contentType = "text/plain"
		}
		body, err := io.ReadAll(p.Body)
		if err != nil {
			continue
		}

		switch contentType {
		case "text/plain":
			if email.BodyText == "" {
				email.BodyText = string(body)
			}
		case "text/html":
			if htmlBody == "" {
				htmlBody = string(body)
			}
		}
	}

	if email.BodyText == "" && htmlBody != "" {
		email.BodyText = HTMLToText(htmlBody)
	}

	return email, nil
}

// Simple regex to extract email address from "From" header, which may contain name and email
func extractEmailAddress(fromHeader string) string {
	return emailAddress.FindString(fromHeader)
}

var (
	emailAddress  = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	lineBreakTags = regexp.MustCompile(`(?i)<br\s*/?>|</p\s*>|</div\s*>|</li\s*>`)
	anyTag        = regexp.MustCompile(`(?s)<[^>]*>`)
)

// HTMLToText keeps line structure of an HTML body so the devotion line heuristics still apply
func HTMLToText(body string) string {
	text := lineBreakTags.ReplaceAllString(body, "\n")
	text = anyTag.ReplaceAllString(text, "")
	return html.UnescapeString(text)
}

// charsetReader converts non UTF-8 bodies and headers using the IANA charset registry
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	if charset == "" {
		return input, nil
	}
	enc, err := ianaindex.IANA.Encoding(strings.ToLower(charset))
	if err != nil || enc == nil {
		return input, nil
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}
