package models

import "time"

// Source identifies where a devotion broadcast came from
type Source string

const (
	SourceEmail    Source = "email"
	SourceMbox     Source = "mbox"
	SourceWhatsApp Source = "whatsapp"
	SourceTelegram Source = "telegram"
	SourceWebhook  Source = "webhook"
)

// FeedEntry is one stored broadcast. Message keeps the raw text so the widget can parse it itself
type FeedEntry struct {
	ID         string    `json:"id"`
	Source     Source    `json:"source"`
	Message    string    `json:"message"`
	ReceivedAt time.Time `json:"receivedAt"`
	Devotion   Devotion  `json:"parsed"`
}

// Feed is the devotions.json document, newest entry first
type Feed struct {
	Devotions []FeedEntry `json:"devotions"`
}
