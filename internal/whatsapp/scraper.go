package whatsapp

import "devotion-feed/internal/models"

// Scraper reads the newest post of a public channel page
type Scraper interface {
	LatestPost(channelURL, selector, traceID string) (models.ScrapeResult, string, error)
}
