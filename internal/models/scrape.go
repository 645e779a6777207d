package models

// ScrapeResult represents the result of a channel scraping attempt
type ScrapeResult int

const (
	ScrapeFailed ScrapeResult = iota
	ScrapeSuccess
	ScrapeEmpty
)
