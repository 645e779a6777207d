// Package devotion splits a daily devotion broadcast into the fields shown by the widget.
//
// Parsing is a fixed sequence of line heuristics over a shrinking pool of lines:
// date, greeting, verse, closing block, and whatever is left becomes the body text.
// Each heuristic removes the line(s) it claims before the next one runs. Missing
// fields fall back to defaults, so parsing never fails.
package devotion

import (
	"regexp"
	"strings"
	"time"

	"devotion-feed/internal/models"
)

const (
	Title           = "Daily Devotion"
	DefaultGreeting = "Good morning"
	DefaultClosing  = "Have a blessed day and may God bless you. TY......."

	// DateLayout renders the fallback date the way en-US toLocaleDateString does
	DateLayout = "1/2/2006"
)

var datePattern = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`)

// BookNames are matched as plain substrings, so prose mentioning "Peter" or "James" also counts as a verse
var BookNames = []string{
	"Proverbs", "Psalm", "John", "Matthew", "Romans", "Ephesians", "Philippians",
	"Colossians", "Timothy", "Peter", "James", "Hebrews", "Revelation",
}

// ClosingMarkers start the sign-off block
var ClosingMarkers = []string{"TY.......", "Have a blessed day"}

// Parse splits raw into a Devotion, using today's date when the message carries none
func Parse(raw string) models.Devotion {
	return ParseAt(raw, time.Now())
}

// ParseAt is Parse with an explicit clock for the date fallback
func ParseAt(raw string, now time.Time) models.Devotion {
	lines := splitLines(raw)
	d := models.Devotion{Title: Title}

	if len(lines) > 0 && datePattern.MatchString(lines[0]) {
		d.Date = lines[0]
		lines = lines[1:]
	}

	if len(lines) > 0 && strings.Contains(strings.ToLower(lines[0]), "good morning") {
		d.Greeting = strings.TrimSpace(strings.Replace(lines[0], ",", "", 1))
		lines = lines[1:]
	}

	// a verse-like line inside the closing block belongs to the closing
	closingAt := indexOfAny(lines, ClosingMarkers)
	if closingAt == -1 {
		closingAt = len(lines)
	}
	if i := indexOfAny(lines[:closingAt], BookNames); i != -1 {
		d.Verse = lines[i]
		lines = append(lines[:i:i], lines[i+1:]...)
	}

	if i := indexOfAny(lines, ClosingMarkers); i != -1 {
		d.Closing = joinNonBlank(lines[i:])
		lines = lines[:i]
	}

	d.Text = joinNonBlank(lines)

	if d.Date == "" {
		d.Date = now.Format(DateLayout)
	}
	if d.Greeting == "" {
		d.Greeting = DefaultGreeting
	}
	if d.Closing == "" {
		d.Closing = DefaultClosing
	}

	return d
}

// splitLines trims the message and every line. Blank lines stay in the pool,
// so a blank line after the date means the greeting is not on the first line.
func splitLines(raw string) []string {
	lines := strings.Split(strings.TrimSpace(raw), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return lines
}

func joinNonBlank(lines []string) string {
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, " ")
}

func indexOfAny(lines []string, needles []string) int {
	for i, line := range lines {
		for _, needle := range needles {
			if strings.Contains(line, needle) {
				return i
			}
		}
	}
	return -1
}
