package share

import (
	"net/url"
	"strings"
	"testing"

	"devotion-feed/internal/models"
)

func TestEscape(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Spaces", input: "God is good", expected: "God%20is%20good"},
		{name: "Newlines", input: "a\n\nb", expected: "a%0A%0Ab"},
		{name: "Reserved", input: "a&b=c?d/e:f", expected: "a%26b%3Dc%3Fd%2Fe%3Af"},
		{name: "Unreserved punctuation", input: "God's (love)!*", expected: "God's%20(love)!*"},
		{name: "Plus sign", input: "1+1", expected: "1%2B1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := escape(tt.input); got != tt.expected {
				t.Errorf("escape(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLinks(t *testing.T) {
	d := models.Devotion{
		Title: "Daily Devotion",
		Verse: "John 3:16",
		Text:  "For God so loved the world.",
	}
	links := Links(d, "https://dove.example/?p=1", "Dove Ministries Africa")

	wa, err := url.Parse(links.WhatsApp)
	if err != nil {
		t.Fatalf("WhatsApp link does not parse: %v", err)
	}
	text := wa.Query().Get("text")
	if !strings.Contains(text, `"John 3:16"`) || !strings.Contains(text, "Read more at: https://dove.example/?p=1") {
		t.Errorf("Unexpected WhatsApp text: %q", text)
	}

	tw, err := url.Parse(links.Twitter)
	if err != nil {
		t.Fatalf("Twitter link does not parse: %v", err)
	}
	if got := tw.Query().Get("url"); got != "https://dove.example/?p=1" {
		t.Errorf("Twitter url = %q", got)
	}
	if got := tw.Query().Get("text"); !strings.HasPrefix(got, "Daily Devotion: Daily Devotion\n\nJohn 3:16") {
		t.Errorf("Twitter text = %q", got)
	}

	fb, err := url.Parse(links.Facebook)
	if err != nil {
		t.Fatalf("Facebook link does not parse: %v", err)
	}
	if fb.Query().Get("u") != "https://dove.example/?p=1" || fb.Query().Get("quote") == "" {
		t.Errorf("Unexpected Facebook query: %v", fb.Query())
	}

	if !strings.HasSuffix(links.LinkedIn, "url=https%3A%2F%2Fdove.example%2F%3Fp%3D1") {
		t.Errorf("LinkedIn = %q", links.LinkedIn)
	}

	expectedClipboard := "John 3:16\n\nFor God so loved the world.\n\n- Dove Ministries Africa"
	if links.Clipboard != expectedClipboard {
		t.Errorf("Clipboard = %q, want %q", links.Clipboard, expectedClipboard)
	}
}
