package share

import (
	"fmt"
	"net/url"
	"strings"

	"devotion-feed/internal/models"
)

// Links builds the share targets offered under a devotion
func Links(d models.Devotion, pageURL, ministry string) models.ShareLinks {
	shareText := escape(fmt.Sprintf("Daily Devotion: %s\n\n%s\n\n%s\n\n- %s", d.Title, d.Verse, d.Text, ministry))
	fullShareText := escape(fmt.Sprintf("Check out this daily devotion from %s:\n\n\"%s\"\n\n%s\n\nRead more at: %s", ministry, d.Verse, d.Text, pageURL))
	shareURL := escape(pageURL)

	return models.ShareLinks{
		WhatsApp:  "https://wa.me/?text=" + fullShareText,
		Facebook:  "https://www.facebook.com/sharer/sharer.php?u=" + shareURL + "&quote=" + shareText,
		Twitter:   "https://twitter.com/intent/tweet?text=" + shareText + "&url=" + shareURL,
		LinkedIn:  "https://www.linkedin.com/sharing/share-offsite/?url=" + shareURL,
		Clipboard: fmt.Sprintf("%s\n\n%s\n\n- %s", d.Verse, d.Text, ministry),
	}
}

// escape matches encodeURIComponent, which keeps spaces as %20 and leaves !'()* alone
func escape(s string) string {
	escaped := strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
	return unreservedReplacer.Replace(escaped)
}

var unreservedReplacer = strings.NewReplacer(
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)
