package whatsapp

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"devotion-feed/internal/logging"
	"devotion-feed/internal/models"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

const tempDirPattern = "rod-devotion-*"

var activeRodSessions atomic.Int32

// launchFunc starts a browser on userDataDir and returns its control URL and a kill function
type launchFunc func(userDataDir string) (string, func(), error)

type RodScraper struct {
	maxAttempts int
	launch      launchFunc
}

// NewRodScraper creates a scraper that launches a fresh headless browser per attempt
func NewRodScraper() *RodScraper {
	return &RodScraper{
		maxAttempts: 3,
		launch:      launchChromium,
	}
}

func launchChromium(userDataDir string) (string, func(), error) {
	l := launcher.New().
		Headless(true).
		NoSandbox(true).
		UserDataDir(userDataDir)

	u, err := l.Launch()
	if err != nil {
		l.Kill()
		return "", nil, err
	}
	return u, l.Kill, nil
}

// LatestPost opens the channel page and returns the text of the last element matching selector
func (rs *RodScraper) LatestPost(channelURL, selector, traceID string) (models.ScrapeResult, string, error) {
	locallog := logging.Log.WithField("trace_id", traceID)
	locallog.Info("Open channel page with rod: ", channelURL)

	var lastErr error
	for attempt := 1; attempt <= rs.maxAttempts; attempt++ {
		locallog.Infof("Attempt %d/%d (fresh browser & profile)", attempt, rs.maxAttempts)

		result, text, err := rs.attemptScrape(channelURL, selector, traceID)
		if err != nil {
			lastErr = err
			locallog.WithError(err).Warnf("Attempt %d error", attempt)
		}

		switch result {
		case models.ScrapeSuccess, models.ScrapeEmpty:
			return result, text, nil
		case models.ScrapeFailed:
			if attempt < rs.maxAttempts {
				backoff := time.Duration(attempt) * time.Second
				locallog.Infof("Retrying in %s", backoff)
				time.Sleep(backoff)
			}
		}
	}

	locallog.Warn("All attempts failed, giving up on channel page")
	return models.ScrapeFailed, "", lastErr
}

// attemptScrape performs a single page load and extraction.
func (rs *RodScraper) attemptScrape(channelURL, selector, traceID string) (models.ScrapeResult, string, error) {
	activeRodSessions.Add(1)
	defer activeRodSessions.Add(-1)

	locallog := logging.Log.WithField("trace_id", traceID)

	tmpDir, err := os.MkdirTemp("", tempDirPattern)
	if err != nil {
		locallog.WithError(err).Error("failed to create temp user data dir")
		return models.ScrapeFailed, "", err
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			locallog.WithError(err).Warn("failed to remove temp user data dir")
		}
	}()

	u, kill, err := rs.launch(tmpDir)
	if err != nil {
		return models.ScrapeFailed, "", err
	}
	defer kill()

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		return models.ScrapeFailed, "", err
	}
	defer func() { _ = browser.Close() }()

	page, err := browser.Page(proto.TargetCreateTarget{URL: channelURL})
	if err != nil {
		return models.ScrapeFailed, "", err
	}
	defer func() { _ = page.Close() }()

	if err := page.Timeout(30 * time.Second).WaitLoad(); err != nil {
		return models.ScrapeFailed, "", err
	}

	if _, err := page.Timeout(15 * time.Second).Element(selector); err != nil {
		locallog.Warnf("No element matches %q, channel has no visible post", selector)
		return models.ScrapeEmpty, "", nil
	}

	elements, err := page.Elements(selector)
	if err != nil {
		return models.ScrapeFailed, "", err
	}

	text := lastText(elements)
	if text == "" {
		return models.ScrapeEmpty, "", nil
	}
	return models.ScrapeSuccess, text, nil
}

// lastText returns the newest non-blank post text; channel pages list posts oldest first
func lastText(elements rod.Elements) string {
	for i := len(elements) - 1; i >= 0; i-- {
		text, err := elements[i].Text()
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			return text
		}
	}
	return ""
}

// StartCleanup removes stale rod profiles every interval until ctx is cancelled
func StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				CleanupTempDirs()
			}
		}
	}()
}

// CleanupTempDirs deletes leftover profiles unless a scrape is running. It returns the number removed.
func CleanupTempDirs() int {
	if activeRodSessions.Load() > 0 {
		logging.Log.Info("Skipping /tmp cleanup: active Rod sessions detected")
		return 0
	}

	matches, err := filepath.Glob(filepath.Join(os.TempDir(), tempDirPattern))
	if err != nil {
		logging.Log.WithError(err).Warn("Failed to glob temp directories")
		return 0
	}

	removed := 0
	for _, dir := range matches {
		if err := os.RemoveAll(dir); err != nil {
			logging.Log.WithError(err).Warnf("Failed to remove temp dir: %s", dir)
			continue
		}
		logging.Log.Infof("Cleaned up temp dir: %s", dir)
		removed++
	}
	return removed
}

// GetActiveSessionCount returns the current number of active Rod sessions (for testing)
func GetActiveSessionCount() int32 {
	return activeRodSessions.Load()
}
