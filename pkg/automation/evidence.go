package automation

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Screenshotter is the slice of playwright.Page evidence capture needs.
type Screenshotter interface {
	Screenshot(options ...playwright.PageScreenshotOptions) ([]byte, error)
}

// Evidence writes full-page screenshots to a per-system, timestamped path
// under the screenshots directory. One capture per fill attempt, success or
// failure; the artifacts are write-only and never read back by the engine.
type Evidence struct {
	dir string
}

// NewEvidence creates an evidence recorder rooted at dir.
func NewEvidence(dir string) *Evidence {
	return &Evidence{dir: dir}
}

// Capture takes a full-page screenshot named by prefix and timestamp and
// returns its path.
func (e *Evidence) Capture(page Screenshotter, prefix string) (string, error) {
	if err := os.MkdirAll(e.dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create screenshots directory: %w", err)
	}

	path := filepath.Join(e.dir, fmt.Sprintf("%s_%s.png", prefix, time.Now().Format("20060102-150405")))
	if _, err := page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	}); err != nil {
		return "", fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return path, nil
}

// CaptureQuiet captures a failure screenshot, swallowing any capture error.
// Evidence capture must never itself crash the error path; the result is an
// empty path when the page was too broken to screenshot.
func (e *Evidence) CaptureQuiet(page Screenshotter, prefix string) string {
	path, err := e.Capture(page, prefix)
	if err != nil {
		return ""
	}
	return path
}
