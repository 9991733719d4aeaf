package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// ScreenshotDebugger saves full-page captures when a step fails. A nil
// debugger does nothing.
type ScreenshotDebugger struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time
}

// NewScreenshotDebugger returns nil when dir is empty.
func NewScreenshotDebugger(dir string, logger *slog.Logger) (*ScreenshotDebugger, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating screenshot dir: %w", err)
	}
	return &ScreenshotDebugger{dir: dir, logger: logger, now: time.Now}, nil
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Capture writes name_<timestamp>.png and returns its path.
func (d *ScreenshotDebugger) Capture(ctx context.Context, page Page, name, reason string) string {
	if d == nil || page == nil {
		return ""
	}
	file := fmt.Sprintf("%s_%s.png", unsafeName.ReplaceAllString(name, "_"), d.now().Format("2006-01-02_15-04-05"))
	path := filepath.Join(d.dir, file)
	if err := page.Screenshot(ctx, path); err != nil {
		d.logger.Warn("screenshot failed", "name", name, "reason", reason, "error", err)
		return ""
	}
	d.logger.Info("screenshot saved", "name", name, "reason", reason, "path", path)
	return path
}
