// Package extract fetches the readable text of a visited page.
package extract

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/sirupsen/logrus"

	"github.com/runnerr0/chronicle-index/internal/config"
)

// Extractor returns the plain-text content of a page. Implementations must
// honour the context deadline.
type Extractor interface {
	Extract(ctx context.Context, url string) (string, error)
	Close() error
}

// New returns the extractor selected by cfg.Mode.
func New(cfg config.ExtractorConfig, logger *logrus.Logger) (Extractor, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	switch strings.ToLower(cfg.Mode) {
	case "", "http":
		return NewHTTPExtractor(cfg, logger), nil
	case "browser":
		return NewBrowserExtractor(cfg, logger), nil
	case "none", "off":
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("unknown extractor mode %q", cfg.Mode)
	}
}

// Noop extracts nothing. Entries are indexed by title only.
type Noop struct{}

func (Noop) Extract(context.Context, string) (string, error) { return "", nil }
func (Noop) Close() error                                    { return nil }

var (
	strictPolicy = bluemonday.StrictPolicy()
	spaceRun     = regexp.MustCompile(`[ \t\f\v\r\x{00a0}]+`)
	anySpace     = regexp.MustCompile(`[\s\x{00a0}]+`)
	blankLines   = regexp.MustCompile(`\n\s*\n+`)
)

// HTMLToText strips all markup from an HTML fragment and collapses
// whitespace to single spaces. Script and style bodies are dropped.
func HTMLToText(fragment string) string {
	// Tags become separators so adjacent blocks don't fuse into one word.
	fragment = strings.ReplaceAll(fragment, "<", " <")
	text := html.UnescapeString(strictPolicy.Sanitize(fragment))
	return strings.TrimSpace(anySpace.ReplaceAllString(text, " "))
}

// normalizeSpace collapses runs of spaces, trims every line and keeps at
// most one blank line between paragraphs.
func normalizeSpace(text string) string {
	text = spaceRun.ReplaceAllString(text, " ")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	text = strings.Join(lines, "\n")
	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// truncate caps s at max runes; max <= 0 disables the cap.
func truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

// remaining returns the time left before ctx's deadline, or def.
func remaining(ctx context.Context, def time.Duration) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 {
			return d
		}
		return time.Millisecond
	}
	return def
}
