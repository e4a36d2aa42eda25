package extract

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
	"github.com/sirupsen/logrus"

	"github.com/runnerr0/chronicle-index/internal/config"
)

// BrowserExtractor renders pages in headless Chrome so JavaScript-built
// content is captured. Chrome is launched (or connected to, when
// RemoteURL is set) on first use and shared between calls.
type BrowserExtractor struct {
	remoteURL string
	maxChars  int
	logger    *logrus.Logger

	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	closed  bool
}

func NewBrowserExtractor(cfg config.ExtractorConfig, logger *logrus.Logger) *BrowserExtractor {
	return &BrowserExtractor{
		remoteURL: cfg.RemoteURL,
		maxChars:  cfg.MaxChars,
		logger:    logger,
	}
}

// Extract opens url in a fresh stealth tab and returns document.body.innerText.
func (b *BrowserExtractor) Extract(ctx context.Context, url string) (string, error) {
	browser, err := b.connect()
	if err != nil {
		return "", err
	}

	page, err := stealth.Page(browser)
	if err != nil {
		return "", fmt.Errorf("browser: create tab: %w", err)
	}
	defer page.Close()

	p := page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return "", fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		b.logger.WithField("url", url).WithError(err).Warn("browser: wait load failed, reading partial page")
	}

	res, err := p.Eval(`() => document.body ? document.body.innerText : ""`)
	if err != nil {
		return "", fmt.Errorf("browser: read text: %w", err)
	}

	text := normalizeSpace(res.Value.Str())
	b.logger.WithFields(logrus.Fields{"url": url, "chars": len(text)}).Debug("page rendered")
	return truncate(text, b.maxChars), nil
}

func (b *BrowserExtractor) connect() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("browser: extractor is closed")
	}
	if b.browser != nil {
		return b.browser, nil
	}

	wsURL := b.remoteURL
	if wsURL == "" {
		l := launcher.New().
			Headless(true).
			Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		b.lnch = l
		wsURL = u
		b.logger.WithField("url", wsURL).Info("browser: launched local chrome")
	} else {
		b.logger.WithField("url", wsURL).Info("browser: connecting to remote")
	}

	browser := rod.New().ControlURL(wsURL)
	if err := browser.Connect(); err != nil {
		if b.lnch != nil {
			b.lnch.Kill()
			b.lnch = nil
		}
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	b.browser = browser
	return browser, nil
}

// Close shuts down Chrome if this extractor launched it.
func (b *BrowserExtractor) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	var err error
	if b.browser != nil {
		err = b.browser.Close()
		b.browser = nil
	}
	if b.lnch != nil {
		b.lnch.Kill()
		b.lnch.Cleanup()
		b.lnch = nil
	}
	return err
}
