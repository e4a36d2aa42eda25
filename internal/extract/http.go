package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"

	"github.com/runnerr0/chronicle-index/internal/config"
)

// noiseSelectors are removed before text extraction.
const noiseSelectors = "script, style, noscript, template, svg, nav, header, footer, aside, form, iframe"

// HTTPExtractor fetches pages with a plain HTTP client (no JavaScript).
type HTTPExtractor struct {
	userAgent string
	maxChars  int
	timeout   time.Duration
	logger    *logrus.Logger
}

func NewHTTPExtractor(cfg config.ExtractorConfig, logger *logrus.Logger) *HTTPExtractor {
	ua := cfg.UserAgent
	if ua == "" {
		ua = config.DefaultConfig().Extractor.UserAgent
	}
	return &HTTPExtractor{
		userAgent: ua,
		maxChars:  cfg.MaxChars,
		timeout:   time.Duration(max(cfg.TimeoutSeconds, 1)) * time.Second,
		logger:    logger,
	}
}

// Extract downloads url and returns its visible text.
func (h *HTTPExtractor) Extract(ctx context.Context, url string) (string, error) {
	// One collector per call: colly collectors remember visited URLs.
	c := colly.NewCollector(
		colly.UserAgent(h.userAgent),
		colly.MaxBodySize(8<<20),
	)
	c.SetRequestTimeout(remaining(ctx, h.timeout))

	var (
		text   string
		status int
		visErr error
	)
	c.OnHTML("html", func(e *colly.HTMLElement) {
		body := e.DOM.Find("body")
		if body.Length() == 0 {
			body = e.DOM
		}
		body.Find(noiseSelectors).Remove()
		markup, err := body.Html()
		if err != nil {
			visErr = fmt.Errorf("render body: %w", err)
			return
		}
		text = HTMLToText(markup)
	})
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		if strings.HasPrefix(r.Headers.Get("Content-Type"), "text/plain") {
			text = normalizeSpace(string(r.Body))
		}
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		visErr = err
	})

	done := make(chan error, 1)
	go func() { done <- c.Visit(url) }()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("extract %s: %w", url, ctx.Err())
	case err := <-done:
		if err == nil {
			err = visErr
		}
		if err != nil {
			return "", fmt.Errorf("extract %s (status %d): %w", url, status, err)
		}
	}

	h.logger.WithFields(logrus.Fields{
		"url":    url,
		"status": status,
		"chars":  len(text),
	}).Debug("page extracted")

	return truncate(text, h.maxChars), nil
}

func (h *HTTPExtractor) Close() error { return nil }
