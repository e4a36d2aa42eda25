// Package classify labels pages with a short topic using an
// OpenAI-compatible chat-completions endpoint (Ollama, llama.cpp, OpenAI).
package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/runnerr0/chronicle-index/internal/config"
)

// MaxLabelLength caps the returned topic label, in runes.
const MaxLabelLength = 40

const systemPrompt = `You categorise web pages for a personal browsing history.
Reply with a single short topic label of one to three words, such as
"Programming", "News", "Cooking", "Personal Finance" or "Travel".
Reply with the label only: no punctuation, no explanation.`

// RetryConfig controls backoff between attempts.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 2,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   5 * time.Second,
	}
}

// LLMClassifier asks a chat model for a topic label.
type LLMClassifier struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      RetryConfig
	logger     *logrus.Logger
}

// New builds a classifier from cfg. RequestsPerSecond <= 0 disables rate
// limiting.
func New(cfg config.ClassifierConfig, logger *logrus.Logger) *LLMClassifier {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		burst := int(math.Ceil(cfg.RequestsPerSecond))
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	retry := DefaultRetryConfig()
	if cfg.MaxRetries >= 0 {
		retry.MaxRetries = cfg.MaxRetries
	}

	return &LLMClassifier{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		retry:      retry,
		logger:     logger,
	}
}

// WithRetry overrides the backoff schedule.
func (c *LLMClassifier) WithRetry(r RetryConfig) *LLMClassifier {
	c.retry = r
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// statusError is an HTTP failure; 429 and 5xx are retried.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.code, e.body)
}

// transportError is a failure to get any response from the endpoint.
type transportError struct {
	err error
}

func (e *transportError) Error() string { return e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

// retryable reports whether err is a transport failure, a 429 or a 5xx.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	var te *transportError
	return errors.As(err, &te)
}

// Classify returns a normalised topic label for the page.
func (c *LLMClassifier) Classify(ctx context.Context, title, excerpt string) (string, error) {
	user := fmt.Sprintf("Title: %s\n\nContent:\n%s", title, excerpt)
	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: user},
		},
		Temperature: 0,
		MaxTokens:   16,
	}

	var raw string
	err := c.retryOperation(ctx, func() error {
		var err error
		raw, err = c.complete(ctx, req)
		return err
	})
	if err != nil {
		return "", err
	}

	label := NormalizeLabel(raw)
	if label == "" {
		return "", fmt.Errorf("classifier returned an empty label")
	}
	c.logger.WithFields(logrus.Fields{"title": title, "topic": label}).Debug("page classified")
	return label, nil
}

func (c *LLMClassifier) retryOperation(ctx context.Context, operation func() error) error {
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		err := operation()
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		if attempt >= c.retry.MaxRetries {
			return fmt.Errorf("classification failed after %d retries: %w", c.retry.MaxRetries, err)
		}

		delay := time.Duration(float64(c.retry.BaseDelay) * math.Pow(2, float64(attempt)))
		if c.retry.MaxDelay > 0 && delay > c.retry.MaxDelay {
			delay = c.retry.MaxDelay
		}

		c.logger.WithFields(logrus.Fields{
			"attempt": attempt + 1,
			"delay":   delay,
			"error":   err.Error(),
		}).Warn("retrying classification")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (c *LLMClassifier) complete(ctx context.Context, chat chatRequest) (string, error) {
	body, err := json.Marshal(chat)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := c.endpoint + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &transportError{err: fmt.Errorf("POST %s: %w", url, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(msg))}
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from %s", url)
	}
	return out.Choices[0].Message.Content, nil
}

// NormalizeLabel reduces a model reply to a bare label: first non-empty
// line, without list markers, quotes or trailing punctuation, at most
// MaxLabelLength runes.
func NormalizeLabel(raw string) string {
	var line string
	for _, l := range strings.Split(raw, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			line = l
			break
		}
	}

	line = strings.TrimPrefix(line, "Topic:")
	line = strings.TrimPrefix(line, "topic:")
	line = strings.TrimLeft(line, "-#> \t")
	line = strings.Trim(line, "\"'`“”‘’*_.!,;: \t")
	line = strings.Join(strings.Fields(line), " ")

	if r := []rune(line); len(r) > MaxLabelLength {
		line = strings.TrimSpace(string(r[:MaxLabelLength]))
	}
	return line
}
