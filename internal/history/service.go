// Package history is the browsing-history indexing and retrieval engine.
// A Service ingests page visits (extract, classify, store), answers
// filtered and similarity queries, aggregates per-user statistics and
// deletes entries. All persistence goes through a storage.Store.
package history

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/runnerr0/chronicle-index/internal/storage"
)

// DefaultCollection is the collection name used when none is configured.
const DefaultCollection = "browsing_history"

// DefaultExtractTimeout bounds a single content extraction.
const DefaultExtractTimeout = 10 * time.Second

// Errors returned by Service. Store failures wrap ErrStore and are never
// confused with a skipped ingest.
var (
	ErrStore         = errors.New("index store failure")
	ErrMissingUserID = errors.New("userId is required")
	ErrInvalidVisit  = errors.New("invalid visit")
	ErrNotFound      = errors.New("entry not found")
)

// Extractor returns the plain-text content of a page.
type Extractor interface {
	Extract(ctx context.Context, url string) (string, error)
}

// Classifier returns a short topic label for a page.
type Classifier interface {
	Classify(ctx context.Context, title, excerpt string) (string, error)
}

// Service is the history engine. It is safe for concurrent use.
type Service struct {
	store          storage.Store
	extractor      Extractor
	classifier     Classifier
	logger         *logrus.Logger
	now            func() time.Time
	collectionName string
	extractTimeout time.Duration
	denyDomains    []string
	denyPatterns   []*regexp.Regexp

	mu   sync.Mutex
	coll storage.Collection
}

// Option configures a Service.
type Option func(*Service)

func WithExtractor(e Extractor) Option {
	return func(s *Service) { s.extractor = e }
}

func WithClassifier(c Classifier) Option {
	return func(s *Service) { s.classifier = c }
}

func WithLogger(l *logrus.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides time.Now for stats bucketing and timestamp defaults.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithCollection(name string) Option {
	return func(s *Service) {
		if strings.TrimSpace(name) != "" {
			s.collectionName = name
		}
	}
}

func WithExtractTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.extractTimeout = d
		}
	}
}

// WithDenylist skips visits whose host is (a subdomain of) one of domains,
// or whose URL matches one of patterns.
func WithDenylist(domains []string, patterns ...*regexp.Regexp) Option {
	return func(s *Service) {
		s.denyDomains = domains
		s.denyPatterns = patterns
	}
}

// NewService builds a Service over store. Without options it stores empty
// content and the default topic.
func NewService(store storage.Store, opts ...Option) *Service {
	s := &Service{
		store:          store,
		extractor:      noopExtractor{},
		classifier:     noopClassifier{},
		logger:         logrus.StandardLogger(),
		now:            time.Now,
		collectionName: DefaultCollection,
		extractTimeout: DefaultExtractTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// collection returns the collection handle, creating it on first use. A
// failed initialisation is not cached, so the next call retries.
func (s *Service) collection(ctx context.Context) (storage.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.coll != nil {
		return s.coll, nil
	}
	coll, err := s.store.EnsureCollection(ctx, s.collectionName)
	if err != nil {
		return nil, fmt.Errorf("%w: initialise collection %s: %v", ErrStore, s.collectionName, err)
	}
	s.coll = coll
	s.logger.WithField("collection", s.collectionName).Debug("history collection initialised")
	return coll, nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStore, op, err)
}

func entryFromRecord(r storage.Record) Entry {
	m := r.Metadata
	topic := m.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	return Entry{
		ID:        r.ID,
		URL:       m.URL,
		Title:     m.Title,
		Timestamp: m.Timestamp,
		Content:   r.Document,
		Topic:     topic,
		UserID:    m.UserID,
		Metadata:  EntryMetadata{Domain: m.Domain, Path: m.Path},
	}
}

type noopExtractor struct{}

func (noopExtractor) Extract(context.Context, string) (string, error) { return "", nil }

type noopClassifier struct{}

func (noopClassifier) Classify(context.Context, string, string) (string, error) {
	return DefaultTopic, nil
}
