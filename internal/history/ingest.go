package history

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/runnerr0/chronicle-index/internal/storage"
)

// excerptRunes is how much content the topic classifier sees.
const excerptRunes = 1000

// Ingest indexes one visit. Search-engine result pages and denylisted
// sites are reported as skipped with a nil error. Extraction and
// classification failures degrade to empty content and DefaultTopic; only
// validation and store failures are returned as errors.
func (s *Service) Ingest(ctx context.Context, v Visit) (IngestResult, error) {
	if strings.TrimSpace(v.UserID) == "" {
		return IngestResult{}, ErrMissingUserID
	}
	if strings.TrimSpace(v.URL) == "" {
		return IngestResult{}, fmt.Errorf("%w: url is required", ErrInvalidVisit)
	}
	if v.Timestamp <= 0 {
		return IngestResult{}, fmt.Errorf("%w: timestamp must be positive epoch milliseconds", ErrInvalidVisit)
	}

	log := s.logger.WithFields(logrus.Fields{"url": v.URL, "user": v.UserID})

	if IsSearchEngineSkip(v.URL) {
		log.Debug("skipping search results page")
		return IngestResult{Skipped: true, SkipReason: SkipSearchEngine}, nil
	}

	domain, path := SplitURL(v.URL)
	if s.denied(domain, v.URL) {
		log.Debug("skipping denylisted site")
		return IngestResult{Skipped: true, SkipReason: SkipDenylisted}, nil
	}

	coll, err := s.collection(ctx)
	if err != nil {
		return IngestResult{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return IngestResult{}, fmt.Errorf("generate entry id: %w", err)
	}

	content := s.extract(ctx, v.URL, log)
	topic := s.classify(ctx, v.Title, content, log)

	entry := Entry{
		ID:        id.String(),
		URL:       v.URL,
		Title:     v.Title,
		Timestamp: v.Timestamp,
		Content:   content,
		Topic:     topic,
		UserID:    v.UserID,
		Metadata:  EntryMetadata{Domain: domain, Path: path},
	}

	err = coll.Add(ctx, storage.Record{
		ID: entry.ID,
		Metadata: storage.Metadata{
			URL:       entry.URL,
			Title:     entry.Title,
			Timestamp: entry.Timestamp,
			Topic:     entry.Topic,
			UserID:    entry.UserID,
			Domain:    domain,
			Path:      path,
		},
		Document: content,
	})
	if err != nil {
		return IngestResult{}, storeErr("add entry", err)
	}

	log.WithFields(logrus.Fields{"id": entry.ID, "topic": topic, "chars": len(content)}).Info("entry indexed")
	return IngestResult{Entry: &entry}, nil
}

func (s *Service) denied(domain, rawURL string) bool {
	if domainDenied(domain, s.denyDomains) {
		return true
	}
	for _, re := range s.denyPatterns {
		if re.MatchString(rawURL) || re.MatchString(domain) {
			return true
		}
	}
	return false
}

func (s *Service) extract(ctx context.Context, url string, log *logrus.Entry) string {
	ctx, cancel := context.WithTimeout(ctx, s.extractTimeout)
	defer cancel()

	content, err := s.extractor.Extract(ctx, url)
	if err != nil {
		log.WithError(err).Warn("content extraction failed, storing empty content")
		return ""
	}
	return content
}

func (s *Service) classify(ctx context.Context, title, content string, log *logrus.Entry) string {
	topic, err := s.classifier.Classify(ctx, title, excerpt(content, excerptRunes))
	if err != nil {
		log.WithError(err).Warn("topic classification failed, using default topic")
		return DefaultTopic
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return DefaultTopic
	}
	return topic
}

func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
