package history

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/runnerr0/chronicle-index/internal/storage"
)

// Stats aggregates all of userID's entries: per-domain counts, per-topic
// summaries ordered by count (ties keep first-seen order) and recency
// buckets relative to local midnight of the service clock.
func (s *Service) Stats(ctx context.Context, userID string) (*Stats, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrMissingUserID
	}

	coll, err := s.collection(ctx)
	if err != nil {
		return nil, err
	}

	records, err := coll.Get(ctx, storage.GetRequest{Filter: storage.Filter{UserID: userID}})
	if err != nil {
		return nil, storeErr("stats scan", err)
	}

	b := newBuckets(s.now())
	stats := &Stats{
		TotalEntries: len(records),
		Domains:      map[string]int{},
		Topics:       []TopicSummary{},
	}

	index := map[string]int{}
	for _, r := range records {
		m := r.Metadata
		stats.Domains[m.Domain]++

		topic := m.Topic
		if topic == "" {
			topic = DefaultTopic
		}
		if i, ok := index[topic]; ok {
			t := &stats.Topics[i]
			t.Count++
			t.FirstVisit = min(t.FirstVisit, m.Timestamp)
			t.LastVisit = max(t.LastVisit, m.Timestamp)
		} else {
			index[topic] = len(stats.Topics)
			stats.Topics = append(stats.Topics, TopicSummary{
				Topic:      topic,
				Count:      1,
				FirstVisit: m.Timestamp,
				LastVisit:  m.Timestamp,
			})
		}

		b.add(&stats.TimeRanges, m.Timestamp)
	}

	sort.SliceStable(stats.Topics, func(i, j int) bool {
		return stats.Topics[i].Count > stats.Topics[j].Count
	})
	return stats, nil
}

type buckets struct {
	today, yesterday, lastWeek, lastMonth int64
}

func newBuckets(now time.Time) buckets {
	y, m, d := now.Date()
	todayStart := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return buckets{
		today:     todayStart.UnixMilli(),
		yesterday: todayStart.AddDate(0, 0, -1).UnixMilli(),
		lastWeek:  todayStart.AddDate(0, 0, -7).UnixMilli(),
		lastMonth: todayStart.AddDate(0, 0, -30).UnixMilli(),
	}
}

func (b buckets) add(tr *TimeRanges, ts int64) {
	switch {
	case ts >= b.today:
		tr.Today++
	case ts >= b.yesterday:
		tr.Yesterday++
	case ts >= b.lastWeek:
		tr.LastWeek++
	case ts >= b.lastMonth:
		tr.LastMonth++
	default:
		tr.Older++
	}
}
