package history

import (
	"context"
	"fmt"
	"strings"

	"github.com/runnerr0/chronicle-index/internal/storage"
)

// DefaultSimilarityLimit caps similarity queries that set no Limit.
const DefaultSimilarityLimit = 100

// Query returns the user's entries matching q. With q.Similarity set the
// results are ranked by relevance to its text; otherwise they are a plain
// filtered fetch whose order callers must not rely on. No match is an empty,
// non-nil slice.
func (s *Service) Query(ctx context.Context, q Query) ([]Entry, error) {
	if strings.TrimSpace(q.UserID) == "" {
		return nil, ErrMissingUserID
	}

	coll, err := s.collection(ctx)
	if err != nil {
		return nil, err
	}

	f := filterFor(q)

	var records []storage.Record
	if q.Similarity != nil && strings.TrimSpace(q.Similarity.Text) != "" {
		limit := q.Limit
		if limit <= 0 {
			limit = DefaultSimilarityLimit
		}
		records, err = coll.QuerySimilar(ctx, q.Similarity.Text, f, limit)
		if err != nil {
			return nil, storeErr("similarity query", err)
		}
	} else {
		records, err = coll.Get(ctx, storage.GetRequest{Filter: f, Limit: q.Limit, WithDocuments: true})
		if err != nil {
			return nil, storeErr("filtered query", err)
		}
	}

	entries := make([]Entry, 0, len(records))
	for _, r := range records {
		entries = append(entries, entryFromRecord(r))
	}
	return entries, nil
}

// Get returns a single entry of userID by id.
func (s *Service) Get(ctx context.Context, userID, id string) (*Entry, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrMissingUserID
	}

	coll, err := s.collection(ctx)
	if err != nil {
		return nil, err
	}

	records, err := coll.Get(ctx, storage.GetRequest{
		Filter:        storage.Filter{UserID: userID},
		IDs:           []string{id},
		Limit:         1,
		WithDocuments: true,
	})
	if err != nil {
		return nil, storeErr("get entry", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	e := entryFromRecord(records[0])
	return &e, nil
}

func filterFor(q Query) storage.Filter {
	f := storage.Filter{UserID: q.UserID}
	if q.TimeRange != nil {
		f.Start = q.TimeRange.Start
		f.End = q.TimeRange.End
	}
	if len(q.Topics) > 0 {
		f.Topics = q.Topics
	}
	return f
}
