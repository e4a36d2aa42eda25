package history

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// BatchItem is the outcome of one visit in IngestBatch.
type BatchItem struct {
	Visit  Visit
	Result IngestResult
	Err    error
}

// BatchSummary tallies an IngestBatch run.
type BatchSummary struct {
	Stored  int
	Skipped int
	Failed  int
}

// IngestBatch ingests visits with at most concurrency in flight. A failing
// visit never aborts the batch; its error is recorded in the returned item
// at the same index. Only context cancellation stops scheduling early.
func (s *Service) IngestBatch(ctx context.Context, visits []Visit, concurrency int) ([]BatchItem, BatchSummary) {
	if concurrency <= 0 {
		concurrency = 1
	}

	items := make([]BatchItem, len(visits))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, v := range visits {
		i, v := i, v
		items[i].Visit = v
		if gctx.Err() != nil {
			items[i].Err = gctx.Err()
			continue
		}
		g.Go(func() error {
			res, err := s.Ingest(gctx, v)
			items[i].Result = res
			items[i].Err = err
			return nil
		})
	}
	_ = g.Wait()

	var sum BatchSummary
	for _, it := range items {
		switch {
		case it.Err != nil:
			sum.Failed++
			s.logger.WithFields(logrus.Fields{"url": it.Visit.URL}).WithError(it.Err).Warn("batch ingest failed")
		case it.Result.Skipped:
			sum.Skipped++
		default:
			sum.Stored++
		}
	}

	s.logger.WithFields(logrus.Fields{
		"stored":  sum.Stored,
		"skipped": sum.Skipped,
		"failed":  sum.Failed,
	}).Info("batch ingest complete")
	return items, sum
}
