package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/runnerr0/chronicle-index/internal/storage"
)

// Delete removes userID's entries. With ids, only those ids owned by userID
// are removed and the number actually removed is returned; unknown ids are
// not an error. Without ids every entry of userID is removed and the
// pre-deletion count is returned.
func (s *Service) Delete(ctx context.Context, userID string, ids []string) (int64, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, ErrMissingUserID
	}

	coll, err := s.collection(ctx)
	if err != nil {
		return 0, err
	}

	f := storage.Filter{UserID: userID}
	log := s.logger.WithField("user", userID)

	if len(ids) > 0 {
		n, err := coll.Delete(ctx, ids, f)
		if err != nil {
			return 0, storeErr("delete entries", err)
		}
		log.WithFields(logrus.Fields{"requested": len(ids), "deleted": n}).Info("entries deleted")
		return n, nil
	}

	total, err := coll.Count(ctx, f)
	if err != nil {
		return 0, storeErr("count entries", err)
	}
	if total == 0 {
		return 0, nil
	}
	if _, err := coll.Delete(ctx, nil, f); err != nil {
		return 0, storeErr("delete entries", err)
	}
	log.WithField("deleted", total).Info("all user entries deleted")
	return total, nil
}

// Prune deletes entries of every user visited before olderThan and returns
// how many were removed.
func (s *Service) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	if olderThan.IsZero() {
		return 0, fmt.Errorf("prune cutoff is zero")
	}

	coll, err := s.collection(ctx)
	if err != nil {
		return 0, err
	}

	end := olderThan.UnixMilli() - 1
	n, err := coll.Delete(ctx, nil, storage.Filter{End: &end})
	if err != nil {
		return 0, storeErr("prune entries", err)
	}
	s.logger.WithFields(logrus.Fields{"cutoff": olderThan.Format(time.RFC3339), "deleted": n}).Info("entries pruned")
	return n, nil
}

// PruneCandidates counts the entries Prune(olderThan) would remove.
func (s *Service) PruneCandidates(ctx context.Context, olderThan time.Time) (int64, error) {
	coll, err := s.collection(ctx)
	if err != nil {
		return 0, err
	}
	end := olderThan.UnixMilli() - 1
	n, err := coll.Count(ctx, storage.Filter{End: &end})
	if err != nil {
		return 0, storeErr("count prune candidates", err)
	}
	return n, nil
}
