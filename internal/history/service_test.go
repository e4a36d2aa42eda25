package history

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/chronicle-index/internal/storage"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// openTestStore returns a SQLite-backed store in a temp directory.
func openTestStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	db, err := storage.Open(context.Background(), filepath.Join(t.TempDir(), "history.db"), "wal")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return storage.NewSQLiteStore(db, storage.WithLogger(quietLogger()))
}

func newTestService(t *testing.T, opts ...Option) (*Service, *countingStore) {
	t.Helper()
	store := &countingStore{Store: openTestStore(t)}
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	return NewService(store, opts...), store
}

// countingStore wraps a Store and counts writes and collection inits.
type countingStore struct {
	storage.Store
	ensures atomic.Int32
	adds    atomic.Int32
}

func (s *countingStore) EnsureCollection(ctx context.Context, name string) (storage.Collection, error) {
	s.ensures.Add(1)
	c, err := s.Store.EnsureCollection(ctx, name)
	if err != nil {
		return nil, err
	}
	return &countingCollection{Collection: c, adds: &s.adds}, nil
}

type countingCollection struct {
	storage.Collection
	adds *atomic.Int32
}

func (c *countingCollection) Add(ctx context.Context, rec storage.Record) error {
	c.adds.Add(1)
	return c.Collection.Add(ctx, rec)
}

// flakyStore fails EnsureCollection the first n times.
type flakyStore struct {
	storage.Store
	mu       sync.Mutex
	failures int
	calls    int
}

func (s *flakyStore) EnsureCollection(ctx context.Context, name string) (storage.Collection, error) {
	s.mu.Lock()
	s.calls++
	fail := s.calls <= s.failures
	s.mu.Unlock()
	if fail {
		return nil, errors.New("database is locked")
	}
	return s.Store.EnsureCollection(ctx, name)
}

// brokenCollection fails every operation.
type brokenCollection struct{}

var errBroken = errors.New("disk I/O error")

func (brokenCollection) Name() string                              { return "broken" }
func (brokenCollection) Add(context.Context, storage.Record) error { return errBroken }
func (brokenCollection) Get(context.Context, storage.GetRequest) ([]storage.Record, error) {
	return nil, errBroken
}
func (brokenCollection) QuerySimilar(context.Context, string, storage.Filter, int) ([]storage.Record, error) {
	return nil, errBroken
}
func (brokenCollection) Count(context.Context, storage.Filter) (int64, error) { return 0, errBroken }
func (brokenCollection) Delete(context.Context, []string, storage.Filter) (int64, error) {
	return 0, errBroken
}

type brokenStore struct{}

func (brokenStore) EnsureCollection(context.Context, string) (storage.Collection, error) {
	return brokenCollection{}, nil
}
func (brokenStore) Close() error { return nil }

type fakeExtractor struct {
	content  map[string]string
	err      error
	deadline atomic.Bool
}

func (f *fakeExtractor) Extract(ctx context.Context, url string) (string, error) {
	if _, ok := ctx.Deadline(); ok {
		f.deadline.Store(true)
	}
	if f.err != nil {
		return "", f.err
	}
	return f.content[url], nil
}

// slowExtractor blocks until its context is done.
type slowExtractor struct{}

func (slowExtractor) Extract(ctx context.Context, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

type fakeClassifier struct {
	topic string
	err   error

	mu       sync.Mutex
	excerpts []string
}

func (f *fakeClassifier) Classify(_ context.Context, _, excerpt string) (string, error) {
	f.mu.Lock()
	f.excerpts = append(f.excerpts, excerpt)
	f.mu.Unlock()
	return f.topic, f.err
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func ptr(v int64) *int64 { return &v }
