package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/runnerr0/chronicle-index/internal/embed"
)

// ErrUnscopedDelete is returned when Delete is called with neither ids nor
// any filter field set.
var ErrUnscopedDelete = errors.New("refusing to delete without ids or filter")

// Store is a document/vector database holding named collections.
type Store interface {
	EnsureCollection(ctx context.Context, name string) (Collection, error)
	Close() error
}

// Collection is a namespace of records supporting filtered and similarity reads.
type Collection interface {
	Name() string
	Add(ctx context.Context, rec Record) error
	Get(ctx context.Context, req GetRequest) ([]Record, error)
	QuerySimilar(ctx context.Context, probe string, f Filter, limit int) ([]Record, error)
	Count(ctx context.Context, f Filter) (int64, error)
	Delete(ctx context.Context, ids []string, f Filter) (int64, error)
}

// SQLiteStore implements Store on a migrated SQLite database. Documents are
// embedded on write; similarity is cosine over the stored vectors of the
// rows that pass the metadata filter.
type SQLiteStore struct {
	db       *sql.DB
	embedder embed.Embedder
	logger   *logrus.Logger
	audit    bool
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithEmbedder sets the embedder used for documents and probes.
func WithEmbedder(e embed.Embedder) Option {
	return func(s *SQLiteStore) { s.embedder = e }
}

// WithLogger sets the store logger.
func WithLogger(l *logrus.Logger) Option {
	return func(s *SQLiteStore) { s.logger = l }
}

// WithAuditLog records every delete in the audit_log table.
func WithAuditLog(enabled bool) Option {
	return func(s *SQLiteStore) { s.audit = enabled }
}

// NewSQLiteStore creates a store from an already-opened and migrated database.
// Without WithEmbedder a HashEmbedder is used.
func NewSQLiteStore(db *sql.DB, opts ...Option) *SQLiteStore {
	s := &SQLiteStore{db: db}
	for _, opt := range opts {
		opt(s)
	}
	if s.embedder == nil {
		s.embedder = embed.NewHashEmbedder(0)
	}
	if s.logger == nil {
		s.logger = logrus.StandardLogger()
	}
	return s
}

// EnsureCollection returns the named collection, creating it if needed.
func (s *SQLiteStore) EnsureCollection(ctx context.Context, name string) (Collection, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("collection name is empty")
	}

	if _, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO collections (name) VALUES (?)", name,
	); err != nil {
		return nil, fmt.Errorf("create collection %s: %w", name, err)
	}

	var id int64
	if err := s.db.QueryRowContext(ctx,
		"SELECT id FROM collections WHERE name = ?", name,
	).Scan(&id); err != nil {
		return nil, fmt.Errorf("lookup collection %s: %w", name, err)
	}

	s.logger.WithFields(logrus.Fields{"collection": name, "id": id}).Debug("collection ready")
	return &sqliteCollection{store: s, id: id, name: name}, nil
}

// Close is a no-op; the underlying *sql.DB is owned by the caller.
func (s *SQLiteStore) Close() error {
	return nil
}

type sqliteCollection struct {
	store *SQLiteStore
	id    int64
	name  string
}

func (c *sqliteCollection) Name() string { return c.name }

// Add embeds the document (or the title, for an empty document) and inserts
// the record. Embedding failures are returned as write failures.
func (c *sqliteCollection) Add(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("record id is empty")
	}

	text := rec.Document
	if strings.TrimSpace(text) == "" {
		text = rec.Metadata.Title
	}
	vec, err := c.store.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed record %s: %w", rec.ID, err)
	}

	m := rec.Metadata
	_, err = c.store.db.ExecContext(ctx, `
		INSERT INTO entries (collection_id, user_id, id, url, title, ts, topic, domain, path,
		                     document, embedding, embedding_model)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.id, m.UserID, rec.ID, m.URL, m.Title, m.Timestamp, m.Topic, m.Domain, m.Path,
		rec.Document, embed.Encode(vec), c.store.embedder.Model(),
	)
	if err != nil {
		return fmt.Errorf("insert record %s: %w", rec.ID, err)
	}
	return nil
}

// Get returns records matching the request, newest first.
func (c *sqliteCollection) Get(ctx context.Context, req GetRequest) ([]Record, error) {
	where, args := c.where(req.Filter, req.IDs)

	cols := metadataColumns
	if req.WithDocuments {
		cols += ", document"
	}
	query := "SELECT " + cols + " FROM entries" + where + " ORDER BY ts DESC, id"
	if req.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, req.Limit)
	}

	rows, err := c.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var r Record
		dest := r.scanTargets()
		if req.WithDocuments {
			dest = append(dest, &r.Document)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// QuerySimilar ranks the filtered records by cosine similarity to the probe
// text and returns at most limit of them (all when limit <= 0).
func (c *sqliteCollection) QuerySimilar(ctx context.Context, probe string, f Filter, limit int) ([]Record, error) {
	probeVec, err := c.store.embedder.Embed(ctx, probe)
	if err != nil {
		return nil, fmt.Errorf("embed probe: %w", err)
	}

	where, args := c.where(f, nil)
	rows, err := c.store.db.QueryContext(ctx,
		"SELECT "+metadataColumns+", document, embedding FROM entries"+where, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var r Record
		var blob []byte
		dest := append(r.scanTargets(), &r.Document, &blob)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r.Score = embed.Cosine(probeVec, embed.Decode(blob))
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Score > records[j].Score
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Count returns the number of records matching f.
func (c *sqliteCollection) Count(ctx context.Context, f Filter) (int64, error) {
	where, args := c.where(f, nil)
	var n int64
	if err := c.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries"+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// Delete removes records matching f, restricted to ids when given, and
// returns the number of rows removed. Missing ids are not an error.
func (c *sqliteCollection) Delete(ctx context.Context, ids []string, f Filter) (int64, error) {
	if len(ids) == 0 && f.isEmpty() {
		return 0, ErrUnscopedDelete
	}

	tx, err := c.store.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	where, args := c.where(f, ids)
	res, err := tx.ExecContext(ctx, "DELETE FROM entries"+where, args...)
	if err != nil {
		return 0, fmt.Errorf("delete records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if c.store.audit {
		detail := "filter"
		if len(ids) > 0 {
			detail = fmt.Sprintf("ids=%d", len(ids))
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO audit_log (action, detail, collection, user_id, affected) VALUES (?, ?, ?, ?, ?)",
			"delete", detail, c.name, f.UserID, n,
		); err != nil {
			return 0, fmt.Errorf("write audit log: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit delete: %w", err)
	}
	return n, nil
}

const metadataColumns = "id, url, title, ts, topic, user_id, domain, path"

func (r *Record) scanTargets() []any {
	m := &r.Metadata
	return []any{&r.ID, &m.URL, &m.Title, &m.Timestamp, &m.Topic, &m.UserID, &m.Domain, &m.Path}
}

// where builds the WHERE clause for this collection, the filter and an
// optional id set.
func (c *sqliteCollection) where(f Filter, ids []string) (string, []any) {
	clauses := []string{"collection_id = ?"}
	args := []any{c.id}

	if f.UserID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.Start != nil {
		clauses = append(clauses, "ts >= ?")
		args = append(args, *f.Start)
	}
	if f.End != nil {
		clauses = append(clauses, "ts <= ?")
		args = append(args, *f.End)
	}
	if len(f.Topics) > 0 {
		clauses = append(clauses, "topic IN ("+placeholders(len(f.Topics))+")")
		for _, t := range f.Topics {
			args = append(args, t)
		}
	}
	if len(ids) > 0 {
		clauses = append(clauses, "id IN ("+placeholders(len(ids))+")")
		for _, id := range ids {
			args = append(args, id)
		}
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (f Filter) isEmpty() bool {
	return f.UserID == "" && f.Start == nil && f.End == nil && len(f.Topics) == 0
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
