// Package daemon serves the history engine over local HTTP.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/runnerr0/chronicle-index/internal/config"
	"github.com/runnerr0/chronicle-index/internal/history"
)

// Engine is the subset of history.Service the daemon exposes.
type Engine interface {
	Ingest(ctx context.Context, v history.Visit) (history.IngestResult, error)
	Query(ctx context.Context, q history.Query) ([]history.Entry, error)
	Stats(ctx context.Context, userID string) (*history.Stats, error)
	Delete(ctx context.Context, userID string, ids []string) (int64, error)
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
}

// Server routes HTTP requests to an Engine.
type Server struct {
	engine    Engine
	cfg       config.Config
	version   string
	logger    *logrus.Logger
	now       func() time.Time
	startedAt time.Time

	// pending tracks detached async ingests so shutdown can drain them.
	pending sync.WaitGroup
}

func New(engine Engine, cfg config.Config, version string, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Server{
		engine:    engine,
		cfg:       cfg,
		version:   version,
		logger:    logger,
		now:       time.Now,
		startedAt: time.Now(),
	}
}

// Handler returns the router with all routes and middleware mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, s.requestLogger, middleware.Recoverer)
	if s.cfg.Daemon.MaxRequestSize > 0 {
		r.Use(middleware.RequestSize(int64(s.cfg.Daemon.MaxRequestSize)))
	}

	r.Get("/status", s.handleStatus)

	r.Group(func(r chi.Router) {
		r.Use(s.requireToken)
		r.Post("/history", s.handleStoreVisit)
		r.Delete("/history", s.handleDelete)
		r.Post("/history/query", s.handleQuery)
		r.Get("/history/stats", s.handleStats)
	})
	return r
}

// Run listens on the configured address until ctx is cancelled, pruning
// expired entries every retention.prune_interval_hours. On shutdown it
// waits for in-flight async ingests.
func (s *Server) Run(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Daemon.Host, strconv.Itoa(s.cfg.Daemon.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.WithField("addr", ln.Addr().String()).Info("chronicle daemon listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		s.pending.Wait()
		s.logger.Info("chronicle daemon stopped")
		return err
	})
	g.Go(func() error {
		s.pruneLoop(gctx)
		return nil
	})
	return g.Wait()
}

func (s *Server) pruneLoop(ctx context.Context) {
	if s.cfg.Retention.Days <= 0 {
		return
	}
	every := time.Duration(s.cfg.Retention.PruneIntervalHours) * time.Hour
	if every <= 0 {
		every = 24 * time.Hour
	}

	prune := func() {
		cutoff := s.cfg.RetentionCutoff(s.now())
		if _, err := s.engine.Prune(ctx, cutoff); err != nil && ctx.Err() == nil {
			s.logger.WithError(err).Error("retention prune failed")
		}
	}

	prune()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			prune()
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := s.cfg.Daemon.AuthToken
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			writeError(w, http.StatusUnauthorized, "missing or invalid bearer token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start).String(),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debug("request")
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.startedAt).Round(time.Second).String(),
	})
}

func (s *Server) handleStoreVisit(w http.ResponseWriter, r *http.Request) {
	var v history.Visit
	if !decode(w, r, &v) {
		return
	}
	if strings.TrimSpace(v.UserID) == "" || strings.TrimSpace(v.URL) == "" {
		writeError(w, http.StatusBadRequest, "url and userId are required")
		return
	}
	if v.Timestamp <= 0 {
		writeError(w, http.StatusBadRequest, "timestamp must be positive epoch milliseconds")
		return
	}

	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		ctx := context.WithoutCancel(r.Context())
		s.pending.Add(1)
		go func() {
			defer s.pending.Done()
			if _, err := s.engine.Ingest(ctx, v); err != nil {
				s.logger.WithField("url", v.URL).WithError(err).Error("async ingest failed")
			}
		}()
		writeJSON(w, http.StatusAccepted, map[string]any{"accepted": true})
		return
	}

	res, err := s.engine.Ingest(r.Context(), v)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	if res.Skipped {
		writeJSON(w, http.StatusOK, map[string]any{"skipped": true, "reason": res.SkipReason})
		return
	}
	writeJSON(w, http.StatusCreated, res.Entry)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var q history.Query
	if !decode(w, r, &q) {
		return
	}
	entries, err := s.engine.Query(r.Context(), q)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.Stats(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type deleteRequest struct {
	UserID   string   `json:"userId"`
	EntryIDs []string `json:"entryIds,omitempty"`
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if !decode(w, r, &req) {
		return
	}
	n, err := s.engine.Delete(r.Context(), req.UserID, req.EntryIDs)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, history.ErrMissingUserID), errors.Is(err, history.ErrInvalidVisit):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, history.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.WithError(err).Error("engine operation failed")
		writeError(w, http.StatusInternalServerError, "storage failure: "+err.Error())
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
