// Package session keeps per-session recent conversions in memory. The store
// is constructed once, shared by reference, and swept on a cron schedule so
// idle sessions do not accumulate.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"

	"github.com/mcncl/gotoon/internal/models"
)

// sweepParser parses standard 5-field cron expressions plus descriptors
// like "@every 10m" and "@hourly".
var sweepParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// Config holds the tunables for a session store.
type Config struct {
	MaxEntries int           // per-session window; defaults to 20
	Recent     int           // default Recent() size; defaults to 10
	TTL        time.Duration // idle lifetime before the sweep evicts; defaults to 24h
	Logger     *slog.Logger
}

// Store holds a bounded window of recent conversions for each session ID.
// All methods are safe for concurrent use.
type Store struct {
	mu         sync.Mutex
	sessions   map[string]*session
	maxEntries int
	recent     int
	ttl        time.Duration

	logger *slog.Logger
	cancel context.CancelFunc
	wg     sync.WaitGroup

	now func() time.Time // stubbed in tests
}

type session struct {
	entries    []models.SessionEntry
	createdAt  time.Time
	lastActive time.Time
}

// NewStore creates an empty session store.
func NewStore(cfg Config) *Store {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 20
	}
	if cfg.Recent <= 0 {
		cfg.Recent = 10
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		sessions:   make(map[string]*session),
		maxEntries: cfg.MaxEntries,
		recent:     cfg.Recent,
		ttl:        cfg.TTL,
		logger:     logger,
		now:        time.Now,
	}
}

// Append records a conversion against a session, creating the session on
// first use. The window holds the most recent maxEntries conversions; older
// ones fall off the front.
func (s *Store) Append(id string, entry models.SessionEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{createdAt: now}
		s.sessions[id] = sess
	}
	sess.entries = append(sess.entries, entry)
	if len(sess.entries) > s.maxEntries {
		sess.entries = sess.entries[len(sess.entries)-s.maxEntries:]
	}
	sess.lastActive = now
}

// Recent returns up to limit of the newest entries for a session, oldest of
// the window first. A limit of zero or less uses the store default. The
// second result reports whether the session exists.
func (s *Store) Recent(id string, limit int) ([]models.SessionEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if limit <= 0 {
		limit = s.recent
	}
	entries := sess.entries
	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	// Copy so callers never share the live window.
	out := make([]models.SessionEntry, len(entries))
	copy(out, entries)
	return out, true
}

// Clear removes a session and reports whether it existed.
func (s *Store) Clear(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	return ok
}

// Len reports how many sessions are live.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep removes sessions that have been idle for longer than the TTL and
// returns how many were dropped.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-s.ttl)
	removed := 0
	for id, sess := range s.sessions {
		if sess.lastActive.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// StartSweeping launches the background sweep on the given cron schedule.
// Descriptors like "@every 10m" are accepted alongside standard five-field
// expressions. The loop stops when ctx is cancelled or StopSweeping is
// called.
func (s *Store) StartSweeping(ctx context.Context, schedule string) error {
	sched, err := sweepParser.Parse(schedule)
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.sweepLoop(ctx, sched)
	s.logger.Info("session sweep started", "schedule", schedule, "ttl", s.ttl)
	return nil
}

// StopSweeping cancels the sweep loop and waits for it to exit.
func (s *Store) StopSweeping() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Store) sweepLoop(ctx context.Context, sched cronlib.Schedule) {
	defer s.wg.Done()
	for {
		timer := time.NewTimer(time.Until(sched.Next(s.now())))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if removed := s.Sweep(); removed > 0 {
				s.logger.Info("session sweep", "removed", removed, "live", s.Len())
			}
		}
	}
}
