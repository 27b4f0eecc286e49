package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	// DefaultIdleTTL is how long an unused store stays in memory.
	DefaultIdleTTL = 30 * time.Minute

	// CleanupInterval is how often idle stores are evicted.
	CleanupInterval = time.Minute

	// loadTimeout bounds a shared blob load, which outlives any one caller.
	loadTimeout = 10 * time.Second
)

type entry struct {
	store    *Store
	lastUsed time.Time
}

// Sessions keeps one live Store per session id.
type Sessions struct {
	mu      sync.Mutex
	stores  map[string]*entry
	loads   singleflight.Group
	persist SnapshotStore
	users   UserFetcher
	idleTTL time.Duration
	logger  *slog.Logger

	stopCleanup chan struct{}
	wg          sync.WaitGroup
}

func NewSessions(persist SnapshotStore, users UserFetcher, idleTTL time.Duration, logger *slog.Logger) *Sessions {
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	s := &Sessions{
		stores:      make(map[string]*entry),
		persist:     persist,
		users:       users,
		idleTTL:     idleTTL,
		logger:      logger,
		stopCleanup: make(chan struct{}),
	}

	s.wg.Add(1)
	go s.cleanupLoop()

	return s
}

// Get returns the live store for sessionID, loading its blob on first use.
// Concurrent first requests share one load. The load is detached from the
// first caller's cancellation so one aborted request cannot fail the others.
func (s *Sessions) Get(ctx context.Context, sessionID string) (*Store, error) {
	if st := s.lookup(sessionID); st != nil {
		return st, nil
	}

	v, err, _ := s.loads.Do(sessionID, func() (interface{}, error) {
		if st := s.lookup(sessionID); st != nil {
			return st, nil
		}
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		snap, err := s.persist.Load(loadCtx, sessionID)
		if err != nil {
			return nil, err
		}
		st := NewStore(sessionID, snap, s.persist, s.users, s.logger)

		s.mu.Lock()
		s.stores[sessionID] = &entry{store: st, lastUsed: time.Now()}
		s.mu.Unlock()
		return st, nil
	})
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	return v.(*Store), nil
}

func (s *Sessions) lookup(sessionID string) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.stores[sessionID]
	if !ok {
		return nil
	}
	e.lastUsed = time.Now()
	return e.store
}

// Len reports how many stores are in memory.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stores)
}

func (s *Sessions) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.evictIdle(time.Now())
		case <-s.stopCleanup:
			return
		}
	}
}

// evictIdle drops stores unused since before now-idleTTL. Their state is
// already persisted, so the next Get reloads it.
func (s *Sessions) evictIdle(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, e := range s.stores {
		if now.Sub(e.lastUsed) > s.idleTTL {
			delete(s.stores, id)
			evicted++
		}
	}
	if evicted > 0 {
		s.logger.Debug("evicted idle sessions", "count", evicted, "remaining", len(s.stores))
	}
	return evicted
}

// Close stops the background cleanup and waits for it to finish
func (s *Sessions) Close() {
	close(s.stopCleanup)
	s.wg.Wait()
}
