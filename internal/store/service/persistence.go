package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fjod/snapeat/internal/store/cache"
	"github.com/fjod/snapeat/internal/store/domain"
	"github.com/fjod/snapeat/internal/store/repository"
	"github.com/fjod/snapeat/pkg/logger"
)

// SnapshotStore loads and saves session blobs.
type SnapshotStore interface {
	Persister
	Load(ctx context.Context, sessionID string) (domain.Snapshot, error)
}

// CachedPersister keeps the session blob in MongoDB with redis in front.
type CachedPersister struct {
	repo   repository.SessionRepository
	cache  cache.SessionCache
	logger *slog.Logger
}

func NewCachedPersister(repo repository.SessionRepository, c cache.SessionCache, logger *slog.Logger) *CachedPersister {
	return &CachedPersister{repo: repo, cache: c, logger: logger}
}

// Load returns an empty snapshot for a session that was never saved.
func (p *CachedPersister) Load(ctx context.Context, sessionID string) (domain.Snapshot, error) {
	snap, err := p.cache.Get(ctx, sessionID)
	if err == nil {
		return snap, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		p.logger.WarnContext(ctx, "session cache read failed", "session", logger.HashID(sessionID), "error", err)
	}

	snap, err = p.repo.GetSnapshot(ctx, sessionID)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return domain.EmptySnapshot(), nil
	}
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("load session: %w", err)
	}

	if err := p.cache.Set(ctx, sessionID, snap); err != nil {
		p.logger.WarnContext(ctx, "failed to populate session cache", "session", logger.HashID(sessionID), "error", err)
	}
	return snap, nil
}

func (p *CachedPersister) Save(ctx context.Context, sessionID string, snap domain.Snapshot) error {
	if err := p.repo.SaveSnapshot(ctx, sessionID, snap); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if err := p.cache.Set(ctx, sessionID, snap); err != nil {
		// a stale cache entry would shadow the saved blob
		if delErr := p.cache.Delete(ctx, sessionID); delErr != nil {
			p.logger.WarnContext(ctx, "failed to invalidate session cache", "session", logger.HashID(sessionID), "error", delErr)
		}
	}
	return nil
}
