package cache

import (
	"context"
	"errors"

	"github.com/fjod/snapeat/internal/store/domain"
)

type SessionCache interface {
	Get(ctx context.Context, sessionID string) (domain.Snapshot, error)
	Set(ctx context.Context, sessionID string, snap domain.Snapshot) error
	Delete(ctx context.Context, sessionID string) error
}

var ErrCacheMiss = errors.New("cache miss")
