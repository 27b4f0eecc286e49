package repository

import (
	"context"
	"errors"

	"github.com/fjod/snapeat/internal/store/domain"
)

var ErrSessionNotFound = errors.New("session not found")

type SessionRepository interface {
	GetSnapshot(ctx context.Context, sessionID string) (domain.Snapshot, error)
	SaveSnapshot(ctx context.Context, sessionID string, snap domain.Snapshot) error
	DeleteSession(ctx context.Context, sessionID string) error
}
