package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	catalog "github.com/fjod/snapeat/internal/catalog/domain"
	"github.com/fjod/snapeat/internal/store/cache"
	"github.com/fjod/snapeat/internal/store/domain"
	"github.com/fjod/snapeat/internal/store/repository"
	"github.com/fjod/snapeat/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSessionRepo struct {
	mu       sync.RWMutex
	docs     map[string]domain.Snapshot
	getCalls int
	err      error
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{docs: make(map[string]domain.Snapshot)}
}

func (m *mockSessionRepo) GetSnapshot(ctx context.Context, sessionID string) (domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.err != nil {
		return domain.Snapshot{}, m.err
	}
	snap, ok := m.docs[sessionID]
	if !ok {
		return domain.Snapshot{}, repository.ErrSessionNotFound
	}
	return snap, nil
}

func (m *mockSessionRepo) SaveSnapshot(ctx context.Context, sessionID string, snap domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.docs[sessionID] = snap
	return nil
}

func (m *mockSessionRepo) DeleteSession(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, sessionID)
	return nil
}

func setupPersister(t *testing.T) (*CachedPersister, *mockSessionRepo, *cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newMockSessionRepo()
	c := cache.NewRedisCache(client)
	return NewCachedPersister(repo, c, logger.Nop()), repo, c, mr
}

func cartOf(qty int) domain.Snapshot {
	s := domain.EmptySnapshot()
	s.CartProduct = append(s.CartProduct, domain.CartLine{Product: catalog.Product{ID: 1, Name: "Tea"}, Quantity: qty})
	return s
}

func TestCachedPersister_LoadUnknownSessionIsEmpty(t *testing.T) {
	p, _, _, _ := setupPersister(t)

	snap, err := p.Load(context.Background(), "new")
	require.NoError(t, err)
	assert.Empty(t, snap.CartProduct)
	assert.NotNil(t, snap.CartProduct)
}

func TestCachedPersister_LoadPopulatesCache(t *testing.T) {
	p, repo, c, _ := setupPersister(t)
	ctx := context.Background()
	repo.docs["s1"] = cartOf(2)

	snap, err := p.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, snap.CartProduct[0].Quantity)

	cached, err := c.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, cached.CartProduct[0].Quantity)

	_, err = p.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.getCalls, "second load must be served from cache")
}

func TestCachedPersister_LoadRepoError(t *testing.T) {
	p, repo, _, _ := setupPersister(t)
	repo.err = errors.New("mongo down")

	_, err := p.Load(context.Background(), "s1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load session")
}

func TestCachedPersister_LoadSurvivesCacheOutage(t *testing.T) {
	p, repo, _, mr := setupPersister(t)
	repo.docs["s1"] = cartOf(5)
	mr.Close()

	snap, err := p.Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 5, snap.CartProduct[0].Quantity)
}

func TestCachedPersister_SaveWritesThrough(t *testing.T) {
	p, repo, c, _ := setupPersister(t)
	ctx := context.Background()

	require.NoError(t, p.Save(ctx, "s1", cartOf(3)))

	assert.Equal(t, 3, repo.docs["s1"].CartProduct[0].Quantity)
	cached, err := c.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, cached.CartProduct[0].Quantity)
}

func TestCachedPersister_SaveRepoErrorLeavesCache(t *testing.T) {
	p, repo, c, _ := setupPersister(t)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "s1", cartOf(1)))
	repo.err = errors.New("write conflict")

	err := p.Save(ctx, "s1", cartOf(9))
	require.Error(t, err)

	cached, err := c.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, cached.CartProduct[0].Quantity)
}
