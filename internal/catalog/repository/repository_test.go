package repository_test

import (
	"context"
	"testing"

	db "github.com/fjod/snapeat/internal/catalog/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *db.Repository {
	t.Helper()

	// Use in-memory database for tests
	repo, err := db.NewRepository(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	require.NoError(t, repo.RunMigrations("./migrations"))
	return repo
}

func TestListProducts_ReturnsSeededRows(t *testing.T) {
	repo := setupTestDB(t)

	products, err := repo.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 4)

	powder := products[0]
	assert.Equal(t, int64(2200), powder.ID)
	assert.Equal(t, "Johnson's Baby Powder", powder.Name)
	assert.True(t, powder.IsStock)
	require.Len(t, powder.Variations, 2)
	assert.Equal(t, "100g", powder.Variations[0].ID)
	assert.Equal(t, 90.0, powder.Variations[0].DiscountedPrice)
}

func TestListProducts_CancelledContext(t *testing.T) {
	repo := setupTestDB(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.ListProducts(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to query products")
}

func TestGetProduct(t *testing.T) {
	repo := setupTestDB(t)

	p, err := repo.GetProduct(context.Background(), 3100)
	require.NoError(t, err)
	assert.Equal(t, "kitchen", p.PageType)

	_, err = repo.GetProduct(context.Background(), 999)
	assert.ErrorIs(t, err, db.ErrProductNotFound)
}

func TestCategories(t *testing.T) {
	repo := setupTestDB(t)

	categories, err := repo.ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 3)

	kitchen, err := repo.GetCategory(context.Background(), 1013)
	require.NoError(t, err)
	assert.True(t, kitchen.IsKitchenPage)
	assert.Equal(t, "kitchen", kitchen.Base)

	_, err = repo.GetCategory(context.Background(), 1)
	assert.ErrorIs(t, err, db.ErrCategoryNotFound)
}

func TestRunMigrations_Idempotent(t *testing.T) {
	repo := setupTestDB(t)
	assert.NoError(t, repo.RunMigrations("./migrations"))
}
