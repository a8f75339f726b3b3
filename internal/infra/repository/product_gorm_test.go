package repository

import (
	"context"
	"testing"

	"github.com/danghaonhien/the-boring-coffee-sub000/internal/domain/model"
	repo "github.com/danghaonhien/the-boring-coffee-sub000/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductGorm_ListAllAndFind(t *testing.T) {
	db := setupTestDB(t)
	r := NewProductGormRepository(db)
	ctx := context.Background()

	p := coffee(2, "Darkmode", 1599, "coffee")
	p.Images = []string{"/a.jpg", "/b.jpg"}
	p.Steps = []string{"grind", "brew"}
	seedProducts(t, db, coffee(1, "Lightmode", 1499, "coffee"), p)

	all, err := r.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, int64(1), all[0].ID)

	got, err := r.FindByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Darkmode", got.Name)
	assert.Equal(t, []string{"/a.jpg", "/b.jpg"}, got.Images)
	assert.Equal(t, []string{"grind", "brew"}, got.Steps)

	_, err = r.FindByID(ctx, 99)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestProductGorm_CategoryAndSearch(t *testing.T) {
	db := setupTestDB(t)
	r := NewProductGormRepository(db)
	ctx := context.Background()

	seedProducts(t, db,
		coffee(1, "Lightmode", 1499, "coffee"),
		coffee(2, "Darkmode", 1599, "coffee"),
		coffee(3, "Boring Mug", 1999, "merch"),
	)

	merch, err := r.ListByCategory(ctx, "MERCH")
	require.NoError(t, err)
	require.Len(t, merch, 1)
	assert.Equal(t, int64(3), merch[0].ID)

	found, err := r.Search(ctx, "dark")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Darkmode", found[0].Name)

	n, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestProductGorm_SearchTreatsWildcardsLiterally(t *testing.T) {
	db := setupTestDB(t)
	r := NewProductGormRepository(db)
	ctx := context.Background()

	seedProducts(t, db,
		coffee(1, "Lightmode", 1499, "coffee"),
		coffee(2, "100% Arabica", 1599, "coffee"),
		coffee(3, "Cold_Brew", 1999, "coffee"),
	)

	all, err := r.Search(ctx, "%")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, int64(2), all[0].ID)

	found, err := r.Search(ctx, "_")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, int64(3), found[0].ID)

	found, err = r.Search(ctx, "g_t")
	require.NoError(t, err)
	assert.Empty(t, found)

	found, err = r.Search(ctx, `\`)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestProductGorm_UpdateWritesZeroValues(t *testing.T) {
	db := setupTestDB(t)
	r := NewProductGormRepository(db)
	ctx := context.Background()

	p := coffee(1, "Lightmode", 1499, "coffee")
	p.Story = "once upon a bean"
	seedProducts(t, db, p)

	p.Story = ""
	p.Stock = 0
	p.Price = 1299
	require.NoError(t, r.Update(ctx, p))

	got, err := r.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "", got.Story)
	assert.Equal(t, int64(0), got.Stock)
	assert.Equal(t, int64(1299), got.Price)

	assert.ErrorIs(t, r.Update(ctx, coffee(42, "x", 1, "coffee")), repo.ErrNotFound)
}

func TestProductGorm_CreateAndDelete(t *testing.T) {
	db := setupTestDB(t)
	r := NewProductGormRepository(db)
	ctx := context.Background()

	created, err := r.Create(ctx, coffee(7, "Espresso Mode", 1699, "coffee"))
	require.NoError(t, err)
	assert.Equal(t, int64(7), created.ID)

	_, err = r.Create(ctx, coffee(7, "dup", 1, "coffee"))
	assert.ErrorIs(t, err, repo.ErrDuplicate)

	require.NoError(t, r.Delete(ctx, 7))
	assert.ErrorIs(t, r.Delete(ctx, 7), repo.ErrNotFound)

	var n int64
	require.NoError(t, db.Unscoped().Model(&model.Product{}).Count(&n).Error)
	assert.Equal(t, int64(0), n)
}
