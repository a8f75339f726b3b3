package repository

import (
	"context"
	"testing"
	"time"

	"github.com/danghaonhien/the-boring-coffee-sub000/internal/domain/model"
	repo "github.com/danghaonhien/the-boring-coffee-sub000/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLogGorm_ListFilters(t *testing.T) {
	db := setupTestDB(t)
	r := NewAuditLogGormRepository(db)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	entries := []model.AuditLog{
		{ActorUserID: "a1", Action: model.AuditActionCreateProduct, ResourceType: model.AuditResourceProduct, ResourceID: 1, CreatedAt: base},
		{ActorUserID: "a1", Action: model.AuditActionUpdateStock, ResourceType: model.AuditResourceProduct, ResourceID: 1, CreatedAt: base.Add(time.Hour)},
		{ActorUserID: "a2", Action: model.AuditActionUpdateOrderStatus, ResourceType: model.AuditResourceOrder, ResourceID: 9, CreatedAt: base.Add(2 * time.Hour)},
	}
	for _, e := range entries {
		require.NoError(t, r.Create(ctx, e))
	}

	all, err := r.List(ctx, repo.AuditLogFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	// 新しい順
	assert.Equal(t, model.AuditActionUpdateOrderStatus, all[0].Action)

	got, err := r.List(ctx, repo.AuditLogFilter{ResourceType: model.AuditResourceProduct, ResourceID: 1})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, model.AuditActionUpdateStock, got[0].Action)

	got, err = r.List(ctx, repo.AuditLogFilter{ActorUserID: "a2"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(9), got[0].ResourceID)

	got, err = r.List(ctx, repo.AuditLogFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.AuditActionUpdateStock, got[0].Action)
}
