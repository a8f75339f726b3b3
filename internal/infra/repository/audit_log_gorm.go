package repository

import (
	"context"

	"github.com/danghaonhien/the-boring-coffee-sub000/internal/domain/model"
	repo "github.com/danghaonhien/the-boring-coffee-sub000/internal/repository"

	"gorm.io/gorm"
)

type auditLogGormRepository struct {
	db *gorm.DB
}

// DI
func NewAuditLogGormRepository(db *gorm.DB) repo.AuditLogRepository {
	return &auditLogGormRepository{db: db}
}

func (r *auditLogGormRepository) Create(ctx context.Context, entry model.AuditLog) error {
	return translate(r.db.WithContext(ctx).Create(&entry).Error)
}

func (r *auditLogGormRepository) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	conds := map[string]any{}
	if f.ActorUserID != "" {
		conds["actor_user_id"] = f.ActorUserID
	}
	if f.Action != "" {
		conds["action"] = string(f.Action)
	}
	if f.ResourceType != "" {
		conds["resource_type"] = string(f.ResourceType)
	}
	if f.ResourceID > 0 {
		conds["resource_id"] = f.ResourceID
	}

	q := r.db.WithContext(ctx).Model(&model.AuditLog{})
	if len(conds) > 0 {
		q = q.Where(conds)
	}
	if !f.Since.IsZero() {
		q = q.Where("created_at >= ?", f.Since)
	}
	if !f.Until.IsZero() {
		q = q.Where("created_at <= ?", f.Until)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	logs := []model.AuditLog{}
	if err := q.Order("created_at DESC").Order("id DESC").Find(&logs).Error; err != nil {
		return nil, translate(err)
	}
	return logs, nil
}
