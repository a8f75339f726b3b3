package repository

import (
	"context"
	"time"

	"github.com/danghaonhien/the-boring-coffee-sub000/internal/domain/model"
)

// 監査ログの絞り込み。ゼロ値の項目は条件にしない
type AuditLogFilter struct {
	ActorUserID  string
	Action       model.AuditAction
	ResourceType model.AuditResourceType
	ResourceID   int64
	Since        time.Time
	Until        time.Time
	Limit        int
	Offset       int
}

type AuditLogRepository interface {
	Create(ctx context.Context, log model.AuditLog) error
	// 新しい順
	List(ctx context.Context, filter AuditLogFilter) ([]model.AuditLog, error)
}
