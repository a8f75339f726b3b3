package usecase

import (
	"context"
	"net/http"
	"strings"

	"github.com/danghaonhien/the-boring-coffee-sub000/internal/domain/model"
	repo "github.com/danghaonhien/the-boring-coffee-sub000/internal/repository"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 200
)

var (
	auditActions = map[model.AuditAction]bool{
		model.AuditActionCreateProduct:     true,
		model.AuditActionUpdateProduct:     true,
		model.AuditActionDeleteProduct:     true,
		model.AuditActionUpdateStock:       true,
		model.AuditActionImportProducts:    true,
		model.AuditActionUpdateOrderStatus: true,
		model.AuditActionUpsertDiscount:    true,
		model.AuditActionDeleteDiscount:    true,
	}
	auditResources = map[model.AuditResourceType]bool{
		model.AuditResourceProduct:  true,
		model.AuditResourceOrder:    true,
		model.AuditResourceDiscount: true,
	}
)

// 管理画面の操作履歴
type AuditLogUsecase struct {
	auditRepo repo.AuditLogRepository
}

// DI
func NewAuditLogUsecase(auditRepo repo.AuditLogRepository) *AuditLogUsecase {
	return &AuditLogUsecase{auditRepo: auditRepo}
}

// limit 0 は既定値
func (u *AuditLogUsecase) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	f.Action = model.AuditAction(strings.ToUpper(strings.TrimSpace(string(f.Action))))
	f.ResourceType = model.AuditResourceType(strings.ToLower(strings.TrimSpace(string(f.ResourceType))))

	if f.Action != "" && !auditActions[f.Action] {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid action")
	}
	if f.ResourceType != "" && !auditResources[f.ResourceType] {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid resource type")
	}
	if f.ResourceID < 0 || f.Offset < 0 {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid params")
	}
	if f.Limit < 0 || f.Limit > maxAuditLimit {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if f.Limit == 0 {
		f.Limit = defaultAuditLimit
	}
	if !f.Since.IsZero() && !f.Until.IsZero() && f.Until.Before(f.Since) {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid range")
	}

	logs, err := u.auditRepo.List(ctx, f)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return logs, nil
}
