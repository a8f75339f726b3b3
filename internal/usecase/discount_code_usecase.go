package usecase

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/danghaonhien/the-boring-coffee-sub000/internal/domain/model"
	repo "github.com/danghaonhien/the-boring-coffee-sub000/internal/repository"
)

type CodeGenerator interface {
	NewCode() string
}

var discountCodePattern = regexp.MustCompile(`^[A-Z0-9_-]{3,64}$`)

// 採番が衝突したときの再試行回数
const codeGenerateAttempts = 3

type DiscountCodeUsecase struct {
	discountRepo repo.DiscountCodeRepository
	auditRepo    repo.AuditLogRepository
	codes        CodeGenerator
	clock        Clock
}

// DI
func NewDiscountCodeUsecase(
	discountRepo repo.DiscountCodeRepository,
	auditRepo repo.AuditLogRepository,
	codes CodeGenerator,
	clock Clock,
) *DiscountCodeUsecase {
	return &DiscountCodeUsecase{
		discountRepo: discountRepo,
		auditRepo:    auditRepo,
		codes:        codes,
		clock:        clock,
	}
}

type DiscountCodeInput struct {
	Code       string     `json:"code"`
	Percentage int        `json:"percentage"`
	Scope      string     `json:"scope"`
	ItemIDs    []int64    `json:"item_ids"`
	IsActive   *bool      `json:"is_active"`
	ExpiresAt  *time.Time `json:"expires_at"`
}

// 公開の照会結果
type DiscountLookup struct {
	Code       string              `json:"code"`
	Percentage int                 `json:"percentage"`
	Scope      model.DiscountScope `json:"scope"`
	ItemIDs    []int64             `json:"item_ids"`
	Valid      bool                `json:"valid"`
	Reason     string              `json:"reason,omitempty"`
}

func (u *DiscountCodeUsecase) List(ctx context.Context) ([]model.DiscountCode, error) {
	ds, err := u.discountRepo.List(ctx)
	if err != nil {
		return []model.DiscountCode{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return ds, nil
}

// code が空なら nanoid で採番する
func (u *DiscountCodeUsecase) Create(ctx context.Context, actor string, in DiscountCodeInput) (model.DiscountCode, error) {
	if actor == "" {
		return model.DiscountCode{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	d, err := u.buildDiscount(in)
	if err != nil {
		return model.DiscountCode{}, err
	}

	generated := d.Code == ""
	attempts := 1
	if generated {
		attempts = codeGenerateAttempts
	}

	var created model.DiscountCode
	for i := 0; i < attempts; i++ {
		if generated {
			d.Code = u.codes.NewCode()
		}
		created, err = u.discountRepo.Create(ctx, d)
		if !errors.Is(err, repo.ErrDuplicate) {
			break
		}
	}
	if errors.Is(err, repo.ErrDuplicate) {
		return model.DiscountCode{}, NewHTTPError(http.StatusConflict, "code already exists")
	}
	if err != nil {
		return model.DiscountCode{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.audit(ctx, actor, model.AuditActionUpsertDiscount, created.ID, nil, created); err != nil {
		return model.DiscountCode{}, err
	}
	return created, nil
}

func (u *DiscountCodeUsecase) Update(ctx context.Context, actor string, id int64, in DiscountCodeInput) (model.DiscountCode, error) {
	if actor == "" {
		return model.DiscountCode{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if id <= 0 {
		return model.DiscountCode{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	before, err := u.discountRepo.FindByID(ctx, id)
	if err == repo.ErrNotFound {
		return model.DiscountCode{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.DiscountCode{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if strings.TrimSpace(in.Code) == "" {
		in.Code = before.Code
	}
	if in.IsActive == nil {
		in.IsActive = &before.IsActive
	}
	d, err := u.buildDiscount(in)
	if err != nil {
		return model.DiscountCode{}, err
	}
	d.ID = id
	d.CreatedAt = before.CreatedAt
	d.UpdatedAt = u.clock.Now()

	err = u.discountRepo.Update(ctx, d)
	if errors.Is(err, repo.ErrDuplicate) {
		return model.DiscountCode{}, NewHTTPError(http.StatusConflict, "code already exists")
	}
	if err == repo.ErrNotFound {
		return model.DiscountCode{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.DiscountCode{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.audit(ctx, actor, model.AuditActionUpsertDiscount, id, before, d); err != nil {
		return model.DiscountCode{}, err
	}
	return d, nil
}

func (u *DiscountCodeUsecase) SetActive(ctx context.Context, actor string, id int64, active bool) error {
	if actor == "" {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if id <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	err := u.discountRepo.SetActive(ctx, id, active)
	if err == repo.ErrNotFound {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return u.audit(ctx, actor, model.AuditActionUpsertDiscount, id, nil, map[string]bool{"is_active": active})
}

func (u *DiscountCodeUsecase) Delete(ctx context.Context, actor string, id int64) error {
	if actor == "" {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if id <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	err := u.discountRepo.Delete(ctx, id)
	if err == repo.ErrNotFound {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return u.audit(ctx, actor, model.AuditActionDeleteDiscount, id, nil, nil)
}

// Lookup は公開の照会。無効・期限切れは valid=false で返す
func (u *DiscountCodeUsecase) Lookup(ctx context.Context, code string) (DiscountLookup, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return DiscountLookup{}, NewHTTPError(http.StatusBadRequest, "code required")
	}

	d, err := u.discountRepo.FindByCode(ctx, code)
	if err == repo.ErrNotFound {
		return DiscountLookup{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return DiscountLookup{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	out := DiscountLookup{
		Code:       d.Code,
		Percentage: d.Percentage,
		Scope:      d.Scope,
		ItemIDs:    d.ItemIDs,
		Valid:      true,
	}
	switch {
	case !d.IsActive:
		out.Valid, out.Reason = false, "inactive"
	case d.ExpiredAt(u.clock.Now()):
		out.Valid, out.Reason = false, "expired"
	}
	return out, nil
}

func (u *DiscountCodeUsecase) buildDiscount(in DiscountCodeInput) (model.DiscountCode, error) {
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	if code != "" && !discountCodePattern.MatchString(code) {
		return model.DiscountCode{}, NewHTTPError(http.StatusBadRequest, "invalid code")
	}
	if in.Percentage < 1 || in.Percentage > 100 {
		return model.DiscountCode{}, NewHTTPError(http.StatusBadRequest, "percentage must be 1..100")
	}

	scope := model.DiscountScope(strings.ToLower(strings.TrimSpace(in.Scope)))
	if scope == "" {
		scope = model.DiscountScopeAll
	}
	items := in.ItemIDs
	switch scope {
	case model.DiscountScopeAll:
		items = nil
	case model.DiscountScopeSingle:
		if len(items) != 1 {
			return model.DiscountCode{}, NewHTTPError(http.StatusBadRequest, "single scope needs exactly one item")
		}
	case model.DiscountScopeMultiple:
		if len(items) == 0 {
			return model.DiscountCode{}, NewHTTPError(http.StatusBadRequest, "multiple scope needs items")
		}
	default:
		return model.DiscountCode{}, NewHTTPError(http.StatusBadRequest, "invalid scope")
	}
	for _, id := range items {
		if id <= 0 {
			return model.DiscountCode{}, NewHTTPError(http.StatusBadRequest, "invalid item id")
		}
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	return model.DiscountCode{
		Code:       code,
		Percentage: in.Percentage,
		Scope:      scope,
		ItemIDs:    items,
		IsActive:   active,
		ExpiresAt:  in.ExpiresAt,
	}, nil
}

func (u *DiscountCodeUsecase) audit(ctx context.Context, actor string, action model.AuditAction, id int64, before, after any) error {
	if err := u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  actor,
		Action:       action,
		ResourceType: model.AuditResourceDiscount,
		ResourceID:   id,
		BeforeJSON:   toJSON(before),
		AfterJSON:    toJSON(after),
		CreatedAt:    u.clock.Now(),
	}); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}
