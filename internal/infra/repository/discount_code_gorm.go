package repository

import (
	"context"
	"strings"

	"github.com/danghaonhien/the-boring-coffee-sub000/internal/domain/model"
	repo "github.com/danghaonhien/the-boring-coffee-sub000/internal/repository"

	"gorm.io/gorm"
)

var discountUpdateColumns = []string{"code", "percentage", "scope", "item_ids", "is_active", "expires_at", "updated_at"}

type DiscountCodeGormRepository struct {
	db *gorm.DB
}

func NewDiscountCodeGormRepository(db *gorm.DB) *DiscountCodeGormRepository {
	return &DiscountCodeGormRepository{db: db}
}

func (r *DiscountCodeGormRepository) List(ctx context.Context) ([]model.DiscountCode, error) {
	var out []model.DiscountCode
	if err := r.db.WithContext(ctx).Order("id desc").Find(&out).Error; err != nil {
		return []model.DiscountCode{}, translate(err)
	}
	return out, nil
}

func (r *DiscountCodeGormRepository) FindByID(ctx context.Context, id int64) (model.DiscountCode, error) {
	var d model.DiscountCode
	if err := r.db.WithContext(ctx).First(&d, id).Error; err != nil {
		return model.DiscountCode{}, translate(err)
	}
	return d, nil
}

// コードは大文字で保存している
func (r *DiscountCodeGormRepository) FindByCode(ctx context.Context, code string) (model.DiscountCode, error) {
	var d model.DiscountCode
	err := r.db.WithContext(ctx).
		Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&d).Error
	if err != nil {
		return model.DiscountCode{}, translate(err)
	}
	return d, nil
}

func (r *DiscountCodeGormRepository) Create(ctx context.Context, d model.DiscountCode) (model.DiscountCode, error) {
	if err := r.db.WithContext(ctx).Create(&d).Error; err != nil {
		return model.DiscountCode{}, translate(err)
	}
	return d, nil
}

func (r *DiscountCodeGormRepository) Update(ctx context.Context, d model.DiscountCode) error {
	res := r.db.WithContext(ctx).Model(&d).Select(discountUpdateColumns).Updates(&d)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *DiscountCodeGormRepository) SetActive(ctx context.Context, id int64, active bool) error {
	res := r.db.WithContext(ctx).Model(&model.DiscountCode{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *DiscountCodeGormRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&model.DiscountCode{}, id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
