package repository

import (
	"context"
	"errors"

	"github.com/danghaonhien/the-boring-coffee-sub000/internal/domain/model"
)

// コードが重複
var ErrDuplicate = errors.New("duplicate")

type DiscountCodeRepository interface {
	List(ctx context.Context) ([]model.DiscountCode, error)
	FindByID(ctx context.Context, id int64) (model.DiscountCode, error)
	FindByCode(ctx context.Context, code string) (model.DiscountCode, error)
	Create(ctx context.Context, d model.DiscountCode) (model.DiscountCode, error)
	Update(ctx context.Context, d model.DiscountCode) error
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
}
