package repository

import (
	"context"
	"errors"

	"github.com/danghaonhien/the-boring-coffee-sub000/internal/domain/model"
)

var ErrNotFound = errors.New("not found")

// 行レベル権限で拒否された（SQLSTATE 42501）
var ErrPermissionDenied = errors.New("permission denied")

// 商品の永続化（保存・取得）だけを約束。
type ProductRepository interface {
	// テーブル直読み。権限エラー時は get_all_products() にフォールバックする
	ListAll(ctx context.Context) ([]model.Product, error)
	ListByCategory(ctx context.Context, category string) ([]model.Product, error)
	Search(ctx context.Context, q string) ([]model.Product, error)
	FindByID(ctx context.Context, id int64) (model.Product, error)
	Count(ctx context.Context) (int64, error)

	// 権限エラー時は insert_product() にフォールバックする
	Create(ctx context.Context, p model.Product) (model.Product, error)
	Update(ctx context.Context, p model.Product) error
	Delete(ctx context.Context, id int64) error

	// get_all_products() を直接呼ぶ（接続診断用）
	ListAllViaProcedure(ctx context.Context) ([]model.Product, error)
}
