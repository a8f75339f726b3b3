package repository

import (
	"context"

	"github.com/danghaonhien/the-boring-coffee-sub000/internal/domain/model"
)

// 認証済みユーザーのリモートカート（cart_items）。
type CartItemRepository interface {
	// 商品をPreloadした明細一覧
	ListByUserID(ctx context.Context, userID string) ([]model.CartItem, error)
	// 同一商品はプラス。作成/更新後の行を返す
	UpsertByUserAndProduct(ctx context.Context, userID string, productID int64, addQty int64, newID string) (model.CartItem, error)
	UpdateQuantity(ctx context.Context, userID string, cartItemID string, qty int64) error
	DeleteByID(ctx context.Context, userID string, cartItemID string) error
	DeleteAllByUserID(ctx context.Context, userID string) error
}
