package repository

import (
	"context"
	"errors"
	"time"

	"github.com/danghaonhien/the-boring-coffee-sub000/internal/domain/model"
	repo "github.com/danghaonhien/the-boring-coffee-sub000/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ログイン済みユーザーの cart_items
type CartGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartGormRepository(db *gorm.DB) *CartGormRepository {
	return &CartGormRepository{db: db}
}

// カート明細を一覧取得（商品付き）
func (r *CartGormRepository) ListByUserID(ctx context.Context, userID string) ([]model.CartItem, error) {
	var items []model.CartItem

	if err := r.db.WithContext(ctx).
		Preload("Product").
		Where("user_id = ?", userID).
		Order("created_at asc").
		Order("id asc").
		Find(&items).Error; err != nil {
		return []model.CartItem{}, translate(err)
	}

	return items, nil
}

// 同一商品は数量加算。無ければ newID で作る
func (r *CartGormRepository) UpsertByUserAndProduct(ctx context.Context, userID string, productID int64, addQty int64, newID string) (model.CartItem, error) {
	if addQty <= 0 {
		return model.CartItem{}, errors.New("invalid quantity")
	}

	var itemID string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item model.CartItem

		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND product_id = ?", userID, productID).
			First(&item).Error

		if err == nil {
			// 既存ありだったら数量を増やす
			res := tx.Model(&model.CartItem{}).
				Where("id = ?", item.ID).
				Update("quantity", item.Quantity+addQty)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return repo.ErrNotFound
			}
			itemID = item.ID
			return nil
		}

		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		//無い場合は新規作成
		uid := userID
		newItem := model.CartItem{
			ID:        newID,
			UserID:    &uid,
			ProductID: productID,
			Quantity:  addQty,
			CreatedAt: time.Now(),
		}
		if err := tx.Omit(clause.Associations).Create(&newItem).Error; err != nil {
			return err
		}
		itemID = newItem.ID
		return nil
	})
	if err != nil {
		return model.CartItem{}, translate(err)
	}

	var out model.CartItem
	if err := r.db.WithContext(ctx).Preload("Product").First(&out, "id = ?", itemID).Error; err != nil {
		return model.CartItem{}, translate(err)
	}
	return out, nil
}

// 明細の数量を更新（本人の明細のみ）
func (r *CartGormRepository) UpdateQuantity(ctx context.Context, userID string, cartItemID string, qty int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.CartItem{}).
		Where("id = ? AND user_id = ?", cartItemID, userID).
		Update("quantity", qty)

	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 明細を削除
func (r *CartGormRepository) DeleteByID(ctx context.Context, userID string, cartItemID string) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", cartItemID, userID).
		Delete(&model.CartItem{})

	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// ユーザーの明細を全削除
func (r *CartGormRepository) DeleteAllByUserID(ctx context.Context, userID string) error {
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.CartItem{}).Error; err != nil {
		return translate(err)
	}
	return nil
}
