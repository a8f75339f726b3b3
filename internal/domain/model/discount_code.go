package model

import "time"

// 割引コードの適用範囲
type DiscountScope string

const (
	DiscountScopeSingle   DiscountScope = "single"
	DiscountScopeMultiple DiscountScope = "multiple"
	DiscountScopeAll      DiscountScope = "all"
)

type DiscountCode struct {
	ID         int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	Code       string        `gorm:"type:varchar(64);not null;uniqueIndex" json:"code"`
	Percentage int           `gorm:"not null" json:"percentage"`
	Scope      DiscountScope `gorm:"type:varchar(20);not null" json:"scope"`
	ItemIDs    []int64       `gorm:"serializer:json;type:jsonb" json:"item_ids"`
	IsActive   bool          `gorm:"not null;default:true" json:"is_active"`
	ExpiresAt  *time.Time    `json:"expires_at"`
	CreatedAt  time.Time     `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time     `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 期限切れかどうか（期限なしは常にfalse）
func (d DiscountCode) ExpiredAt(now time.Time) bool {
	return d.ExpiresAt != nil && !now.Before(*d.ExpiresAt)
}

// 商品に適用できるか
func (d DiscountCode) AppliesTo(productID int64) bool {
	if d.Scope == DiscountScopeAll {
		return true
	}
	for _, id := range d.ItemIDs {
		if id == productID {
			return true
		}
	}
	return false
}
