package model

import "time"

// カートの明細。
// UserIDがnilならゲスト（セッションのローカルカート）の明細。
type CartItem struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID    *string   `gorm:"type:varchar(64);index" json:"user_id"`
	ProductID int64     `gorm:"not null;index" json:"product_id"`
	Quantity  int64     `gorm:"not null" json:"quantity"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`

	// 表示用に非正規化した商品
	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// 小計に使う単価（商品が無ければ0）
func (i CartItem) UnitPrice() int64 {
	if i.Product == nil {
		return 0
	}
	return i.Product.Price
}
