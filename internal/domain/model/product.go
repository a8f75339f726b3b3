package model

import "time"

// 商品。価格は最小通貨単位（セント）で持つ
type Product struct {
	ID                 int64     `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name               string    `gorm:"type:varchar(255);not null" json:"name"`
	Description        string    `gorm:"type:text" json:"description"`
	Price              int64     `gorm:"not null" json:"price"`
	OriginalPrice      int64     `gorm:"not null;default:0" json:"original_price"`
	DiscountPercentage int       `gorm:"not null;default:0" json:"discount_percentage"`
	Stock              int64     `gorm:"not null;default:0" json:"stock"`
	Category           string    `gorm:"type:varchar(100);not null;index" json:"category"`
	ImageURL           string    `gorm:"type:text;column:image_url" json:"image_url"`
	Images             []string  `gorm:"serializer:json;type:jsonb" json:"images,omitempty"`
	Rating             float64   `gorm:"not null;default:0" json:"rating,omitempty"`
	RoastLevel         string    `gorm:"type:varchar(50)" json:"roast_level,omitempty"`
	Story              string    `gorm:"type:text" json:"story,omitempty"`
	Steps              []string  `gorm:"serializer:json;type:jsonb" json:"steps,omitempty"`
	CreatedAt          time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
