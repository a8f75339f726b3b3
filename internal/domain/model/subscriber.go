package model

import "time"

// ニュースレター購読者
type Subscriber struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	DiscountCode string    `gorm:"type:varchar(64);not null" json:"discount_code"`
	CreatedAt    time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
