package model

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCanceled  OrderStatus = "CANCELED"
)

// 注文。ゲスト購入ではUserIDがnil
type Order struct {
	ID     int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID *string     `gorm:"type:varchar(64);index" json:"user_id"`
	Status OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`

	Subtotal int64 `gorm:"not null" json:"subtotal"`
	Tax      int64 `gorm:"not null" json:"tax"`
	Shipping int64 `gorm:"not null" json:"shipping"`
	Total    int64 `gorm:"not null" json:"total"`

	//配送先
	FirstName string `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName  string `gorm:"type:varchar(100);not null" json:"last_name"`
	Email     string `gorm:"type:varchar(255);not null" json:"email"`
	Address   string `gorm:"type:varchar(255);not null" json:"address"`
	City      string `gorm:"type:varchar(100);not null" json:"city"`
	State     string `gorm:"type:varchar(100);not null" json:"state"`
	ZipCode   string `gorm:"type:varchar(20);not null" json:"zip_code"`
	Country   string `gorm:"type:varchar(100)" json:"country"`
	Phone     string `gorm:"type:varchar(30)" json:"phone"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
