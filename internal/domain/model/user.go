package model

import "time"

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// IDは認証プロバイダのsub
type User struct {
	ID        string `gorm:"type:varchar(64);primaryKey"`
	Email     string `gorm:"type:varchar(255);index"`
	Role      Role   `gorm:"type:varchar(20);not null;default:'USER'"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
