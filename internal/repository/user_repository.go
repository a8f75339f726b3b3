package repository

import (
	"context"

	"github.com/danghaonhien/the-boring-coffee-sub000/internal/domain/model"
)

// 保存・取得を約束
type UserRepository interface {
	// IDからユーザーを1件取得する。
	FindByID(ctx context.Context, userID string) (model.User, error)
	// 初回ログイン時に作成、以降はemailだけ更新（roleは触らない）
	Upsert(ctx context.Context, user model.User) error
	SetRole(ctx context.Context, userID string, role model.Role) error
}
