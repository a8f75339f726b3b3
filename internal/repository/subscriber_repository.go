package repository

import (
	"context"

	"github.com/danghaonhien/the-boring-coffee-sub000/internal/domain/model"
)

type SubscriberRepository interface {
	// 既に登録済みならその行を返す（created=false）
	CreateIfAbsent(ctx context.Context, s model.Subscriber) (model.Subscriber, bool, error)
}
