package cartstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/danghaonhien/the-boring-coffee-sub000/internal/domain/model"

	"github.com/redis/go-redis/v9"
)

// ゲストカートの保持期間
const DefaultTTL = 30 * 24 * time.Hour

// RedisStore は複数プロセスで共有するセッションカート。
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) (model.LocalCart, error) {
	raw, err := s.client.Get(ctx, key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.LocalCart{}, nil
	}
	if err != nil {
		return model.LocalCart{}, fmt.Errorf("load cart: %w", err)
	}

	var cart model.LocalCart
	if err := json.Unmarshal(raw, &cart); err != nil {
		return model.LocalCart{}, fmt.Errorf("decode cart: %w", err)
	}
	return cart, nil
}

// 保存のたびにTTLを延ばす
func (s *RedisStore) Save(ctx context.Context, sessionID string, cart model.LocalCart) error {
	raw, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.client.Set(ctx, key(sessionID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}
