package cartstore

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/danghaonhien/the-boring-coffee-sub000/internal/domain/model"
)

// MemoryStore はプロセス内のストア。再起動で消える。
// Redisと同じくJSONで持つので、取り出した値を書き換えても中身は変わらない。
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string][]byte{}}
}

// 未保存なら空の状態を返す
func (s *MemoryStore) Load(_ context.Context, sessionID string) (model.LocalCart, error) {
	s.mu.RLock()
	raw, ok := s.data[key(sessionID)]
	s.mu.RUnlock()

	if !ok {
		return model.LocalCart{}, nil
	}
	var cart model.LocalCart
	if err := json.Unmarshal(raw, &cart); err != nil {
		return model.LocalCart{}, err
	}
	return cart, nil
}

func (s *MemoryStore) Save(_ context.Context, sessionID string, cart model.LocalCart) error {
	raw, err := json.Marshal(cart)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.data[key(sessionID)] = raw
	s.mu.Unlock()
	return nil
}
