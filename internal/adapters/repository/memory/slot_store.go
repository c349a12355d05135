package memory

import (
	"context"
	"sync"
)

// SlotStore はプロセス内のみで保持するキー・値スロットです。テストと一時利用向けです。
type SlotStore struct {
	mu    sync.RWMutex
	slots map[string]string
}

// NewSlotStore は空の SlotStore を生成します。
func NewSlotStore() *SlotStore {
	return &SlotStore{slots: make(map[string]string)}
}

// Get は key の値を返します。未保存の場合は ok が false です。
func (s *SlotStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.slots[key]
	return v, ok, nil
}

// Put は key に value を保存します。
func (s *SlotStore) Put(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[key] = value
	return nil
}

// Len は保存済みのキー数を返します。
func (s *SlotStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.slots)
}
