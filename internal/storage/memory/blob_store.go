package memory

import (
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/foodtruck/internal/domain"
)

// BlobStore хранит значения в памяти процесса (локальная разработка и тесты).
type BlobStore struct {
	mu    sync.RWMutex
	items map[string][]byte
	// failWrites заставляет Set возвращать ошибку (симуляция переполненного хранилища).
	failWrites error
}

// NewBlobStore возвращает пустое in-memory хранилище.
func NewBlobStore() *BlobStore {
	return &BlobStore{
		items: make(map[string][]byte),
	}
}

// Get возвращает копию значения, чтобы вызывающий код не мутировал хранилище.
func (s *BlobStore) Get(key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.items[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

// Set сохраняет копию значения.
func (s *BlobStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWrites != nil {
		return s.failWrites
	}
	s.items[key] = append([]byte(nil), value...)
	return nil
}

// FailWrites включает (err != nil) или выключает (nil) отказ всех последующих записей.
func (s *BlobStore) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWrites = err
}

// Keys возвращает записанные ключи в лексикографическом порядке.
func (s *BlobStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.items))
	for key := range s.items {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

var _ domain.BlobStore = (*BlobStore)(nil)
