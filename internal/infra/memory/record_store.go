package memory

import (
	"context"
	"sync"

	"prime-quiz-bot/internal/domain"
)

// RecordStore is an in-memory implementation of app.RecordStore.
type RecordStore struct {
	mu      sync.RWMutex
	records map[string][]byte
}

func NewRecordStore() *RecordStore {
	return &RecordStore{
		records: make(map[string][]byte),
	}
}

func (s *RecordStore) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.records[key]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return append([]byte(nil), data...), nil
}

func (s *RecordStore) Save(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = append([]byte(nil), data...)
	return nil
}
