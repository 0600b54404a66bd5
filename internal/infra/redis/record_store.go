package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"prime-quiz-bot/internal/domain"
)

// DefaultPrefix namespaces record keys: {prefix}{key}.
const DefaultPrefix = "quizbot:record:"

// RecordStore keeps each record as a plain Redis string without expiry.
// Concurrent loads of the same key share one round trip.
type RecordStore struct {
	client *redis.Client
	prefix string
	sf     singleflight.Group
}

func NewRecordStore(client *redis.Client, prefix string) *RecordStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RecordStore{client: client, prefix: prefix}
}

func (s *RecordStore) Load(ctx context.Context, key string) ([]byte, error) {
	result, err, _ := s.sf.Do(key, func() (interface{}, error) {
		data, err := s.client.Get(ctx, s.prefix+key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrRecordNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("redis get %s: %w", key, err)
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), result.([]byte)...), nil
}

func (s *RecordStore) Save(ctx context.Context, key string, data []byte) error {
	if err := s.client.Set(ctx, s.prefix+key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
