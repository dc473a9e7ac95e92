package redisx

import (
	"context"
	"errors"
	"github.com/redis/go-redis/v9"
	"time"
)

func New(addr string) *redis.Client {
	r := redis.NewClient(&redis.Options{Addr: addr})
	_ = r.WithTimeout(2 * time.Second)
	return r
}

// Store adalah key-value dengan TTL di atas Redis.
type Store struct{ RDB *redis.Client }

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.RDB.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.RDB.Set(ctx, key, value, ttl).Err()
}

// SetNX dipakai buat dedup: true kalau key baru dibuat.
func (s *Store) SetNX(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.RDB.SetNX(ctx, key, "1", ttl).Result()
}

func (s *Store) Del(ctx context.Context, key string) error {
	return s.RDB.Del(ctx, key).Err()
}
