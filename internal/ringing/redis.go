package ringing

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ringing:"

// defaultTTL bounds how long an unanswered PIN prompt can hold a record.
// Callers can retry the PIN indefinitely, but each prompt round-trips
// through the vendor well within this window, refreshing nothing: a call
// that neither authenticates nor disconnects within the TTL has been lost
// by the vendor and its record is garbage.
const defaultTTL = time.Hour

// RedisStore keeps ringing records in Redis so they survive process
// restarts between a caller's ring and PIN entry.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Put(ctx context.Context, callID, callerNumber string) error {
	return s.rdb.Set(ctx, keyPrefix+callID, callerNumber, s.ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, callID string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, keyPrefix+callID).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *RedisStore) Delete(ctx context.Context, callID string) error {
	return s.rdb.Del(ctx, keyPrefix+callID).Err()
}
