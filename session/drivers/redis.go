package drivers

import (
	"context"
	"errors"
	"time"

	"github.com/creastat/sessionstore/session"
	"github.com/redis/go-redis/v9"
)

const (
	// Redis key prefix for sessions
	sessionKeyPrefix = "session:"
	// Keys deleted per DEL during Clear
	clearBatchSize = 100
)

// RedisStore implements session.Store using Redis.
// SET replaces the whole value atomically, which makes it the upsert.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a new Redis-based session store.
// A ttl of zero keeps keys until they are destroyed or cleared.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl < 0 {
		ttl = 0
	}
	return &RedisStore{
		client: client,
		ttl:    ttl,
	}
}

// Load implements session.Store.
// Returns nil if the session is not found (not an error).
func (s *RedisStore) Load(ctx context.Context, cookieValue string) (*session.Session, error) {
	id, err := session.IDFromCookieValue(cookieValue)
	if err != nil {
		return nil, err
	}

	val, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, session.Connectivity("load", id, err)
	}
	return session.Decode("load", id, val)
}

// Store implements session.Store.
func (s *RedisStore) Store(ctx context.Context, sess *session.Session) (string, error) {
	id, data, err := session.Encode("store", sess)
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, s.key(id), data, s.ttl).Err(); err != nil {
		return "", session.Connectivity("store", id, err)
	}
	return sess.CookieValue(), nil
}

// Destroy implements session.Store.
func (s *RedisStore) Destroy(ctx context.Context, sess *session.Session) error {
	id, err := session.IDOf("destroy", sess)
	if err != nil {
		return err
	}
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return session.Connectivity("destroy", id, err)
	}
	return nil
}

// Clear implements session.Store.
// Only keys under the session prefix are removed. Keys are collected before
// deleting so the scan cursor is not disturbed.
func (s *RedisStore) Clear(ctx context.Context) error {
	var keys []string
	iter := s.client.Scan(ctx, 0, sessionKeyPrefix+"*", clearBatchSize).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return session.Connectivity("clear", "", err)
	}

	for len(keys) > 0 {
		n := min(len(keys), clearBatchSize)
		if err := s.client.Del(ctx, keys[:n]...).Err(); err != nil {
			return session.Connectivity("clear", "", err)
		}
		keys = keys[n:]
	}
	return nil
}

// key constructs the Redis key for a session ID.
func (s *RedisStore) key(id string) string {
	return sessionKeyPrefix + id
}

var _ session.Store = (*RedisStore)(nil)
