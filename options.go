package sessionstore

import (
	"database/sql"
	"time"

	"github.com/creastat/sessionstore/dialect"
	"github.com/creastat/sessionstore/supabase"
	"github.com/redis/go-redis/v9"
)

// StoreOption is a functional option for configuring a session store.
type StoreOption func(*storeConfig)

// storeConfig holds configuration for session stores.
type storeConfig struct {
	redisClient *redis.Client
	redisTTL    time.Duration

	db      *sql.DB
	dialect dialect.Dialect

	supabase *supabase.Config

	table string
}

// WithRedisClient sets the Redis client for the Redis store.
func WithRedisClient(client *redis.Client) StoreOption {
	return func(c *storeConfig) {
		c.redisClient = client
	}
}

// WithRedisTTL sets the TTL for Redis keys.
func WithRedisTTL(ttl time.Duration) StoreOption {
	return func(c *storeConfig) {
		c.redisTTL = ttl
	}
}

// WithSQLDB sets the database handle and its dialect for the SQL store.
// The store does not close db.
func WithSQLDB(db *sql.DB, d dialect.Dialect) StoreOption {
	return func(c *storeConfig) {
		c.db = db
		c.dialect = d
	}
}

// WithSupabase sets the Supabase connection for the Supabase store.
func WithSupabase(cfg supabase.Config) StoreOption {
	return func(c *storeConfig) {
		c.supabase = &cfg
	}
}

// WithTable sets the session table for the SQL and Supabase stores.
func WithTable(table string) StoreOption {
	return func(c *storeConfig) {
		c.table = table
	}
}
