// Package sessionstore persists server-side web sessions in a relational
// database, Redis, Supabase or memory behind one four-operation contract,
// session.Store.
package sessionstore

import (
	"fmt"

	"github.com/creastat/sessionstore/session"
	"github.com/creastat/sessionstore/session/drivers"
	"github.com/creastat/sessionstore/supabase"
)

// StoreType represents the type of session store.
type StoreType string

const (
	StoreTypeMemory   StoreType = "memory"
	StoreTypeRedis    StoreType = "redis"
	StoreTypeSQL      StoreType = "sql"
	StoreTypeSupabase StoreType = "supabase"
)

// NewStore creates a new session.Store based on the given type.
// The SQL store requires WithSQLDB, the Redis store WithRedisClient and the
// Supabase store WithSupabase.
func NewStore(storeType StoreType, opts ...StoreOption) (session.Store, error) {
	config := &storeConfig{}

	// Apply options
	for _, opt := range opts {
		opt(config)
	}

	switch storeType {
	case StoreTypeMemory:
		return drivers.NewInMemoryStore(), nil

	case StoreTypeRedis:
		if config.redisClient == nil {
			return nil, ErrInvalidConfig
		}
		return drivers.NewRedisStore(config.redisClient, config.redisTTL), nil

	case StoreTypeSQL:
		if config.db == nil || config.dialect == nil {
			return nil, ErrInvalidConfig
		}
		return drivers.NewSQLStore(config.db, config.dialect, config.table), nil

	case StoreTypeSupabase:
		if config.supabase == nil {
			return nil, ErrInvalidConfig
		}
		cfg := *config.supabase
		if cfg.Table == "" {
			cfg.Table = config.table
		}
		store, err := supabase.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		return store, nil

	default:
		return nil, ErrInvalidStoreType
	}
}
