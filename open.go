package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/creastat/sessionstore/config"
	"github.com/creastat/sessionstore/session"
	"github.com/creastat/sessionstore/supabase"
	"github.com/redis/go-redis/v9"
)

// Opened is a store built from configuration together with the connections
// opened for it. Applications that share their own pool should use NewStore.
type Opened struct {
	Store session.Store
	// SQL is set for the sql store; migrations run against it.
	SQL *SQLHandle

	closers []func() error
}

// Close releases the connections opened by Open.
func (o *Opened) Close() error {
	var errs []error
	for i := len(o.closers) - 1; i >= 0; i-- {
		errs = append(errs, o.closers[i]())
	}
	return errors.Join(errs...)
}

// Open builds the store cfg selects, opening the connection it needs.
func Open(ctx context.Context, cfg *config.Config) (*Opened, error) {
	opened := &Opened{}
	opts := []StoreOption{WithTable(cfg.Table)}

	switch StoreType(cfg.Store) {
	case StoreTypeSQL:
		db, d, err := OpenDB(ctx, cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		opened.closers = append(opened.closers, db.Close)
		opened.SQL = &SQLHandle{DB: db, Dialect: d}
		opts = append(opts, WithSQLDB(db, d))

	case StoreTypeRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		opened.closers = append(opened.closers, client.Close)
		opts = append(opts, WithRedisClient(client), WithRedisTTL(time.Duration(cfg.Redis.TTL)))

	case StoreTypeSupabase:
		opts = append(opts, WithSupabase(supabase.Config{
			URL:    cfg.Supabase.URL,
			APIKey: cfg.Supabase.APIKey,
		}))
	}

	store, err := NewStore(StoreType(cfg.Store), opts...)
	if err != nil {
		_ = opened.Close()
		return nil, err
	}
	opened.Store = store
	return opened, nil
}
