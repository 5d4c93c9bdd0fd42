package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/MrEthical07/goSession/credential"
	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// openStore returns the configured credential store and a func releasing its
// connections.
func openStore(ctx context.Context, cfg storeConfig, logger *zap.Logger) (credential.Store, func(), error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "memory":
		return credential.NewMemoryStore(nil), func() {}, nil

	case "redis":
		addr := cfg.RedisAddr
		var embedded *miniredis.Miniredis
		if addr == "" {
			mr, err := miniredis.Run()
			if err != nil {
				return nil, nil, fmt.Errorf("start embedded redis: %w", err)
			}
			embedded = mr
			addr = mr.Addr()
			logger.Warn("no redis address configured, using an in-process redis", zap.String("addr", addr))
		}
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			if embedded != nil {
				embedded.Close()
			}
			return nil, nil, fmt.Errorf("redis %s: %w", addr, err)
		}
		closeFn := func() {
			_ = rdb.Close()
			if embedded != nil {
				embedded.Close()
			}
		}
		return credential.NewRedisStore(rdb, cfg.RedisPrefix, cfg.Name, cfg.RedisTTL), closeFn, nil

	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, nil, fmt.Errorf("store.postgres_dsn required for the postgres backend")
		}
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		store := credential.NewPostgresStore(pool, cfg.Name)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
