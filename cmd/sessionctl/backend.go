package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofinances/sessionkit/storage"
	boltstore "github.com/gofinances/sessionkit/storage/bbolt"
	"github.com/gofinances/sessionkit/storage/memory"
	redisstore "github.com/gofinances/sessionkit/storage/redis"
	"github.com/gofinances/sessionkit/storage/sqlite"
	"github.com/redis/go-redis/v9"
)

const (
	backendBolt   = "bbolt"
	backendSQLite = "sqlite"
	backendRedis  = "redis"
	backendMemory = "memory"
)

// openStorage opens the configured backend. The returned cleanup releases
// it and is never nil.
func openStorage(ctx context.Context, cfg config, logger *slog.Logger) (storage.Storage, func(), error) {
	switch cfg.Backend {
	case backendBolt:
		s, err := boltstore.Open(cfg.DataPath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil

	case backendSQLite:
		s, err := sqlite.Open(cfg.DataPath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil

	case backendRedis:
		return openRedis(ctx, cfg, logger)

	case backendMemory:
		logger.Warn("memory backend selected, session will not survive this process")
		return memory.New(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

func openRedis(ctx context.Context, cfg config, logger *slog.Logger) (storage.Storage, func(), error) {
	addr := cfg.RedisAddr

	var mr *miniredis.Miniredis
	if addr == "" {
		var err error
		mr, err = miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start miniredis: %w", err)
		}
		addr = mr.Addr()
		logger.Info("using miniredis", "addr", addr)
	} else {
		logger.Info("using redis", "addr", addr)
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{addr},
	})
	cleanup := func() {
		_ = client.Close()
		if mr != nil {
			mr.Close()
		}
	}
	if err := client.Ping(ctx).Err(); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return redisstore.NewStore(client, cfg.RedisPrefix), cleanup, nil
}
