// Package cache stores short-lived strings: resolved tenant profiles and revoked session ids.
package cache

import (
	"context"
	"errors"
	"time"
)

var ErrCacheMiss = errors.New("cache miss")

type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// Config - параметры подключения; пустой Addr означает кэш в памяти процесса
type Config struct {
	Addr     string
	Password string
	DB       int
}

func New(cfg Config) (Cache, error) {
	if cfg.Addr == "" {
		return NewMemoryCache(), nil
	}
	return NewRedisCache(cfg)
}
