// Package cache provides the expiring key/value store used for course search
// results and place details.
package cache

import (
	"context"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/bmstoss13/HoleNOne/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Store is an expiring byte cache. A miss is not an error.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// GetJSON decodes a cached value into out. It reports false on a miss.
func GetJSON(ctx context.Context, s Store, key string, out any) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decoding cached value for %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding value for %s: %w", key, err)
	}
	return s.Set(ctx, key, raw, ttl)
}

// New builds the configured backend.
func New(ctx context.Context, cfg config.CacheConfig, logger *zap.Logger) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		logger.Info("Using in-memory cache.")
		return NewMemoryStore(), nil
	case "redis":
		s, err := NewRedisStore(ctx, RedisOptions{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		if err != nil {
			return nil, err
		}
		logger.Info("Using redis cache.", zap.String("addr", cfg.RedisAddr))
		return s, nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.Backend)
	}
}
