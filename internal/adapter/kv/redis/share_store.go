package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dov85/Apartment/internal/config"
	"github.com/dov85/Apartment/internal/docsync"
	"github.com/dov85/Apartment/internal/platform/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	shareKeyPrefix = "flatshare:"
	dialTimeout    = 5 * time.Second
	// Shared snapshots expire if nobody pushes for a while.
	shareTTL = 30 * 24 * time.Hour
)

func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Address, err)
	}
	return client, nil
}

// ShareStore keeps one snapshot of the collection per share code.
type ShareStore struct {
	client *redis.Client
	logger *logger.Logger
}

var _ docsync.KVStore = (*ShareStore)(nil)

func NewShareStore(client *redis.Client, log *logger.Logger) *ShareStore {
	return &ShareStore{client: client, logger: log.Named("share_store")}
}

func shareKey(code string) string { return shareKeyPrefix + code }

func (s *ShareStore) Get(ctx context.Context, code string) ([]byte, error) {
	val, err := s.client.Get(ctx, shareKey(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, docsync.ErrKeyNotFound
	}
	if err != nil {
		s.logger.Error("Redis Get operation failed", zap.String("code", code), zap.Error(err))
		return nil, fmt.Errorf("share store get %q: %w", code, err)
	}
	return val, nil
}

func (s *ShareStore) Set(ctx context.Context, code string, value []byte) error {
	if err := s.client.Set(ctx, shareKey(code), value, shareTTL).Err(); err != nil {
		s.logger.Error("Redis Set operation failed", zap.String("code", code), zap.Error(err))
		return fmt.Errorf("share store set %q: %w", code, err)
	}
	return nil
}
