package docsync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dov85/Apartment/internal/listing/domain"
	"github.com/dov85/Apartment/internal/platform/logger"
	"go.uber.org/zap"
)

const DefaultShareInterval = 5 * time.Second

var ErrKeyNotFound = errors.New("share key not found")

// KVStore is the key-value endpoint behind a share code.
type KVStore interface {
	Get(ctx context.Context, code string) ([]byte, error)
	Set(ctx context.Context, code string, value []byte) error
}

// ShareLoop mirrors the collection through a KV endpoint under a short
// share code. It is fire-and-forget: no ordering against primary saves and
// no conflict resolution.
type ShareLoop struct {
	engine   *Engine
	kv       KVStore
	code     string
	interval time.Duration
	logger   *logger.Logger

	lastSeen   []byte
	lastPushed []byte
}

func NewShareLoop(engine *Engine, kv KVStore, code string, interval time.Duration, log *logger.Logger) *ShareLoop {
	if interval <= 0 {
		interval = DefaultShareInterval
	}
	return &ShareLoop{
		engine:   engine,
		kv:       kv,
		code:     code,
		interval: interval,
		logger:   log.Named("share").With(zap.String("code", code)),
	}
}

// Run ticks until ctx is done.
func (s *ShareLoop) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick pulls the shared snapshot, adopting it if it changed, then pushes the
// engine's collection if it changed since the last push.
func (s *ShareLoop) Tick(ctx context.Context) {
	s.pull(ctx)
	s.push(ctx)
}

func (s *ShareLoop) pull(ctx context.Context) {
	data, err := s.kv.Get(ctx, s.code)
	if errors.Is(err, ErrKeyNotFound) {
		return
	}
	if err != nil {
		s.logger.Debug("Share pull failed", zap.Error(err))
		return
	}
	if bytes.Equal(data, s.lastSeen) {
		return
	}
	var c domain.Collection
	if err := json.Unmarshal(data, &c); err != nil {
		s.logger.Warn("Shared snapshot is not a collection", zap.Error(err))
		s.lastSeen = data
		return
	}
	s.engine.Adopt(c)
	s.lastSeen = data
	s.lastPushed = s.encodeCurrent()
	s.logger.Info("Adopted shared snapshot", zap.Int("listings", len(c)))
}

func (s *ShareLoop) push(ctx context.Context) {
	cur := s.encodeCurrent()
	if cur == nil || bytes.Equal(cur, s.lastPushed) {
		return
	}
	if err := s.kv.Set(ctx, s.code, cur); err != nil {
		s.logger.Debug("Share push failed", zap.Error(err))
		return
	}
	s.lastPushed = cur
	s.lastSeen = cur
}

func (s *ShareLoop) encodeCurrent() []byte {
	c := s.engine.Current()
	if c == nil {
		c = domain.Collection{}
	}
	data, err := json.Marshal(c)
	if err != nil {
		s.logger.Warn("Encode collection for share failed", zap.Error(err))
		return nil
	}
	return data
}
