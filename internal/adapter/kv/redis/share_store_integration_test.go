//go:build integration

package redis

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/dov85/Apartment/internal/config"
	"github.com/dov85/Apartment/internal/docsync"
	"github.com/dov85/Apartment/internal/listing/domain"
	"github.com/dov85/Apartment/internal/platform/logger"
	"github.com/ory/dockertest/v3"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testClient *goredis.Client

func TestMain(m *testing.M) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Fatalf("Could not construct pool: %s", err)
	}
	if err := pool.Client.Ping(); err != nil {
		log.Fatalf("Could not connect to Docker: %s", err)
	}

	resource, err := pool.Run("redis", "7-alpine", nil)
	if err != nil {
		log.Fatalf("Could not start redis: %s", err)
	}
	_ = resource.Expire(120)

	cfg := config.RedisConfig{Address: fmt.Sprintf("localhost:%s", resource.GetPort("6379/tcp"))}
	pool.MaxWait = 30 * time.Second
	if err := pool.Retry(func() error {
		c, err := NewClient(context.Background(), cfg)
		if err != nil {
			return err
		}
		testClient = c
		return nil
	}); err != nil {
		log.Fatalf("Could not connect to redis: %s", err)
	}

	code := m.Run()

	_ = testClient.Close()
	if err := pool.Purge(resource); err != nil {
		log.Printf("Could not purge resource: %s", err)
	}
	os.Exit(code)
}

func TestShareStore_GetSet(t *testing.T) {
	ctx := context.Background()
	store := NewShareStore(testClient, logger.NewNop())

	_, err := store.Get(ctx, "family")
	assert.ErrorIs(t, err, docsync.ErrKeyNotFound)

	require.NoError(t, store.Set(ctx, "family", []byte(`[{"id":"1"}]`)))
	got, err := store.Get(ctx, "family")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[{"id":"1"}]`), got)

	ttl, err := testClient.TTL(ctx, shareKey("family")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 29*24*time.Hour)
}

func TestShareStore_TwoDevicesConverge(t *testing.T) {
	ctx := context.Background()
	store := NewShareStore(testClient, logger.NewNop())

	a := docsync.NewEngine(&memRemote{}, &memCache{}, logger.NewNop())
	b := docsync.NewEngine(&memRemote{}, &memCache{}, logger.NewNop())
	require.NoError(t, a.Save(ctx, domain.Collection{{ID: "x", Status: domain.StatusNew, Images: []domain.ImageRef{}}}))
	_, err := b.Load(ctx)
	require.NoError(t, err)

	loopA := docsync.NewShareLoop(a, store, "converge", time.Second, logger.NewNop())
	loopB := docsync.NewShareLoop(b, store, "converge", time.Second, logger.NewNop())
	loopA.Tick(ctx)
	loopB.Tick(ctx)

	require.Len(t, b.Current(), 1)
	assert.Equal(t, "x", b.Current()[0].ID)
}

type memRemote struct{ c domain.Collection }

func (m *memRemote) Fetch(context.Context) (domain.Collection, error) { return m.c.Clone(), nil }
func (m *memRemote) Store(_ context.Context, c domain.Collection) error {
	m.c = c.Clone()
	return nil
}

type memCache struct {
	c  domain.Collection
	ok bool
}

func (m *memCache) Load() (domain.Collection, bool, error) { return m.c.Clone(), m.ok, nil }
func (m *memCache) Save(c domain.Collection) error {
	m.c, m.ok = c.Clone(), true
	return nil
}
