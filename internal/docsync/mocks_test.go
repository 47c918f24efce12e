package docsync

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/dov85/Apartment/internal/listing/domain"
	"github.com/stretchr/testify/mock"
)

// memRemote is an in-memory remote document that round-trips through JSON.
type memRemote struct {
	mu     sync.Mutex
	data   []byte
	stores int
}

func (m *memRemote) Fetch(ctx context.Context) (domain.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, domain.ErrDocumentNotFound
	}
	var c domain.Collection
	err := json.Unmarshal(m.data, &c)
	return c, err
}

func (m *memRemote) Store(ctx context.Context, c domain.Collection) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
	m.stores++
	return nil
}

type MockRemote struct {
	mock.Mock
}

func (m *MockRemote) Fetch(ctx context.Context) (domain.Collection, error) {
	args := m.Called(ctx)
	c, _ := args.Get(0).(domain.Collection)
	return c, args.Error(1)
}

func (m *MockRemote) Store(ctx context.Context, c domain.Collection) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

type MockRefChecker struct {
	mock.Mock
}

func (m *MockRefChecker) Exists(ctx context.Context, ref domain.ImageRef) bool {
	args := m.Called(ctx, ref)
	return args.Bool(0)
}

type MockKVStore struct {
	mock.Mock
}

func (m *MockKVStore) Get(ctx context.Context, code string) ([]byte, error) {
	args := m.Called(ctx, code)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

func (m *MockKVStore) Set(ctx context.Context, code string, value []byte) error {
	args := m.Called(ctx, code, value)
	return args.Error(0)
}

type MockBridge struct {
	mock.Mock
}

func (m *MockBridge) FetchDocument(ctx context.Context) (domain.Collection, error) {
	args := m.Called(ctx)
	c, _ := args.Get(0).(domain.Collection)
	return c, args.Error(1)
}

func (m *MockBridge) StoreDocument(ctx context.Context, c domain.Collection) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

type staticAvailability bool

func (s staticAvailability) Available(context.Context) bool { return bool(s) }

type MockObjectStorage struct {
	mock.Mock
}

func (m *MockObjectStorage) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	args := m.Called(ctx, path, data, contentType)
	return args.Error(0)
}

func (m *MockObjectStorage) Get(ctx context.Context, path string) ([]byte, string, error) {
	args := m.Called(ctx, path)
	b, _ := args.Get(0).([]byte)
	return b, args.String(1), args.Error(2)
}

func (m *MockObjectStorage) Delete(ctx context.Context, paths ...string) error {
	args := m.Called(ctx, paths)
	return args.Error(0)
}

func (m *MockObjectStorage) List(ctx context.Context, prefix string) ([]domain.ObjectInfo, error) {
	args := m.Called(ctx, prefix)
	objs, _ := args.Get(0).([]domain.ObjectInfo)
	return objs, args.Error(1)
}

func (m *MockObjectStorage) PublicURL(path string) string {
	return m.Called(path).String(0)
}
