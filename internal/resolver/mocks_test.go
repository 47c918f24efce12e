package resolver

import (
	"context"

	"github.com/dov85/Apartment/internal/listing/domain"
	"github.com/stretchr/testify/mock"
)

type MockProxy struct {
	mock.Mock
}

func (m *MockProxy) PersistImage(ctx context.Context, mimeType string, data []byte) (domain.ImageRef, error) {
	args := m.Called(ctx, mimeType, data)
	return args.Get(0).(domain.ImageRef), args.Error(1)
}

func (m *MockProxy) DeleteImage(ctx context.Context, ref domain.ImageRef) error {
	return m.Called(ctx, ref).Error(0)
}

func (m *MockProxy) ImageURL(key string) string {
	return "https://flats.example.com/api/images/" + key
}

func (m *MockProxy) FileURL(name string) string {
	return "https://flats.example.com/files/" + name
}

type MockObjectStorage struct {
	mock.Mock
}

func (m *MockObjectStorage) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	return m.Called(ctx, path, data, contentType).Error(0)
}

func (m *MockObjectStorage) Get(ctx context.Context, path string) ([]byte, string, error) {
	args := m.Called(ctx, path)
	b, _ := args.Get(0).([]byte)
	return b, args.String(1), args.Error(2)
}

func (m *MockObjectStorage) Delete(ctx context.Context, paths ...string) error {
	return m.Called(ctx, paths).Error(0)
}

func (m *MockObjectStorage) List(ctx context.Context, prefix string) ([]domain.ObjectInfo, error) {
	args := m.Called(ctx, prefix)
	objs, _ := args.Get(0).([]domain.ObjectInfo)
	return objs, args.Error(1)
}

func (m *MockObjectStorage) PublicURL(path string) string {
	return "https://s3.example.com/flats/" + path
}

type staticAvailability bool

func (s staticAvailability) Available(context.Context) bool { return bool(s) }
