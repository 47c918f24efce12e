package bridge

import (
	"context"

	"github.com/dov85/Apartment/internal/listing/domain"
	"github.com/stretchr/testify/mock"
)

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

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishDocumentUpdated(ctx context.Context, listings int) error {
	return m.Called(ctx, listings).Error(0)
}

func (m *MockPublisher) PublishImageDeleted(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}
