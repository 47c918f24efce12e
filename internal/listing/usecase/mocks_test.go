package usecase

import (
	"context"

	"github.com/dov85/Apartment/internal/listing/domain"
	"github.com/dov85/Apartment/internal/resolver"
	"github.com/stretchr/testify/mock"
)

type MockDocumentStore struct {
	mock.Mock
}

func (m *MockDocumentStore) Load(ctx context.Context) (domain.Collection, error) {
	args := m.Called(ctx)
	c, _ := args.Get(0).(domain.Collection)
	return c, args.Error(1)
}

func (m *MockDocumentStore) Save(ctx context.Context, c domain.Collection) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockDocumentStore) Current() domain.Collection {
	c, _ := m.Called().Get(0).(domain.Collection)
	return c.Clone()
}

type MockImageStore struct {
	mock.Mock
}

func (m *MockImageStore) Persist(ctx context.Context, p resolver.Payload) (domain.ImageRef, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(domain.ImageRef), args.Error(1)
}

func (m *MockImageStore) Delete(ctx context.Context, ref domain.ImageRef) {
	m.Called(ctx, ref)
}
