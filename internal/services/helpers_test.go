package services_test

import (
	"context"
	"testing"

	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func createProduct(t *testing.T, store repositories.Store, id, name string, price int64, stock int) {
	t.Helper()
	require.NoError(t, store.Products().Create(context.Background(), &models.Product{
		ID:           id,
		Name:         name,
		Price:        price,
		CountInStock: stock,
	}))
}

func stockOf(t *testing.T, store repositories.Store, id string) int {
	t.Helper()
	p, err := store.Products().GetByID(context.Background(), id)
	require.NoError(t, err)
	return p.CountInStock
}

// MockPublisher is a mock implementation of services.EventPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishJSON(queue string, payload interface{}) error {
	args := m.Called(queue, payload)
	return args.Error(0)
}
