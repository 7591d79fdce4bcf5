package mocks

import (
	"context"

	"github.com/dukex/docflow/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockPersistence is a mock implementation of persistence.Client interface.
type MockPersistence struct {
	mock.Mock
}

func (m *MockPersistence) Load(ctx context.Context, id string) (*models.PersistedWorkflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.PersistedWorkflow), args.Error(1)
}

func (m *MockPersistence) Save(ctx context.Context, id string, workflow *models.PersistedWorkflow) (string, error) {
	args := m.Called(ctx, id, workflow)

	return args.String(0), args.Error(1)
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
