package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockResolver is a mock implementation of identity.Resolver interface.
type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ctx context.Context, token string) (string, []string, error) {
	args := m.Called(ctx, token)
	if args.Get(1) == nil {
		return args.String(0), nil, args.Error(2)
	}

	return args.String(0), args.Get(1).([]string), args.Error(2)
}
