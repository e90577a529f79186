package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockInvoker is a mock implementation of actions.Invoker interface.
type MockInvoker struct {
	mock.Mock
}

func (m *MockInvoker) Invoke(ctx context.Context, name string, inputs map[string]any) (bool, map[string]any, error) {
	args := m.Called(ctx, name, inputs)
	if args.Get(1) == nil {
		return args.Bool(0), nil, args.Error(2)
	}

	return args.Bool(0), args.Get(1).(map[string]any), args.Error(2)
}
