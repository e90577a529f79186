package mocks

import (
	"context"

	"github.com/dukex/converse/pkg/llm"
	"github.com/stretchr/testify/mock"
)

// MockCompleter is a mock implementation of llm.Completer interface.
type MockCompleter struct {
	mock.Mock
}

func (m *MockCompleter) Complete(ctx context.Context, messages []llm.Message) (map[string]any, error) {
	args := m.Called(ctx, messages)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(map[string]any), args.Error(1)
}
