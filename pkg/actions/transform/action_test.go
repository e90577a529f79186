package transform

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransformActionFactory(t *testing.T) {
	factory := NewTransformActionFactory()
	assert.Equal(t, "transform", factory.ID())
	assert.Equal(t, []string{"expression"}, factory.Schema()["required"])
}

func TestTransformActionFactory_Create(t *testing.T) {
	factory := NewTransformActionFactory()

	_, err := factory.Create(map[string]any{})
	require.ErrorIs(t, err, ErrMissingExpression)

	action, err := factory.Create(map[string]any{"expression": "{{ .a }}"})
	require.NoError(t, err)
	assert.IsType(t, &TransformAction{}, action)
}

func TestTransformAction_Execute(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name       string
		expression string
		inputs     map[string]any
		expected   map[string]any
		wantErr    bool
	}{
		{
			name:       "object output",
			expression: `{"full_name": "{{ .first }} {{ .last }}"}`,
			inputs:     map[string]any{"first": "Ada", "last": "Lovelace"},
			expected:   map[string]any{"full_name": "Ada Lovelace"},
		},
		{
			name:       "scalar output is wrapped",
			expression: "{{ .count }}",
			inputs:     map[string]any{"count": 3},
			expected:   map[string]any{"result": float64(3)},
		},
		{
			name:       "string output",
			expression: "hello {{ .name }}",
			inputs:     map[string]any{"name": "bob"},
			expected:   map[string]any{"result": "hello bob"},
		},
		{
			name:       "invalid template",
			expression: "{{ .x",
			inputs:     map[string]any{},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, err := NewTransformAction(map[string]any{"expression": tt.expression})
			require.NoError(t, err)

			result, err := action.Execute(context.Background(), tt.inputs, logger)
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}
