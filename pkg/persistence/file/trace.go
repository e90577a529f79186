package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/dukex/converse/pkg/models"
)

// TraceRepository stores traces under <root>/traces/<context id>/<trace id>.json.
type TraceRepository struct {
	root string
}

func NewTraceRepository(root string) *TraceRepository {
	return &TraceRepository{root: root}
}

func (tr *TraceRepository) Save(_ context.Context, trace *models.InteractionTrace) error {
	err := validID(trace.ContextID)
	if err != nil {
		return err
	}

	err = validID(trace.ID)
	if err != nil {
		return err
	}

	return writeJSON(filepath.Join(tr.root, "traces", trace.ContextID), trace.ID, trace)
}

// ListByContextID returns traces for a conversation in the order they started.
func (tr *TraceRepository) ListByContextID(_ context.Context, contextID string) ([]*models.InteractionTrace, error) {
	err := validID(contextID)
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(tr.root, "traces", contextID)

	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []*models.InteractionTrace{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to list traces: %w", err)
	}

	traces := make([]*models.InteractionTrace, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		body, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read trace %s: %w", entry.Name(), err)
		}

		var trace models.InteractionTrace

		err = json.Unmarshal(body, &trace)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal trace %s: %w", entry.Name(), err)
		}

		traces = append(traces, &trace)
	}

	sort.SliceStable(traces, func(i, j int) bool {
		if !traces[i].StartedAt.Equal(traces[j].StartedAt) {
			return traces[i].StartedAt.Before(traces[j].StartedAt)
		}

		return traces[i].ID < traces[j].ID
	})

	return traces, nil
}
