package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dukex/converse/pkg/models"
)

// TraceRepository stores interaction traces in agent_interaction_traces.
type TraceRepository struct {
	db *sql.DB
}

func NewTraceRepository(db *sql.DB) *TraceRepository {
	return &TraceRepository{db: db}
}

func (r *TraceRepository) Save(ctx context.Context, trace *models.InteractionTrace) error {
	input, err := json.Marshal(trace.Input)
	if err != nil {
		return fmt.Errorf("failed to marshal trace input: %w", err)
	}

	output, err := json.Marshal(trace.Output)
	if err != nil {
		return fmt.Errorf("failed to marshal trace output: %w", err)
	}

	query := `
		INSERT INTO agent_interaction_traces
			(id, context_id, task_id, workflow_id, step_id, action_name, input, output, status, error, started_at, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = r.db.ExecContext(ctx, query,
		trace.ID,
		trace.ContextID,
		trace.TaskID,
		trace.WorkflowID,
		trace.StepID,
		trace.ActionName,
		input,
		output,
		string(trace.Status),
		trace.Error,
		trace.StartedAt,
		trace.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("failed to save trace %s: %w", trace.ID, err)
	}

	return nil
}

// ListByContextID returns traces for a conversation in the order they started.
func (r *TraceRepository) ListByContextID(ctx context.Context, contextID string) ([]*models.InteractionTrace, error) {
	query := `
		SELECT id, context_id, task_id, workflow_id, step_id, action_name, input, output, status, error, started_at, duration_ms
		FROM agent_interaction_traces WHERE context_id = $1 ORDER BY started_at, id
	`

	rows, err := r.db.QueryContext(ctx, query, contextID)
	if err != nil {
		return nil, fmt.Errorf("failed to query traces: %w", err)
	}

	defer func() { _ = rows.Close() }()

	traces := make([]*models.InteractionTrace, 0)

	for rows.Next() {
		var (
			trace         models.InteractionTrace
			input, output []byte
			status        string
		)

		err := rows.Scan(
			&trace.ID, &trace.ContextID, &trace.TaskID, &trace.WorkflowID, &trace.StepID, &trace.ActionName,
			&input, &output, &status, &trace.Error, &trace.StartedAt, &trace.DurationMS,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trace: %w", err)
		}

		trace.Status = models.TraceStatus(status)

		if len(input) > 0 {
			err = json.Unmarshal(input, &trace.Input)
			if err != nil {
				return nil, fmt.Errorf("failed to unmarshal trace input: %w", err)
			}
		}

		if len(output) > 0 {
			err = json.Unmarshal(output, &trace.Output)
			if err != nil {
				return nil, fmt.Errorf("failed to unmarshal trace output: %w", err)
			}
		}

		traces = append(traces, &trace)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating traces: %w", err)
	}

	return traces, nil
}
