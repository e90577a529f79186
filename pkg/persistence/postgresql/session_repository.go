package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/converse/pkg/models"
	"github.com/dukex/converse/pkg/persistence"
)

// SessionRepository stores chat sessions in the chat_sessions table.
type SessionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSessionRepository(db *sql.DB, logger *slog.Logger) *SessionRepository {
	return &SessionRepository{db: db, logger: logger.With("module", "session_repository")}
}

func (r *SessionRepository) GetByContextID(ctx context.Context, contextID string) (*models.SessionSnapshot, error) {
	query := `
		SELECT context_id, conversation_name, user_id, agent_name, conversation, current_state, status, created_at, updated_at
		FROM chat_sessions WHERE context_id = $1
	`

	var (
		snapshot     models.SessionSnapshot
		conversation []byte
		currentState []byte
	)

	err := r.db.QueryRowContext(ctx, query, contextID).Scan(
		&snapshot.ContextID,
		&snapshot.ConversationName,
		&snapshot.UserID,
		&snapshot.AgentName,
		&conversation,
		&currentState,
		&snapshot.Status,
		&snapshot.CreatedAt,
		&snapshot.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewSessionError("GetByContextID", contextID, persistence.ErrSessionNotFound)
	}

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query session", "context_id", contextID, "error", err)

		return nil, persistence.NewSessionError("GetByContextID", contextID, err)
	}

	err = json.Unmarshal(conversation, &snapshot.Conversation)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal conversation: %w", err)
	}

	err = json.Unmarshal(currentState, &snapshot.CurrentState)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal current state: %w", err)
	}

	return &snapshot, nil
}

// Save upserts the snapshot. The conversation name and creation time of an
// existing row are kept.
func (r *SessionRepository) Save(ctx context.Context, snapshot *models.SessionSnapshot) error {
	now := time.Now().UTC()
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = now
	}

	snapshot.UpdatedAt = now

	conversation, err := json.Marshal(snapshot.Conversation)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}

	currentState, err := json.Marshal(snapshot.CurrentState)
	if err != nil {
		return fmt.Errorf("failed to marshal current state: %w", err)
	}

	query := `
		INSERT INTO chat_sessions (context_id, conversation_name, user_id, agent_name, conversation, current_state, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (context_id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			agent_name = EXCLUDED.agent_name,
			conversation = EXCLUDED.conversation,
			current_state = EXCLUDED.current_state,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		snapshot.ContextID,
		snapshot.ConversationName,
		snapshot.UserID,
		snapshot.AgentName,
		conversation,
		currentState,
		snapshot.Status,
		snapshot.CreatedAt,
		snapshot.UpdatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to save session", "context_id", snapshot.ContextID, "error", err)

		return persistence.NewSessionError("Save", snapshot.ContextID, err)
	}

	return nil
}
