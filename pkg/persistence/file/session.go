package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/dukex/converse/pkg/models"
	"github.com/dukex/converse/pkg/persistence"
)

// SessionRepository stores one JSON document per context id under <root>/sessions.
type SessionRepository struct {
	root string
}

func NewSessionRepository(root string) *SessionRepository {
	return &SessionRepository{root: root}
}

func (sr *SessionRepository) dir() string {
	return filepath.Join(sr.root, "sessions")
}

func (sr *SessionRepository) GetByContextID(_ context.Context, contextID string) (*models.SessionSnapshot, error) {
	err := validID(contextID)
	if err != nil {
		return nil, persistence.NewSessionError("GetByContextID", contextID, err)
	}

	body, err := os.ReadFile(filepath.Join(sr.dir(), contextID+".json"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, persistence.NewSessionError("GetByContextID", contextID, persistence.ErrSessionNotFound)
	}

	if err != nil {
		return nil, persistence.NewSessionError("GetByContextID", contextID, err)
	}

	var snapshot models.SessionSnapshot

	err = json.Unmarshal(body, &snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", contextID, err)
	}

	return &snapshot, nil
}

// Save writes the snapshot. An existing conversation name and creation time are kept.
func (sr *SessionRepository) Save(ctx context.Context, snapshot *models.SessionSnapshot) error {
	err := validID(snapshot.ContextID)
	if err != nil {
		return persistence.NewSessionError("Save", snapshot.ContextID, err)
	}

	existing, err := sr.GetByContextID(ctx, snapshot.ContextID)

	switch {
	case err == nil:
		snapshot.ConversationName = existing.ConversationName
		snapshot.CreatedAt = existing.CreatedAt
	case !persistence.IsSessionNotFound(err):
		return err
	}

	now := time.Now().UTC()
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = now
	}

	snapshot.UpdatedAt = now

	return writeJSON(sr.dir(), snapshot.ContextID, snapshot)
}
