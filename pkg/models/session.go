package models

import (
	"time"
)

const (
	ConversationRoleUser  = "user"
	ConversationRoleAgent = "agent"

	// SessionStatusInProgress is the status every session starts with.
	SessionStatusInProgress = "in_progress"
	SessionStatusCompleted  = "completed"
	SessionStatusFailed     = "failed"
)

// ConversationEntry is one turn of the conversation log.
type ConversationEntry struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// Session is one conversation thread keyed by its context id.
type Session struct {
	ContextID    string              `json:"context_id"`
	UserID       string              `json:"user_id"`
	Roles        []string            `json:"roles"`
	Conversation []ConversationEntry `json:"conversation"`
	State        SessionState        `json:"current_state"`
	Status       string              `json:"status"`
	IsNew        bool                `json:"-"`
	StartedAt    time.Time           `json:"started_at"`
	EndedAt      *time.Time          `json:"ended_at,omitempty"`
}

// SessionState is the typed view of the persisted current-state map.
type SessionState struct {
	Messages      []ConversationEntry `json:"messages"`
	SelectedSkill Route               `json:"selected_skill,omitempty"`
	WorkflowID    string              `json:"workflow_id,omitempty"`
	Run           *WorkflowRun        `json:"run,omitempty"`
}

// SessionSnapshot is the record handed to and loaded from the session store.
type SessionSnapshot struct {
	ContextID        string              `json:"context_id"`
	ConversationName string              `json:"conversation_name"`
	UserID           string              `json:"user_id"`
	AgentName        string              `json:"agent_name"`
	Conversation     []ConversationEntry `json:"conversation"`
	CurrentState     map[string]any      `json:"current_state"`
	Status           string              `json:"status"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// ConversationName formats the display name given to new conversations.
func ConversationName(at time.Time) string {
	return "Chat " + at.Format("2006-01-02 15:04")
}
