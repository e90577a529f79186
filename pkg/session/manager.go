// Package session holds the in-process state of one conversation for the
// duration of a turn and converts it to and from stored snapshots.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/dukex/converse/pkg/models"
)

// Whitelisted current-state keys.
const (
	StateMessages      = "messages"
	StateSelectedSkill = "selected_skill"
	StateWorkflowID    = "workflow_id"
	StateRun           = "run"
)

var (
	ErrNoRoles           = errors.New("session requires at least one role")
	ErrMissingContextID  = errors.New("session requires a context id")
	ErrUnknownStateKey   = errors.New("unknown session state key")
	ErrInvalidStateValue = errors.New("invalid session state value")
	ErrAlreadyRehydrated = errors.New("session already rehydrated")
	ErrContextMismatch   = errors.New("snapshot belongs to another context")
)

// Manager aggregates a session and its optional workflow run. It is not safe
// for concurrent use; one turn owns it.
type Manager struct {
	session          models.Session
	agentName        string
	conversationName string
	turnStart        int
	messageStart     int
	rehydrated       bool
}

func New(contextID, userID string, roles []string, agentName string) (*Manager, error) {
	if contextID == "" {
		return nil, ErrMissingContextID
	}

	if len(roles) == 0 {
		return nil, ErrNoRoles
	}

	now := time.Now().UTC()

	return &Manager{
		session: models.Session{
			ContextID: contextID,
			UserID:    userID,
			Roles:     slices.Clone(roles),
			Status:    models.SessionStatusInProgress,
			IsNew:     true,
			StartedAt: now,
		},
		agentName:        agentName,
		conversationName: models.ConversationName(now),
	}, nil
}

func (m *Manager) ContextID() string {
	return m.session.ContextID
}

func (m *Manager) UserID() string {
	return m.session.UserID
}

func (m *Manager) Roles() []string {
	return slices.Clone(m.session.Roles)
}

// IsNew reports whether no prior state existed for the context id.
func (m *Manager) IsNew() bool {
	return m.session.IsNew
}

func (m *Manager) State() models.SessionState {
	return m.session.State
}

func (m *Manager) Conversation() []models.ConversationEntry {
	return slices.Clone(m.session.Conversation)
}

func (m *Manager) Run() *models.WorkflowRun {
	return m.session.State.Run
}

func (m *Manager) SetRoute(decision models.RouteDecision) {
	m.session.State.SelectedSkill = decision.Route
	m.session.State.WorkflowID = decision.WorkflowID
}

func (m *Manager) SetRun(run *models.WorkflowRun) {
	m.session.State.Run = run
	if run != nil {
		m.session.State.WorkflowID = run.WorkflowID
	}
}

func (m *Manager) SetStatus(status string) {
	m.session.Status = status

	if status != models.SessionStatusInProgress && m.session.EndedAt == nil {
		now := time.Now().UTC()
		m.session.EndedAt = &now
	}
}

func (m *Manager) AppendUserTurn(content any) {
	m.append(models.ConversationRoleUser, content)
}

func (m *Manager) AppendAgentTurn(content any) {
	m.append(models.ConversationRoleAgent, content)
}

func (m *Manager) append(role string, content any) {
	entry := models.ConversationEntry{Role: role, Content: content}
	m.session.Conversation = append(m.session.Conversation, entry)
	m.session.State.Messages = append(m.session.State.Messages, entry)
}

// Snapshot returns the record handed to the session store.
func (m *Manager) Snapshot() *models.SessionSnapshot {
	state := map[string]any{
		StateMessages: slices.Clone(m.session.State.Messages),
	}

	if m.session.State.SelectedSkill != "" {
		state[StateSelectedSkill] = string(m.session.State.SelectedSkill)
	}

	if m.session.State.WorkflowID != "" {
		state[StateWorkflowID] = m.session.State.WorkflowID
	}

	if m.session.State.Run != nil {
		state[StateRun] = m.session.State.Run
	}

	return &models.SessionSnapshot{
		ContextID:        m.session.ContextID,
		ConversationName: m.conversationName,
		UserID:           m.session.UserID,
		AgentName:        m.agentName,
		Conversation:     slices.Clone(m.session.Conversation),
		CurrentState:     state,
		Status:           m.session.Status,
		CreatedAt:        m.session.StartedAt,
		UpdatedAt:        time.Now().UTC(),
	}
}

// Rehydrate merges a stored snapshot into the manager. Stored conversation
// entries come first, followed by anything appended before the call. A nil
// snapshot, or one without current state, leaves the session new.
func (m *Manager) Rehydrate(snapshot *models.SessionSnapshot) error {
	if m.rehydrated {
		return ErrAlreadyRehydrated
	}

	m.rehydrated = true

	if snapshot == nil {
		return nil
	}

	if snapshot.ContextID != m.session.ContextID {
		return fmt.Errorf("%w: %s", ErrContextMismatch, snapshot.ContextID)
	}

	appendedConversation := m.session.Conversation
	appendedMessages := m.session.State.Messages

	m.session.State.Messages = nil

	err := m.Merge(snapshot.CurrentState)
	if err != nil {
		m.session.State.Messages = appendedMessages

		return err
	}

	m.session.State.Messages = append(m.session.State.Messages, appendedMessages...)
	m.session.Conversation = append(slices.Clone(snapshot.Conversation), appendedConversation...)

	if len(snapshot.CurrentState) > 0 {
		m.session.IsNew = false
	}

	if snapshot.ConversationName != "" {
		m.conversationName = snapshot.ConversationName
	}

	if !snapshot.CreatedAt.IsZero() {
		m.session.StartedAt = snapshot.CreatedAt
	}

	if snapshot.Status != "" {
		m.session.Status = snapshot.Status
	}

	return nil
}

// Merge applies a current-state map field by field. Only whitelisted keys are
// accepted; the first unknown key or malformed value fails the whole merge
// and leaves the state unchanged.
func (m *Manager) Merge(state map[string]any) error {
	merged := m.session.State

	keys := make([]string, 0, len(state))
	for key := range state {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	for _, key := range keys {
		value := state[key]

		switch key {
		case StateMessages:
			var messages []models.ConversationEntry

			err := decodeInto(value, &messages)
			if err != nil {
				return fmt.Errorf("%w: %s: %w", ErrInvalidStateValue, key, err)
			}

			merged.Messages = append(merged.Messages, messages...)
		case StateSelectedSkill:
			var skill string

			err := decodeInto(value, &skill)
			if err != nil {
				return fmt.Errorf("%w: %s: %w", ErrInvalidStateValue, key, err)
			}

			merged.SelectedSkill = models.Route(skill)
		case StateWorkflowID:
			var workflowID string

			err := decodeInto(value, &workflowID)
			if err != nil {
				return fmt.Errorf("%w: %s: %w", ErrInvalidStateValue, key, err)
			}

			merged.WorkflowID = workflowID
		case StateRun:
			var run *models.WorkflowRun

			err := decodeInto(value, &run)
			if err != nil {
				return fmt.Errorf("%w: %s: %w", ErrInvalidStateValue, key, err)
			}

			merged.Run = run
		default:
			return fmt.Errorf("%w: %s", ErrUnknownStateKey, key)
		}
	}

	m.session.State = merged

	return nil
}

func decodeInto(value any, target any) error {
	if value == nil {
		return nil
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return json.Unmarshal(raw, target)
}
