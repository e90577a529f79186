package template

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukex/converse/pkg/persistence"
)

const (
	TypePrompt = "PROMPT"

	NameSkillsClassifier = "AGENT_SKILLS_CLASSIFIER_PROMPT"
)

// DefaultClassifierPrompt is used when no classifier prompt is stored.
// It receives .capabilities (skill names) and .workflows (JSON catalog).
const DefaultClassifierPrompt = `You route a user's message to exactly one skill.

Skills:
- "capability": the user asks what you can do. Your capabilities are: {{ join .capabilities ", " }}.
- "workflow": the user wants to perform one of the workflows below.
- "other": anything else.

Workflows available to this user (JSON):
{{ .workflows }}

Reply with a JSON object only: {"skill": "<capability|workflow|other>", "workflow_id": "<id of the chosen workflow or null>"}`

type storeKey struct {
	templateType string
	name         string
}

// Store resolves prompt templates from persistence, falling back to built-in
// defaults. Loaded templates are cached for the life of the store.
type Store struct {
	repository persistence.TemplateRepository
	logger     *slog.Logger

	mu       sync.RWMutex
	cache    map[storeKey]string
	defaults map[storeKey]string
}

// NewStore creates a prompt store. repository may be nil, in which case only
// defaults and overrides are served.
func NewStore(repository persistence.TemplateRepository, logger *slog.Logger) *Store {
	return &Store{
		repository: repository,
		logger:     logger.With("module", "template_store"),
		cache:      make(map[storeKey]string),
		defaults: map[storeKey]string{
			{TypePrompt, NameSkillsClassifier}: DefaultClassifierPrompt,
		},
	}
}

// SetDefault registers the fallback content for (templateType, name).
func (s *Store) SetDefault(templateType, name, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.defaults[storeKey{templateType, name}] = content
}

// Get returns the template content for (templateType, name).
func (s *Store) Get(ctx context.Context, templateType, name string) (string, error) {
	key := storeKey{templateType, name}

	s.mu.RLock()
	content, ok := s.cache[key]
	s.mu.RUnlock()

	if ok {
		return content, nil
	}

	if s.repository != nil {
		stored, err := s.repository.Get(ctx, templateType, name)

		switch {
		case err == nil:
			s.mu.Lock()
			s.cache[key] = stored.Content
			s.mu.Unlock()

			return stored.Content, nil
		case !errors.Is(err, persistence.ErrTemplateNotFound):
			return "", fmt.Errorf("failed to load template %s/%s: %w", templateType, name, err)
		}
	}

	s.mu.RLock()
	content, ok = s.defaults[key]
	s.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("template %s/%s: %w", templateType, name, persistence.ErrTemplateNotFound)
	}

	s.logger.DebugContext(ctx, "Using default template", "type", templateType, "name", name)

	return content, nil
}

// Render loads (templateType, name) and executes it against data.
func (s *Store) Render(ctx context.Context, templateType, name string, data map[string]any) (string, error) {
	content, err := s.Get(ctx, templateType, name)
	if err != nil {
		return "", err
	}

	return RenderText(content, data)
}

// Purge drops cached templates so the next Get reloads them.
func (s *Store) Purge() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache = make(map[storeKey]string)
}
