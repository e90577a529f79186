package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dukex/converse/pkg/models"
	"github.com/dukex/converse/pkg/persistence"
	"github.com/dukex/converse/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPersistence(t *testing.T) {
	p := NewPersistence("/tmp/test")
	assert.Equal(t, "/tmp/test", p.root)

	p = NewPersistence("file:///tmp/test")
	assert.Equal(t, "/tmp/test", p.root)
}

func TestPersistence_HealthCheck(t *testing.T) {
	assert.NoError(t, NewPersistence(t.TempDir()).HealthCheck(t.Context()))
	assert.Error(t, NewPersistence(filepath.Join(t.TempDir(), "missing")).HealthCheck(t.Context()))
	assert.NoError(t, NewPersistence("./test-data").Close(t.Context()))
}

func TestWorkflowRepository_SaveAndLookup(t *testing.T) {
	testDir := t.TempDir()
	repo := NewPersistence(testDir).WorkflowRepository()

	workflow := testutil.CreateTestWorkflow(testutil.WithID("wf-save"))
	require.NoError(t, repo.Save(t.Context(), workflow))

	assert.FileExists(t, filepath.Join(testDir, "workflows", "wf-save.json"))
	assert.False(t, workflow.CreatedAt.IsZero())
	assert.False(t, workflow.UpdatedAt.IsZero())

	got, err := repo.GetByID(t.Context(), "wf-save", "Customer")
	require.NoError(t, err)
	assert.Equal(t, workflow.Name, got.Name)
	assert.Equal(t, "answer", got.Steps[1].Next())

	_, err = repo.GetByID(t.Context(), "wf-save", "Staff")
	assert.True(t, persistence.IsWorkflowNotFound(err))

	_, err = repo.GetByID(t.Context(), "wf-missing", "Customer")
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestWorkflowRepository_SaveKeepsCreatedAt(t *testing.T) {
	repo := NewWorkflowRepository(t.TempDir())

	created := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	workflow := testutil.CreateTestWorkflow(func(w *models.WorkflowDefinition) { w.CreatedAt = created })

	require.NoError(t, repo.Save(t.Context(), workflow))
	assert.Equal(t, created, workflow.CreatedAt)
	assert.True(t, workflow.UpdatedAt.After(created))
}

func TestWorkflowRepository_LoadsYAML(t *testing.T) {
	testDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(testDir, "workflows"), 0750))

	definition := `
workflow_id: order_status
name: Order status
description: Looks up an order and confirms it
access_roles: [Customer]
is_enabled: true
workflow_exit_keywords: [cancel]
steps:
  - step_id: get_order
    type: SYSTEM_ACTION
    next_step_id: confirm
    system_action_details:
      name: get_order
      inputs:
        order_id: $.order_id
      on_error: continue
  - step_id: confirm
    type: USER_INPUT
    next_step_id: done
    user_interaction:
      user_message: Is this your order?
      expected_data_key: confirmed
      validation_regex: ^(yes|no)$
  - step_id: done
    type: FINAL_RESPONSE
    user_interaction:
      user_message: Thanks!
`
	require.NoError(t, os.WriteFile(filepath.Join(testDir, "workflows", "order_status.yaml"), []byte(definition), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(testDir, "workflows", "README.md"), []byte("ignored"), 0600))

	repo := NewWorkflowRepository(testDir)

	workflow, err := repo.GetByID(t.Context(), "order_status", "Customer")
	require.NoError(t, err)
	assert.Equal(t, "get_order", workflow.StartStep())
	require.Len(t, workflow.Steps, 3)
	assert.True(t, workflow.Steps[0].SystemAction.ContinuesOnError())
	assert.Equal(t, "$.order_id", workflow.Steps[0].SystemAction.Inputs["order_id"])
	assert.Equal(t, "confirmed", workflow.Steps[1].OutputKey())
	assert.Empty(t, workflow.Steps[2].Next())

	all, err := repo.GetAll(t.Context())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestWorkflowRepository_ListForRole(t *testing.T) {
	repo := NewWorkflowRepository(t.TempDir())

	for _, workflow := range []*models.WorkflowDefinition{
		testutil.CreateTestWorkflow(testutil.WithID("b"), testutil.WithName("Beta")),
		testutil.CreateTestWorkflow(testutil.WithID("a"), testutil.WithName("Alpha")),
		testutil.CreateTestWorkflow(testutil.WithID("c"), testutil.WithName("Off"), testutil.WithEnabled(false)),
		testutil.CreateTestWorkflow(testutil.WithID("d"), testutil.WithName("Staff"), testutil.WithRoles("Staff")),
	} {
		require.NoError(t, repo.Save(t.Context(), workflow))
	}

	visible, err := repo.ListForRole(t.Context(), "Customer")
	require.NoError(t, err)
	require.Len(t, visible, 2)
	assert.Equal(t, "a", visible[0].ID)
	assert.Equal(t, "b", visible[1].ID)

	empty, err := NewWorkflowRepository(t.TempDir()).GetAll(t.Context())
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRepositories_RejectPathTraversal(t *testing.T) {
	p := NewPersistence(t.TempDir())

	_, err := p.WorkflowRepository().GetByID(t.Context(), "../etc/passwd", "Customer")
	assert.ErrorIs(t, err, persistence.ErrInvalidID)

	_, err = p.SessionRepository().GetByContextID(t.Context(), "a/b")
	assert.ErrorIs(t, err, persistence.ErrInvalidID)

	err = p.TraceRepository().Save(t.Context(), &models.InteractionTrace{ID: "t1", ContextID: ".."})
	assert.ErrorIs(t, err, persistence.ErrInvalidID)
}

func TestSessionRepository_SaveAndLoad(t *testing.T) {
	repo := NewSessionRepository(t.TempDir())

	_, err := repo.GetByContextID(t.Context(), "ctx-1")
	assert.True(t, persistence.IsSessionNotFound(err))

	snapshot := testutil.CreateTestSnapshot("ctx-1")
	originalName := snapshot.ConversationName
	require.NoError(t, repo.Save(t.Context(), snapshot))

	snapshot.ConversationName = "renamed"
	snapshot.Conversation = append(snapshot.Conversation, models.ConversationEntry{Role: models.ConversationRoleAgent, Content: "hi"})
	require.NoError(t, repo.Save(t.Context(), snapshot))

	loaded, err := repo.GetByContextID(t.Context(), "ctx-1")
	require.NoError(t, err)
	assert.Equal(t, originalName, loaded.ConversationName)
	assert.Len(t, loaded.Conversation, 2)
	assert.Equal(t, "workflow", loaded.CurrentState["selected_skill"])
}

func TestTemplateRepository(t *testing.T) {
	repo := NewTemplateRepository(t.TempDir())

	_, err := repo.Get(t.Context(), "PROMPT", "GREETING")
	assert.True(t, persistence.IsTemplateNotFound(err))

	require.NoError(t, repo.Save(t.Context(), &models.PromptTemplate{Type: "PROMPT", Name: "GREETING", Content: "hello"}))

	got, err := repo.Get(t.Context(), "PROMPT", "GREETING")
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Content)
}

func TestTraceRepository_ListOrdersByStart(t *testing.T) {
	repo := NewTraceRepository(t.TempDir())
	start := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Save(t.Context(), &models.InteractionTrace{ID: "z", ContextID: "ctx-1", StartedAt: start}))
	require.NoError(t, repo.Save(t.Context(), &models.InteractionTrace{ID: "a", ContextID: "ctx-1", StartedAt: start.Add(time.Second)}))

	traces, err := repo.ListByContextID(t.Context(), "ctx-1")
	require.NoError(t, err)
	require.Len(t, traces, 2)
	assert.Equal(t, "z", traces[0].ID)
	assert.Equal(t, "a", traces[1].ID)

	none, err := repo.ListByContextID(t.Context(), "ctx-2")
	require.NoError(t, err)
	assert.Empty(t, none)
}
