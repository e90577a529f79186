package catalog_test

import (
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/dukex/converse/pkg/catalog"
	"github.com/dukex/converse/pkg/mocks"
	"github.com/dukex/converse/pkg/models"
	"github.com/dukex/converse/pkg/persistence"
	"github.com/dukex/converse/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCatalog_WorkflowIsCachedPerRole(t *testing.T) {
	workflow := testutil.CreateTestWorkflow(testutil.WithID("wf-1"))

	repo := &mocks.MockWorkflowRepository{}
	repo.On("GetByID", mock.Anything, "wf-1", "Customer").Return(workflow, nil).Once()

	c, err := catalog.New(repo, 8, slog.Default())
	require.NoError(t, err)

	for range 3 {
		got, err := c.Workflow(t.Context(), "wf-1", "Customer")
		require.NoError(t, err)
		assert.Same(t, workflow, got)
	}

	repo.AssertExpectations(t)

	c.Purge()
	repo.On("GetByID", mock.Anything, "wf-1", "Customer").Return(workflow, nil).Once()

	_, err = c.Workflow(t.Context(), "wf-1", "Customer")
	require.NoError(t, err)
	repo.AssertNumberOfCalls(t, "GetByID", 2)
}

func TestCatalog_WorkflowForRoles(t *testing.T) {
	workflow := testutil.CreateTestWorkflow(testutil.WithID("wf-1"), testutil.WithRoles("Staff"))

	repo := &mocks.MockWorkflowRepository{}
	repo.On("GetByID", mock.Anything, "wf-1", "Customer").
		Return(nil, persistence.NewWorkflowError("GetByID", "wf-1", "Customer", persistence.ErrWorkflowNotFound))
	repo.On("GetByID", mock.Anything, "wf-1", "Staff").Return(workflow, nil)
	repo.On("GetByID", mock.Anything, "wf-2", mock.Anything).
		Return(nil, persistence.ErrWorkflowNotFound)

	c, err := catalog.New(repo, 8, slog.Default())
	require.NoError(t, err)

	got, err := c.WorkflowForRoles(t.Context(), "wf-1", []string{"Customer", "Staff"})
	require.NoError(t, err)
	assert.Equal(t, "wf-1", got.ID)

	_, err = c.WorkflowForRoles(t.Context(), "wf-2", []string{"Customer", "Staff"})
	assert.True(t, persistence.IsWorkflowNotFound(err))

	_, err = c.Workflow(t.Context(), "", "Customer")
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestCatalog_SummariesUnionInFirstSeenOrder(t *testing.T) {
	a := testutil.CreateTestWorkflow(testutil.WithID("a"))
	b := testutil.CreateTestWorkflow(testutil.WithID("b"))
	c2 := testutil.CreateTestWorkflow(testutil.WithID("c"))

	repo := &mocks.MockWorkflowRepository{}
	repo.On("ListForRole", mock.Anything, "Staff").Return([]*models.WorkflowDefinition{b, a}, nil).Once()
	repo.On("ListForRole", mock.Anything, "Customer").Return([]*models.WorkflowDefinition{a, c2}, nil).Once()

	c, err := catalog.New(repo, 8, slog.Default())
	require.NoError(t, err)

	summaries := c.Summaries(t.Context(), []string{"Staff", "Customer"})
	require.Len(t, summaries, 3)
	assert.Equal(t, "b", summaries[0].ID)
	assert.Equal(t, "a", summaries[1].ID)
	assert.Equal(t, "c", summaries[2].ID)
	assert.Equal(t, 3, summaries[0].StepCount)

	cached := c.Summaries(t.Context(), []string{"Staff", "Customer"})
	assert.Equal(t, summaries, cached)
	repo.AssertExpectations(t)
}

func TestCatalog_SummariesSkipFailingRole(t *testing.T) {
	a := testutil.CreateTestWorkflow(testutil.WithID("a"))

	repo := &mocks.MockWorkflowRepository{}
	repo.On("ListForRole", mock.Anything, "Broken").Return(nil, errors.New("boom"))
	repo.On("ListForRole", mock.Anything, "Customer").Return([]*models.WorkflowDefinition{a}, nil)

	c, err := catalog.New(repo, 8, slog.Default())
	require.NoError(t, err)

	summaries := c.Summaries(t.Context(), []string{"Broken", "Customer"})
	require.Len(t, summaries, 1)
	assert.Equal(t, "a", summaries[0].ID)

	c.Summaries(t.Context(), []string{"Broken", "Customer"})
	repo.AssertNumberOfCalls(t, "ListForRole", 4)
}

type countingPurger struct {
	calls atomic.Int32
}

func (p *countingPurger) Purge() {
	p.calls.Add(1)
}

func TestNewScheduler(t *testing.T) {
	_, err := catalog.NewScheduler("not a schedule", slog.Default())
	assert.Error(t, err)

	purger := &countingPurger{}

	scheduler, err := catalog.NewScheduler("@every 1h", slog.Default(), purger)
	require.NoError(t, err)

	scheduler.Start()
	scheduler.Stop()
	assert.Equal(t, int32(0), purger.calls.Load())
}
