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
	"time"

	"github.com/dukex/converse/pkg/models"
	"github.com/dukex/converse/pkg/persistence"
	"gopkg.in/yaml.v3"
)

// WorkflowRepository reads workflow definitions from <root>/workflows. Files
// may be JSON (.json) or YAML (.yaml, .yml); Save always writes JSON.
type WorkflowRepository struct {
	root string
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(root string) *WorkflowRepository {
	return &WorkflowRepository{root: root}
}

func (wr *WorkflowRepository) dir() string {
	return filepath.Join(wr.root, "workflows")
}

// GetByID returns the workflow when it is enabled and visible to role.
func (wr *WorkflowRepository) GetByID(_ context.Context, workflowID, role string) (*models.WorkflowDefinition, error) {
	err := validID(workflowID)
	if err != nil {
		return nil, persistence.NewWorkflowError("GetByID", workflowID, role, err)
	}

	for _, ext := range []string{".json", ".yaml", ".yml"} {
		workflow, err := readWorkflow(filepath.Join(wr.dir(), workflowID+ext))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}

		if err != nil {
			return nil, persistence.NewWorkflowError("GetByID", workflowID, role, err)
		}

		if !workflow.Enabled || !workflow.AllowsRole(role) {
			break
		}

		return workflow, nil
	}

	return nil, persistence.NewWorkflowError("GetByID", workflowID, role, persistence.ErrWorkflowNotFound)
}

// ListForRole returns the enabled workflows visible to role ordered by name.
func (wr *WorkflowRepository) ListForRole(ctx context.Context, role string) ([]*models.WorkflowDefinition, error) {
	all, err := wr.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	visible := make([]*models.WorkflowDefinition, 0, len(all))

	for _, workflow := range all {
		if workflow.Enabled && workflow.AllowsRole(role) {
			visible = append(visible, workflow)
		}
	}

	return visible, nil
}

// GetAll returns every workflow on disk ordered by name then id.
func (wr *WorkflowRepository) GetAll(_ context.Context) ([]*models.WorkflowDefinition, error) {
	entries, err := os.ReadDir(wr.dir())
	if errors.Is(err, fs.ErrNotExist) {
		return []*models.WorkflowDefinition{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to list workflow files: %w", err)
	}

	workflows := make([]*models.WorkflowDefinition, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		switch filepath.Ext(entry.Name()) {
		case ".json", ".yaml", ".yml":
		default:
			continue
		}

		workflow, err := readWorkflow(filepath.Join(wr.dir(), entry.Name()))
		if err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	sort.SliceStable(workflows, func(i, j int) bool {
		if workflows[i].Name != workflows[j].Name {
			return workflows[i].Name < workflows[j].Name
		}

		return workflows[i].ID < workflows[j].ID
	})

	return workflows, nil
}

// Save writes the workflow as JSON.
func (wr *WorkflowRepository) Save(_ context.Context, workflow *models.WorkflowDefinition) error {
	err := validID(workflow.ID)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, "", err)
	}

	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	return writeJSON(wr.dir(), workflow.ID, workflow)
}

func readWorkflow(path string) (*models.WorkflowDefinition, error) {
	body, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file %s: %w", path, err)
	}

	var workflow models.WorkflowDefinition

	if filepath.Ext(path) == ".json" {
		err = json.Unmarshal(body, &workflow)
	} else {
		err = yaml.Unmarshal(body, &workflow)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow file %s: %w", path, err)
	}

	return &workflow, nil
}
