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

// TemplateRepository stores prompt templates under <root>/templates/<type>/<name>.json.
type TemplateRepository struct {
	root string
}

func NewTemplateRepository(root string) *TemplateRepository {
	return &TemplateRepository{root: root}
}

func (tr *TemplateRepository) Get(_ context.Context, templateType, name string) (*models.PromptTemplate, error) {
	if validID(templateType) != nil || validID(name) != nil {
		return nil, fmt.Errorf("template %s/%s: %w", templateType, name, persistence.ErrInvalidID)
	}

	body, err := os.ReadFile(filepath.Join(tr.root, "templates", templateType, name+".json"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("template %s/%s: %w", templateType, name, persistence.ErrTemplateNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read template %s/%s: %w", templateType, name, err)
	}

	var template models.PromptTemplate

	err = json.Unmarshal(body, &template)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal template %s/%s: %w", templateType, name, err)
	}

	return &template, nil
}

func (tr *TemplateRepository) Save(_ context.Context, template *models.PromptTemplate) error {
	if validID(template.Type) != nil || validID(template.Name) != nil {
		return fmt.Errorf("template %s/%s: %w", template.Type, template.Name, persistence.ErrInvalidID)
	}

	template.UpdatedAt = time.Now().UTC()

	return writeJSON(filepath.Join(tr.root, "templates", template.Type), template.Name, template)
}
