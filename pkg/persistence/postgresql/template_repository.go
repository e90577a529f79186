package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dukex/converse/pkg/models"
	"github.com/dukex/converse/pkg/persistence"
)

// TemplateRepository stores prompt templates keyed by (type, name).
type TemplateRepository struct {
	db *sql.DB
}

func NewTemplateRepository(db *sql.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

func (r *TemplateRepository) Get(ctx context.Context, templateType, name string) (*models.PromptTemplate, error) {
	query := `SELECT template_type, name, content, updated_at FROM prompt_templates WHERE template_type = $1 AND name = $2`

	var template models.PromptTemplate

	err := r.db.QueryRowContext(ctx, query, templateType, name).Scan(
		&template.Type, &template.Name, &template.Content, &template.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("template %s/%s: %w", templateType, name, persistence.ErrTemplateNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query template %s/%s: %w", templateType, name, err)
	}

	return &template, nil
}

func (r *TemplateRepository) Save(ctx context.Context, template *models.PromptTemplate) error {
	template.UpdatedAt = time.Now().UTC()

	query := `
		INSERT INTO prompt_templates (template_type, name, content, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (template_type, name) DO UPDATE SET
			content = EXCLUDED.content,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query, template.Type, template.Name, template.Content, template.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save template %s/%s: %w", template.Type, template.Name, err)
	}

	return nil
}
