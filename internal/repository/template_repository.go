package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/xokuso/peluquerias-app-sub003/internal/model"
)

// TemplateRepository defines template catalog persistence operations.
type TemplateRepository interface {
	Create(ctx context.Context, template *model.Template) error
	FindBySlug(ctx context.Context, slug string) (*model.Template, error)
	ListActive(ctx context.Context) ([]model.Template, error)
}

type templateRepository struct {
	db *gorm.DB
}

// NewTemplateRepository creates a new template repository.
func NewTemplateRepository(db *gorm.DB) TemplateRepository {
	return &templateRepository{db: db}
}

func (r *templateRepository) Create(ctx context.Context, template *model.Template) error {
	return r.db.WithContext(ctx).Create(template).Error
}

func (r *templateRepository) FindBySlug(ctx context.Context, slug string) (*model.Template, error) {
	var template model.Template
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&template).Error; err != nil {
		return nil, err
	}
	return &template, nil
}

func (r *templateRepository) ListActive(ctx context.Context) ([]model.Template, error) {
	var templates []model.Template
	if err := r.db.WithContext(ctx).Where("active = ?", true).Find(&templates).Error; err != nil {
		return nil, err
	}
	return templates, nil
}
