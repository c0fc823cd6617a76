package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/xokuso/peluquerias-app-sub003/internal/cache"
	"github.com/xokuso/peluquerias-app-sub003/internal/model"
	"github.com/xokuso/peluquerias-app-sub003/internal/repository"
)

const (
	templateCacheKey = "templates:active"
	templateCacheTTL = 5 * time.Minute
)

// TemplateService serves the read-mostly template catalog.
type TemplateService interface {
	ListActive(ctx context.Context) ([]model.Template, error)
}

type templateService struct {
	templateRepo repository.TemplateRepository
	cache        *cache.Client
}

// NewTemplateService creates a new template service.
func NewTemplateService(templateRepo repository.TemplateRepository, cacheClient *cache.Client) TemplateService {
	return &templateService{templateRepo: templateRepo, cache: cacheClient}
}

func (s *templateService) ListActive(ctx context.Context) ([]model.Template, error) {
	if data, _ := s.cache.Get(ctx, templateCacheKey); data != nil {
		var templates []model.Template
		if err := json.Unmarshal(data, &templates); err == nil {
			return templates, nil
		}
		// Corrupt cache entry: fall through to the database.
		_ = s.cache.Delete(ctx, templateCacheKey)
	}

	templates, err := s.templateRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(templates); err == nil {
		_ = s.cache.Set(ctx, templateCacheKey, payload, templateCacheTTL)
	} else {
		log.Printf("templates: marshal for cache: %v", err)
	}
	return templates, nil
}
