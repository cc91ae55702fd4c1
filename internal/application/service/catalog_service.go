package service

import (
	"context"

	gocache "github.com/patrickmn/go-cache"

	"github.com/nimbusworks/nimbus/pkg/constants"
	apperrors "github.com/nimbusworks/nimbus/pkg/errors"
	"github.com/nimbusworks/nimbus/pkg/logger"

	"github.com/nimbusworks/nimbus/internal/application/dto"
	"github.com/nimbusworks/nimbus/internal/domain/models"
	"github.com/nimbusworks/nimbus/internal/domain/repository"
)

const enabledModelsCacheKey = "models:enabled"

// toolCatalog is the fixed set of capabilities exposed to clients. Adding a
// tool means adding it here and teaching the agent request builder about it.
var toolCatalog = []models.Tool{
	{
		Name:        "web_search",
		DisplayName: "Web Search",
		Description: "Search the web and read results to ground answers in current information.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string"},
			},
			"required": []string{"query"},
		},
	},
	{
		Name:        "document_retrieval",
		DisplayName: "Document Retrieval",
		Description: "Retrieve passages from the assistant's attached document store.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string"},
				"top_k": map[string]any{"type": "integer", "minimum": 1, "maximum": 20},
			},
			"required": []string{"query"},
		},
	},
}

// CatalogService serves the model catalog and the static tool list. The
// enabled-model list sits on every chat request's hot path, so it is cached
// briefly; admin writes invalidate the cache.
type CatalogService struct {
	repo  repository.ModelRepository
	cache *gocache.Cache
	log   logger.Logger
}

func NewCatalogService(repo repository.ModelRepository, log logger.Logger) *CatalogService {
	return &CatalogService{
		repo:  repo,
		cache: gocache.New(constants.DefaultModelCacheTTL, 2*constants.DefaultModelCacheTTL),
		log:   log.WithComponent("catalog"),
	}
}

// EnabledModels lists models selectable by end users.
func (s *CatalogService) EnabledModels(ctx context.Context) ([]*models.ManagedModel, error) {
	if cached, ok := s.cache.Get(enabledModelsCacheKey); ok {
		return cached.([]*models.ManagedModel), nil
	}
	list, err := s.repo.List(ctx, true)
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(enabledModelsCacheKey, list)
	return list, nil
}

// ResolveEnabledModel returns the model when it exists and is enabled;
// selecting a disabled model is an invalid request, not a 404, so clients
// can distinguish "never existed" from "turned off".
func (s *CatalogService) ResolveEnabledModel(ctx context.Context, id string) (*models.ManagedModel, error) {
	model, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !model.Enabled {
		return nil, apperrors.ErrInvalidRequest("model is disabled: " + id)
	}
	return model, nil
}

// AllModels lists the full catalog for the admin surface.
func (s *CatalogService) AllModels(ctx context.Context) ([]*models.ManagedModel, error) {
	return s.repo.List(ctx, false)
}

func (s *CatalogService) CreateModel(ctx context.Context, req *dto.ManagedModelRequest) (*models.ManagedModel, error) {
	model := modelFromRequest(req)
	if err := s.repo.Create(ctx, model); err != nil {
		return nil, err
	}
	s.invalidate()
	return model, nil
}

func (s *CatalogService) UpdateModel(ctx context.Context, id string, req *dto.ManagedModelRequest) (*models.ManagedModel, error) {
	model := modelFromRequest(req)
	model.ID = id
	if err := s.repo.Update(ctx, model); err != nil {
		return nil, err
	}
	s.invalidate()
	return s.repo.Get(ctx, id)
}

func (s *CatalogService) DeleteModel(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate()
	return nil
}

// Tools returns the static tool catalog.
func (s *CatalogService) Tools() []models.Tool {
	return toolCatalog
}

func (s *CatalogService) invalidate() {
	s.cache.Delete(enabledModelsCacheKey)
}

func modelFromRequest(req *dto.ManagedModelRequest) *models.ManagedModel {
	return &models.ManagedModel{
		ID:             req.ID,
		Provider:       req.Provider,
		DisplayName:    req.DisplayName,
		InputPer1KUSD:  req.InputPer1KUSD,
		OutputPer1KUSD: req.OutputPer1KUSD,
		ContextWindow:  req.ContextWindow,
		Enabled:        req.Enabled,
	}
}
