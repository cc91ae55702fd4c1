package service

import (
	"context"

	"github.com/google/uuid"

	apperrors "github.com/nimbusworks/nimbus/pkg/errors"

	"github.com/nimbusworks/nimbus/internal/application/dto"
	"github.com/nimbusworks/nimbus/internal/domain/models"
	"github.com/nimbusworks/nimbus/internal/domain/repository"
)

// AssistantService manages user-defined assistants. Reads allow shared
// assistants; writes require ownership.
type AssistantService struct {
	assistants repository.AssistantRepository
	modelsRepo repository.ModelRepository
}

func NewAssistantService(assistants repository.AssistantRepository, modelsRepo repository.ModelRepository) *AssistantService {
	return &AssistantService{assistants: assistants, modelsRepo: modelsRepo}
}

func (s *AssistantService) Create(ctx context.Context, userID string, req *dto.AssistantRequest) (*models.Assistant, error) {
	if _, err := s.modelsRepo.Get(ctx, req.ModelID); err != nil {
		return nil, err
	}
	assistant := &models.Assistant{
		ID:            uuid.NewString(),
		OwnerID:       userID,
		Name:          req.Name,
		Description:   req.Description,
		Instructions:  req.Instructions,
		ModelID:       req.ModelID,
		VectorStoreID: req.VectorStoreID,
		Shared:        req.Shared,
	}
	if err := s.assistants.Create(ctx, assistant); err != nil {
		return nil, err
	}
	return assistant, nil
}

func (s *AssistantService) Get(ctx context.Context, userID, id string) (*models.Assistant, error) {
	assistant, err := s.assistants.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if assistant.OwnerID != userID && !assistant.Shared {
		return nil, apperrors.ErrNotFound("assistant", id)
	}
	return assistant, nil
}

func (s *AssistantService) List(ctx context.Context, userID string) ([]*models.Assistant, error) {
	return s.assistants.ListForUser(ctx, userID)
}

func (s *AssistantService) Update(ctx context.Context, userID, id string, req *dto.AssistantRequest) (*models.Assistant, error) {
	if err := s.requireOwner(ctx, userID, id); err != nil {
		return nil, err
	}
	if _, err := s.modelsRepo.Get(ctx, req.ModelID); err != nil {
		return nil, err
	}
	assistant := &models.Assistant{
		ID:            id,
		Name:          req.Name,
		Description:   req.Description,
		Instructions:  req.Instructions,
		ModelID:       req.ModelID,
		VectorStoreID: req.VectorStoreID,
		Shared:        req.Shared,
	}
	if err := s.assistants.Update(ctx, assistant); err != nil {
		return nil, err
	}
	return s.assistants.Get(ctx, id)
}

func (s *AssistantService) Delete(ctx context.Context, userID, id string) error {
	if err := s.requireOwner(ctx, userID, id); err != nil {
		return err
	}
	return s.assistants.Delete(ctx, id)
}

func (s *AssistantService) requireOwner(ctx context.Context, userID, id string) error {
	assistant, err := s.assistants.Get(ctx, id)
	if err != nil {
		return err
	}
	if assistant.OwnerID != userID {
		// Shared assistants are readable by anyone but writable only by
		// their owner.
		return apperrors.ErrForbidden("only the owner may modify this assistant")
	}
	return nil
}
