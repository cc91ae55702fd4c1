package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/nimbusworks/nimbus/pkg/errors"
	"github.com/nimbusworks/nimbus/pkg/logger"

	"github.com/nimbusworks/nimbus/internal/application/dto"
	"github.com/nimbusworks/nimbus/internal/domain/models"
)

func newCatalogFixture(t *testing.T) (*CatalogService, *fakeModelRepo) {
	t.Helper()
	repo := newFakeModelRepo()
	require.NoError(t, repo.Create(context.Background(), &models.ManagedModel{
		ID: "sonnet-4", Provider: "anthropic", DisplayName: "Sonnet 4", Enabled: true,
	}))
	return NewCatalogService(repo, logger.NewNoop()), repo
}

func TestEnabledModelsAreCached(t *testing.T) {
	svc, repo := newCatalogFixture(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		list, err := svc.EnabledModels(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	}
	assert.Equal(t, 1, repo.lists, "repeated reads hit the cache")
}

func TestWritesInvalidateCache(t *testing.T) {
	svc, repo := newCatalogFixture(t)
	ctx := context.Background()

	_, err := svc.EnabledModels(ctx)
	require.NoError(t, err)

	_, err = svc.CreateModel(ctx, &dto.ManagedModelRequest{
		ID: "haiku-3", Provider: "anthropic", DisplayName: "Haiku 3", Enabled: true,
	})
	require.NoError(t, err)

	list, err := svc.EnabledModels(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, 2, repo.lists)
}

func TestResolveEnabledModel(t *testing.T) {
	svc, repo := newCatalogFixture(t)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &models.ManagedModel{
		ID: "legacy", Provider: "anthropic", DisplayName: "Legacy", Enabled: false,
	}))

	model, err := svc.ResolveEnabledModel(ctx, "sonnet-4")
	require.NoError(t, err)
	assert.Equal(t, "Sonnet 4", model.DisplayName)

	_, err = svc.ResolveEnabledModel(ctx, "legacy")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidRequest))

	_, err = svc.ResolveEnabledModel(ctx, "ghost")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestToolCatalogIsStable(t *testing.T) {
	svc, _ := newCatalogFixture(t)
	tools := svc.Tools()
	require.NotEmpty(t, tools)
	for _, tool := range tools {
		assert.NotEmpty(t, tool.Name)
		assert.NotEmpty(t, tool.Description)
	}
}
