package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"game-building-server/game-service/internal/service/mocks"
	"game-building-server/shared/models"
)

func TestCreateBuildingAssignsNextID(t *testing.T) {
	repo := new(mocks.BuildingRepository)
	svc := NewCatalogService(repo, zap.NewNop())

	repo.On("NextBuildingID", mock.Anything).Return(3, nil)
	repo.On("GetByBuildingID", mock.Anything, 1).Return(&models.Building{BuildingID: 1}, nil)
	repo.On("GetByBuildingID", mock.Anything, 2).Return(&models.Building{BuildingID: 2}, nil)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	building, err := svc.CreateBuilding(context.Background(), models.CreateBuildingParams{
		Name:          "Keep",
		BuildTime:     90,
		RequiredWood:  100,
		RequiredStone: 200,
		Dependencies:  []int{1, 2},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, building.BuildingID)
	assert.Equal(t, []int{1, 2}, building.Dependencies)
	repo.AssertExpectations(t)
}

func TestCreateBuildingNilDependenciesBecomeEmpty(t *testing.T) {
	repo := new(mocks.BuildingRepository)
	svc := NewCatalogService(repo, zap.NewNop())

	repo.On("NextBuildingID", mock.Anything).Return(1, nil)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	building, err := svc.CreateBuilding(context.Background(), models.CreateBuildingParams{
		Name:      "Hut",
		BuildTime: 10,
	})
	require.NoError(t, err)
	assert.NotNil(t, building.Dependencies)
	assert.Empty(t, building.Dependencies)
}

func TestCreateBuildingValidation(t *testing.T) {
	repo := new(mocks.BuildingRepository)
	svc := NewCatalogService(repo, zap.NewNop())

	cases := []struct {
		name   string
		params models.CreateBuildingParams
	}{
		{"empty name", models.CreateBuildingParams{Name: "   ", BuildTime: 10}},
		{"zero build time", models.CreateBuildingParams{Name: "Hut", BuildTime: 0}},
		{"negative build time", models.CreateBuildingParams{Name: "Hut", BuildTime: -5}},
		{"negative wood", models.CreateBuildingParams{Name: "Hut", BuildTime: 10, RequiredWood: -1}},
		{"negative stone", models.CreateBuildingParams{Name: "Hut", BuildTime: 10, RequiredStone: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateBuilding(context.Background(), tc.params)
			assert.ErrorIs(t, err, models.ErrInvalidInput)
		})
	}
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateBuildingRejectsUnknownDependency(t *testing.T) {
	repo := new(mocks.BuildingRepository)
	svc := NewCatalogService(repo, zap.NewNop())

	repo.On("NextBuildingID", mock.Anything).Return(2, nil)
	repo.On("GetByBuildingID", mock.Anything, 99).Return(nil, models.ErrBuildingNotFound)

	_, err := svc.CreateBuilding(context.Background(), models.CreateBuildingParams{
		Name:         "Keep",
		BuildTime:    90,
		Dependencies: []int{99},
	})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	assert.Contains(t, err.Error(), "unknown dependency 99")
}

func TestCreateBuildingRejectsSelfDependency(t *testing.T) {
	repo := new(mocks.BuildingRepository)
	svc := NewCatalogService(repo, zap.NewNop())

	// Назначаемый id равен id из списка зависимостей
	repo.On("NextBuildingID", mock.Anything).Return(5, nil)

	_, err := svc.CreateBuilding(context.Background(), models.CreateBuildingParams{
		Name:         "Ouroboros",
		BuildTime:    10,
		Dependencies: []int{5},
	})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestCreateBuildingRejectsDuplicateDependency(t *testing.T) {
	repo := new(mocks.BuildingRepository)
	svc := NewCatalogService(repo, zap.NewNop())

	repo.On("NextBuildingID", mock.Anything).Return(3, nil)
	repo.On("GetByBuildingID", mock.Anything, 1).Return(&models.Building{BuildingID: 1}, nil)

	_, err := svc.CreateBuilding(context.Background(), models.CreateBuildingParams{
		Name:         "Keep",
		BuildTime:    90,
		Dependencies: []int{1, 1},
	})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}
