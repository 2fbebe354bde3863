package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"game-building-server/shared/interfaces"
	"game-building-server/shared/messaging"
	"game-building-server/shared/models"
)

// Mock PlayerRepository
type PlayerRepository struct {
	mock.Mock
}

func (m *PlayerRepository) Create(ctx context.Context, player *models.Player) error {
	args := m.Called(ctx, player)
	return args.Error(0)
}

func (m *PlayerRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	args := m.Called(ctx, id)
	if p, ok := args.Get(0).(*models.Player); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *PlayerRepository) GetByUsername(ctx context.Context, username string) (*models.Player, error) {
	args := m.Called(ctx, username)
	if p, ok := args.Get(0).(*models.Player); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *PlayerRepository) GetByEmail(ctx context.Context, email string) (*models.Player, error) {
	args := m.Called(ctx, email)
	if p, ok := args.Get(0).(*models.Player); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *PlayerRepository) GetForUpdate(ctx context.Context, tx interfaces.DBTX, id uuid.UUID) (*models.Player, error) {
	args := m.Called(ctx, tx, id)
	if p, ok := args.Get(0).(*models.Player); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *PlayerRepository) Save(ctx context.Context, tx interfaces.DBTX, player *models.Player) error {
	args := m.Called(ctx, tx, player)
	return args.Error(0)
}

// Mock BuildingRepository
type BuildingRepository struct {
	mock.Mock
}

func (m *BuildingRepository) Create(ctx context.Context, building *models.Building) error {
	args := m.Called(ctx, building)
	return args.Error(0)
}

func (m *BuildingRepository) GetByBuildingID(ctx context.Context, buildingID int) (*models.Building, error) {
	args := m.Called(ctx, buildingID)
	if b, ok := args.Get(0).(*models.Building); ok {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *BuildingRepository) List(ctx context.Context) ([]models.Building, error) {
	args := m.Called(ctx)
	if l, ok := args.Get(0).([]models.Building); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *BuildingRepository) NextBuildingID(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// Mock CompletionScheduler
type CompletionScheduler struct {
	mock.Mock
}

func (m *CompletionScheduler) Schedule(ctx context.Context, delay time.Duration, task messaging.CompletionTaskPayload) (string, error) {
	args := m.Called(ctx, delay, task)
	return args.String(0), args.Error(1)
}

func (m *CompletionScheduler) Cancel(ctx context.Context, taskID string) error {
	args := m.Called(ctx, taskID)
	return args.Error(0)
}

func (m *CompletionScheduler) IsRevoked(ctx context.Context, taskID string) (bool, error) {
	args := m.Called(ctx, taskID)
	return args.Bool(0), args.Error(1)
}

// Mock GroupPublisher
type GroupPublisher struct {
	mock.Mock
}

func (m *GroupPublisher) PublishToPlayer(ctx context.Context, playerID uuid.UUID, event any) error {
	args := m.Called(ctx, playerID, event)
	return args.Error(0)
}

// TxManager — пропускает колбэк напрямую, без реальной транзакции.
type TxManager struct{}

func (TxManager) WithTx(ctx context.Context, fn func(ctx context.Context, tx interfaces.DBTX) error) error {
	return fn(ctx, nil)
}
