package handler

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"game-building-server/shared/models"
)

// Mock AuthService
type mockAuthService struct {
	mock.Mock
}

func (m *mockAuthService) Register(ctx context.Context, username, email, password string) (*models.Player, string, error) {
	args := m.Called(ctx, username, email, password)
	if p, ok := args.Get(0).(*models.Player); ok {
		return p, args.String(1), args.Error(2)
	}
	return nil, args.String(1), args.Error(2)
}

func (m *mockAuthService) Login(ctx context.Context, username, password string) (*models.Player, string, error) {
	args := m.Called(ctx, username, password)
	if p, ok := args.Get(0).(*models.Player); ok {
		return p, args.String(1), args.Error(2)
	}
	return nil, args.String(1), args.Error(2)
}

func (m *mockAuthService) ValidateToken(token string) (uuid.UUID, error) {
	args := m.Called(token)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

// Mock CatalogService
type mockCatalogService struct {
	mock.Mock
}

func (m *mockCatalogService) CreateBuilding(ctx context.Context, params models.CreateBuildingParams) (*models.Building, error) {
	args := m.Called(ctx, params)
	if b, ok := args.Get(0).(*models.Building); ok {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCatalogService) GetBuilding(ctx context.Context, buildingID int) (*models.Building, error) {
	args := m.Called(ctx, buildingID)
	if b, ok := args.Get(0).(*models.Building); ok {
		return b, args.Error(1)
	}
	return nil, args.Error(1)
}

// Mock ProgressionService
type mockProgressionService struct {
	mock.Mock
}

func (m *mockProgressionService) StartBuilding(ctx context.Context, playerID uuid.UUID, buildingID int) (*models.PlayerBuilding, error) {
	args := m.Called(ctx, playerID, buildingID)
	if r, ok := args.Get(0).(*models.PlayerBuilding); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProgressionService) AccelerateBuilding(ctx context.Context, playerID uuid.UUID, buildingID int, percent float64) (*models.AccelerateOutcome, error) {
	args := m.Called(ctx, playerID, buildingID, percent)
	if o, ok := args.Get(0).(*models.AccelerateOutcome); ok {
		return o, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProgressionService) CompleteBuilding(ctx context.Context, playerID uuid.UUID, buildingID int, taskID string) (bool, error) {
	args := m.Called(ctx, playerID, buildingID, taskID)
	return args.Bool(0), args.Error(1)
}

func (m *mockProgressionService) FailBuilding(ctx context.Context, playerID uuid.UUID, buildingID int, reason string) (bool, error) {
	args := m.Called(ctx, playerID, buildingID, reason)
	return args.Bool(0), args.Error(1)
}

func (m *mockProgressionService) SetResources(ctx context.Context, playerID uuid.UUID, wood, stone *int) (*models.Player, error) {
	args := m.Called(ctx, playerID, wood, stone)
	if p, ok := args.Get(0).(*models.Player); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProgressionService) GetPlayerInfo(ctx context.Context, playerID uuid.UUID) (*models.Player, error) {
	args := m.Called(ctx, playerID)
	if p, ok := args.Get(0).(*models.Player); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProgressionService) GetAllowedBuildings(ctx context.Context, playerID uuid.UUID) ([]models.AllowedBuilding, error) {
	args := m.Called(ctx, playerID)
	if l, ok := args.Get(0).([]models.AllowedBuilding); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

type dispatchFixture struct {
	auth        *mockAuthService
	catalog     *mockCatalogService
	progression *mockProgressionService
	manager     *ConnectionManager
	dispatcher  *Dispatcher
	client      *Client
}

func newDispatchFixture(t *testing.T) *dispatchFixture {
	t.Helper()
	f := &dispatchFixture{
		auth:        new(mockAuthService),
		catalog:     new(mockCatalogService),
		progression: new(mockProgressionService),
		manager:     NewConnectionManager(zerolog.Nop()),
	}
	f.dispatcher = NewDispatcher(f.auth, f.catalog, f.progression, f.manager, zerolog.Nop())
	f.client = &Client{send: make(chan []byte, 16)}
	return f
}

// lastReply декодирует следующий ответ из очереди соединения.
func (f *dispatchFixture) lastReply(t *testing.T) map[string]any {
	t.Helper()
	select {
	case payload := <-f.client.send:
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(payload, &decoded))
		return decoded
	case <-time.After(time.Second):
		t.Fatal("no reply enqueued")
		return nil
	}
}

func TestDispatchInvalidJSON(t *testing.T) {
	f := newDispatchFixture(t)
	f.dispatcher.Dispatch(context.Background(), f.client, []byte("{not json"))
	reply := f.lastReply(t)
	assert.Equal(t, "error", reply["type"])
}

func TestDispatchUnknownType(t *testing.T) {
	f := newDispatchFixture(t)
	f.dispatcher.Dispatch(context.Background(), f.client, []byte(`{"type":"fly_to_moon"}`))
	reply := f.lastReply(t)
	assert.Equal(t, "error", reply["type"])
	assert.Equal(t, "unknown message type", reply["error"])
}

func TestDispatchRequiresAuthentication(t *testing.T) {
	f := newDispatchFixture(t)

	// Любая игровая команда до login/register отклоняется
	f.dispatcher.Dispatch(context.Background(), f.client, []byte(`{"type":"start_building","building_id":1}`))
	reply := f.lastReply(t)
	assert.Equal(t, "start_building_failed", reply["type"])
	assert.Equal(t, "not authenticated", reply["error"])

	f.progression.AssertNotCalled(t, "StartBuilding", mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatchRegisterBindsConnection(t *testing.T) {
	f := newDispatchFixture(t)
	player := models.NewPlayer("alice", "alice@example.com", "hash")

	f.auth.On("Register", mock.Anything, "alice", "alice@example.com", "password123").
		Return(player, "jwt-token", nil)

	f.dispatcher.Dispatch(context.Background(), f.client,
		[]byte(`{"type":"register","username":"alice","email":"alice@example.com","password":"password123"}`))

	reply := f.lastReply(t)
	assert.Equal(t, "register_success", reply["type"])
	assert.Equal(t, "jwt-token", reply["token"])

	// Соединение привязано: игровые команды теперь проходят
	assert.Equal(t, player.ID.String(), f.manager.BoundPlayer(f.client))
}

func TestDispatchLoginFailure(t *testing.T) {
	f := newDispatchFixture(t)

	f.auth.On("Login", mock.Anything, "alice", "wrong").
		Return(nil, "", models.ErrInvalidCredentials)

	f.dispatcher.Dispatch(context.Background(), f.client,
		[]byte(`{"type":"login","username":"alice","password":"wrong"}`))

	reply := f.lastReply(t)
	assert.Equal(t, "login_failed", reply["type"])
	assert.Equal(t, "invalid username or password", reply["error"])
	assert.Empty(t, f.manager.BoundPlayer(f.client))
}

func TestDispatchStartBuilding(t *testing.T) {
	f := newDispatchFixture(t)
	playerID := uuid.New()
	f.manager.RegisterClient(f.client)
	f.manager.Bind(f.client, playerID.String())

	eta := time.Date(2025, 6, 1, 12, 1, 0, 0, time.UTC)
	f.progression.On("StartBuilding", mock.Anything, playerID, 1).
		Return(&models.PlayerBuilding{BuildingID: 1, Status: models.BuildStatusInProgress, FinishEta: eta}, nil)

	f.dispatcher.Dispatch(context.Background(), f.client, []byte(`{"type":"start_building","building_id":1}`))

	reply := f.lastReply(t)
	assert.Equal(t, "building_started", reply["type"])
	assert.Equal(t, float64(1), reply["building_id"])
}

func TestDispatchStartBuildingDomainError(t *testing.T) {
	f := newDispatchFixture(t)
	playerID := uuid.New()
	f.manager.RegisterClient(f.client)
	f.manager.Bind(f.client, playerID.String())

	f.progression.On("StartBuilding", mock.Anything, playerID, 1).
		Return(nil, models.ErrInsufficientResources)

	f.dispatcher.Dispatch(context.Background(), f.client, []byte(`{"type":"start_building","building_id":1}`))

	reply := f.lastReply(t)
	assert.Equal(t, "start_building_failed", reply["type"])
	assert.Equal(t, "insufficient resources", reply["error"])
}

func TestDispatchAcceleratePercentDefaultsToFull(t *testing.T) {
	f := newDispatchFixture(t)
	playerID := uuid.New()
	f.manager.RegisterClient(f.client)
	f.manager.Bind(f.client, playerID.String())

	f.progression.On("AccelerateBuilding", mock.Anything, playerID, 1, 100.0).
		Return(&models.AccelerateOutcome{BuildingID: 1, Completed: true}, nil)

	// percent не передан -> полное ускорение
	f.dispatcher.Dispatch(context.Background(), f.client, []byte(`{"type":"accelerate_building","building_id":1}`))

	reply := f.lastReply(t)
	assert.Equal(t, "building_accelerated", reply["type"])
	assert.Equal(t, true, reply["completed"])
	f.progression.AssertExpectations(t)
}

func TestDispatchInternalErrorIsNotLeaked(t *testing.T) {
	f := newDispatchFixture(t)
	playerID := uuid.New()
	f.manager.RegisterClient(f.client)
	f.manager.Bind(f.client, playerID.String())

	f.progression.On("GetPlayerInfo", mock.Anything, playerID).
		Return(nil, assert.AnError)

	f.dispatcher.Dispatch(context.Background(), f.client, []byte(`{"type":"get_player_info"}`))

	reply := f.lastReply(t)
	assert.Equal(t, "get_player_info_failed", reply["type"])
	assert.Equal(t, "internal server error", reply["error"])
}

func TestDispatchGetAllowedBuildings(t *testing.T) {
	f := newDispatchFixture(t)
	playerID := uuid.New()
	f.manager.RegisterClient(f.client)
	f.manager.Bind(f.client, playerID.String())

	f.progression.On("GetAllowedBuildings", mock.Anything, playerID).
		Return([]models.AllowedBuilding{
			{Building: models.Building{BuildingID: 1, Name: "Sawmill"}, CanAfford: true},
		}, nil)

	f.dispatcher.Dispatch(context.Background(), f.client, []byte(`{"type":"get_allowed_buildings"}`))

	reply := f.lastReply(t)
	assert.Equal(t, "allowed_buildings", reply["type"])
	assert.Equal(t, float64(1), reply["total_count"])
}
