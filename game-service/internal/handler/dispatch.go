package handler

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"game-building-server/shared/interfaces"
	"game-building-server/shared/models"
)

// Типы входящих команд.
const (
	msgRegister           = "register"
	msgLogin              = "login"
	msgCreateBuilding     = "create_building"
	msgStartBuilding      = "start_building"
	msgAccelerateBuilding = "accelerate_building"
	msgUpdateResources    = "update_resources"
	msgGetPlayerInfo      = "get_player_info"
	msgGetAllowedBldgs    = "get_allowed_buildings"
)

// Dispatcher разбирает входящие команды и вызывает сервисы. Каждое
// соединение до аутентификации может выполнять только register/login.
type Dispatcher struct {
	auth        interfaces.AuthService
	catalog     interfaces.CatalogService
	progression interfaces.ProgressionService
	manager     *ConnectionManager
	logger      zerolog.Logger
}

// NewDispatcher создает диспетчер команд.
func NewDispatcher(
	auth interfaces.AuthService,
	catalog interfaces.CatalogService,
	progression interfaces.ProgressionService,
	manager *ConnectionManager,
	logger zerolog.Logger,
) *Dispatcher {
	return &Dispatcher{
		auth:        auth,
		catalog:     catalog,
		progression: progression,
		manager:     manager,
		logger:      logger.With().Str("component", "Dispatcher").Logger(),
	}
}

// Dispatch обрабатывает одно входящее сообщение клиента.
func (d *Dispatcher) Dispatch(ctx context.Context, client *Client, raw []byte) {
	var req clientRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		d.logger.Warn().Err(err).Msg("Неразборчивое сообщение от клиента")
		d.reply(client, errorResponse{Type: "error", Error: "invalid message format"})
		return
	}

	messagesReceived.WithLabelValues(req.Type).Inc()

	switch req.Type {
	case msgRegister:
		d.handleRegister(ctx, client, req)
	case msgLogin:
		d.handleLogin(ctx, client, req)
	case msgCreateBuilding:
		d.handleCreateBuilding(ctx, client, req)
	case msgStartBuilding:
		d.handleStartBuilding(ctx, client, req)
	case msgAccelerateBuilding:
		d.handleAccelerateBuilding(ctx, client, req)
	case msgUpdateResources:
		d.handleUpdateResources(ctx, client, req)
	case msgGetPlayerInfo:
		d.handleGetPlayerInfo(ctx, client)
	case msgGetAllowedBldgs:
		d.handleGetAllowedBuildings(ctx, client)
	default:
		d.logger.Warn().Str("type", req.Type).Msg("Неизвестный тип сообщения")
		d.reply(client, errorResponse{Type: "error", Error: "unknown message type"})
	}
}

func (d *Dispatcher) handleRegister(ctx context.Context, client *Client, req clientRequest) {
	player, token, err := d.auth.Register(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		d.replyError(client, "register_failed", err)
		return
	}
	d.manager.Bind(client, player.ID.String())
	d.reply(client, authSuccessResponse{Type: "register_success", Player: player.Snapshot(), Token: token})
}

func (d *Dispatcher) handleLogin(ctx context.Context, client *Client, req clientRequest) {
	player, token, err := d.auth.Login(ctx, req.Username, req.Password)
	if err != nil {
		d.replyError(client, "login_failed", err)
		return
	}
	d.manager.Bind(client, player.ID.String())
	d.reply(client, authSuccessResponse{Type: "login_success", Player: player.Snapshot(), Token: token})
}

func (d *Dispatcher) handleCreateBuilding(ctx context.Context, client *Client, req clientRequest) {
	if _, ok := d.authenticated(client, "create_building_failed"); !ok {
		return
	}
	building, err := d.catalog.CreateBuilding(ctx, models.CreateBuildingParams{
		Name:          req.Name,
		BuildTime:     req.BuildTime,
		RequiredWood:  req.RequiredWood,
		RequiredStone: req.RequiredStone,
		Dependencies:  req.Dependencies,
	})
	if err != nil {
		d.replyError(client, "create_building_failed", err)
		return
	}
	d.reply(client, buildingCreatedResponse{Type: "building_created", Building: *building})
}

func (d *Dispatcher) handleStartBuilding(ctx context.Context, client *Client, req clientRequest) {
	playerID, ok := d.authenticated(client, "start_building_failed")
	if !ok {
		return
	}
	record, err := d.progression.StartBuilding(ctx, playerID, req.BuildingID)
	if err != nil {
		d.replyError(client, "start_building_failed", err)
		return
	}
	d.reply(client, buildingStartedResponse{
		Type:       "building_started",
		BuildingID: record.BuildingID,
		FinishEta:  record.FinishEta,
	})
}

func (d *Dispatcher) handleAccelerateBuilding(ctx context.Context, client *Client, req clientRequest) {
	playerID, ok := d.authenticated(client, "accelerate_building_failed")
	if !ok {
		return
	}
	// Отсутствие percent означает полное ускорение
	percent := 100.0
	if req.Percent != nil {
		percent = *req.Percent
	}
	outcome, err := d.progression.AccelerateBuilding(ctx, playerID, req.BuildingID, percent)
	if err != nil {
		d.replyError(client, "accelerate_building_failed", err)
		return
	}
	d.reply(client, buildingAcceleratedResponse{
		Type:         "building_accelerated",
		BuildingID:   outcome.BuildingID,
		Completed:    outcome.Completed,
		NewFinishEta: outcome.NewFinishEta,
	})
}

func (d *Dispatcher) handleUpdateResources(ctx context.Context, client *Client, req clientRequest) {
	playerID, ok := d.authenticated(client, "update_resources_failed")
	if !ok {
		return
	}
	player, err := d.progression.SetResources(ctx, playerID, req.Wood, req.Stone)
	if err != nil {
		d.replyError(client, "update_resources_failed", err)
		return
	}
	d.reply(client, playerInfoResponse{Type: "resources_updated", Player: player.Snapshot()})
}

func (d *Dispatcher) handleGetPlayerInfo(ctx context.Context, client *Client) {
	playerID, ok := d.authenticated(client, "get_player_info_failed")
	if !ok {
		return
	}
	player, err := d.progression.GetPlayerInfo(ctx, playerID)
	if err != nil {
		d.replyError(client, "get_player_info_failed", err)
		return
	}
	d.reply(client, playerInfoResponse{Type: "player_info", Player: player.Snapshot()})
}

func (d *Dispatcher) handleGetAllowedBuildings(ctx context.Context, client *Client) {
	playerID, ok := d.authenticated(client, "get_allowed_buildings_failed")
	if !ok {
		return
	}
	allowed, err := d.progression.GetAllowedBuildings(ctx, playerID)
	if err != nil {
		d.replyError(client, "get_allowed_buildings_failed", err)
		return
	}
	d.reply(client, allowedBuildingsResponse{
		Type:       "allowed_buildings",
		Buildings:  allowed,
		TotalCount: len(allowed),
	})
}

// authenticated возвращает id игрока соединения или шлет ошибку и false.
func (d *Dispatcher) authenticated(client *Client, failType string) (uuid.UUID, bool) {
	bound := d.manager.BoundPlayer(client)
	if bound == "" {
		d.reply(client, errorResponse{Type: failType, Error: "not authenticated"})
		return uuid.Nil, false
	}
	playerID, err := uuid.Parse(bound)
	if err != nil {
		d.reply(client, errorResponse{Type: failType, Error: "not authenticated"})
		return uuid.Nil, false
	}
	return playerID, true
}

// replyError маппит ошибку сервиса в клиентский ответ, не раскрывая
// внутренних деталей.
func (d *Dispatcher) replyError(client *Client, failType string, err error) {
	d.logger.Warn().Err(err).Str("response", failType).Msg("Команда завершилась ошибкой")
	d.reply(client, errorResponse{Type: failType, Error: clientErrorMessage(err)})
}

func (d *Dispatcher) reply(client *Client, response any) {
	payload, err := json.Marshal(response)
	if err != nil {
		d.logger.Error().Err(err).Msg("Не удалось сериализовать ответ")
		return
	}
	client.Enqueue(payload)
}

// clientErrorMessage переводит доменные ошибки в безопасные для клиента
// сообщения. Все нераспознанные ошибки схлопываются в internal server error.
func clientErrorMessage(err error) string {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return err.Error()
	case errors.Is(err, models.ErrDependencyNotMet):
		return err.Error()
	case errors.Is(err, models.ErrUserAlreadyExists):
		return "username already taken"
	case errors.Is(err, models.ErrEmailAlreadyExists):
		return "email already registered"
	case errors.Is(err, models.ErrInvalidCredentials):
		return "invalid username or password"
	case errors.Is(err, models.ErrTokenExpired):
		return "token expired"
	case errors.Is(err, models.ErrTokenInvalid):
		return "invalid token"
	case errors.Is(err, models.ErrBuildingNotFound):
		return "building not found"
	case errors.Is(err, models.ErrPlayerNotFound):
		return "player not found"
	case errors.Is(err, models.ErrAlreadyInProgress):
		return "building already in progress"
	case errors.Is(err, models.ErrAlreadyCompleted):
		return "building already completed"
	case errors.Is(err, models.ErrInsufficientResources):
		return "insufficient resources"
	case errors.Is(err, models.ErrNotInProgress):
		return "building is not in progress"
	case errors.Is(err, models.ErrAlreadyDue):
		return "building is already due for completion"
	case errors.Is(err, models.ErrStateConflict):
		return "state conflict, please retry"
	case errors.Is(err, models.ErrSchedulingFailure):
		return "failed to schedule completion, please retry"
	default:
		return "internal server error"
	}
}
