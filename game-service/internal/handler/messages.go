package handler

import (
	"time"

	"game-building-server/shared/models"
)

// clientRequest — универсальный конверт входящей команды. Поле type выбирает
// операцию, остальные поля заполняются по необходимости.
type clientRequest struct {
	Type string `json:"type"`

	// register / login
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`

	// create_building
	Name          string `json:"name,omitempty"`
	BuildTime     int    `json:"build_time,omitempty"`
	RequiredWood  int    `json:"required_wood,omitempty"`
	RequiredStone int    `json:"required_stone,omitempty"`
	Dependencies  []int  `json:"dependencies,omitempty"`

	// start_building / accelerate_building
	BuildingID int `json:"building_id,omitempty"`

	// accelerate_building; nil означает 100
	Percent *float64 `json:"percent,omitempty"`

	// update_resources
	Wood  *int `json:"wood,omitempty"`
	Stone *int `json:"stone,omitempty"`
}

type errorResponse struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type authSuccessResponse struct {
	Type   string                `json:"type"`
	Player models.PlayerSnapshot `json:"player"`
	Token  string                `json:"token"`
}

type buildingCreatedResponse struct {
	Type     string          `json:"type"`
	Building models.Building `json:"building"`
}

type buildingStartedResponse struct {
	Type       string    `json:"type"`
	BuildingID int       `json:"building_id"`
	FinishEta  time.Time `json:"finish_eta"`
}

type buildingAcceleratedResponse struct {
	Type         string    `json:"type"`
	BuildingID   int       `json:"building_id"`
	Completed    bool      `json:"completed"`
	NewFinishEta time.Time `json:"new_finish_eta"`
}

type playerInfoResponse struct {
	Type   string                `json:"type"`
	Player models.PlayerSnapshot `json:"player"`
}

type allowedBuildingsResponse struct {
	Type       string                   `json:"type"`
	Buildings  []models.AllowedBuilding `json:"buildings"`
	TotalCount int                      `json:"total_count"`
}
