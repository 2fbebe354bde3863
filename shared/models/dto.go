package models

import "time"

// CreateBuildingParams — входные данные операции создания определения здания.
// BuildingID не передается: каталог назначает его сам (max+1).
type CreateBuildingParams struct {
	Name          string `json:"name"`
	BuildTime     int    `json:"build_time"`
	RequiredWood  int    `json:"required_wood"`
	RequiredStone int    `json:"required_stone"`
	Dependencies  []int  `json:"dependencies"`
}

// AccelerateOutcome is the result of an acceleration: either the building
// completed immediately (Completed=true, NewFinishEta is the completion
// moment) or it was rescheduled to NewFinishEta.
type AccelerateOutcome struct {
	BuildingID   int
	Completed    bool
	NewFinishEta time.Time
}
