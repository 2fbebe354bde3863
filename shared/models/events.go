package models

// Типы событий, рассылаемых в группу соединений игрока.
const (
	EventTypeBuildingCompleted = "building_completed"
	EventTypePlayerUpdated     = "player_updated"
)

// BuildingCompletedEvent notifies all of a player's connections that a
// building finished construction.
type BuildingCompletedEvent struct {
	Type       string `json:"type"`
	BuildingID int    `json:"building_id"`
}

// NewBuildingCompletedEvent builds the completion event payload.
func NewBuildingCompletedEvent(buildingID int) BuildingCompletedEvent {
	return BuildingCompletedEvent{Type: EventTypeBuildingCompleted, BuildingID: buildingID}
}

// PlayerUpdatedEvent carries a full player snapshot after a state change.
type PlayerUpdatedEvent struct {
	Type   string         `json:"type"`
	Player PlayerSnapshot `json:"player"`
}

// NewPlayerUpdatedEvent builds the snapshot event payload.
func NewPlayerUpdatedEvent(player PlayerSnapshot) PlayerUpdatedEvent {
	return PlayerUpdatedEvent{Type: EventTypePlayerUpdated, Player: player}
}
