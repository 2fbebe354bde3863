package messaging

import "github.com/google/uuid"

// CompletionTaskPayload — тело отложенной задачи завершения строительства.
// TaskID — это scheduler handle, хранящийся на записи PlayerBuilding; по нему
// консьюмер отбрасывает отозванные и устаревшие (пересозданные) задачи.
type CompletionTaskPayload struct {
	TaskID     string    `json:"task_id"`
	PlayerID   uuid.UUID `json:"player_id"`
	BuildingID int       `json:"building_id"`
}
