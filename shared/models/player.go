package models

import (
	"time"

	"github.com/google/uuid"
)

// BuildStatus is the lifecycle state of one building attempt.
// InProgress is the only non-terminal state; Completed and Failed are
// terminal and no transition ever leaves them.
type BuildStatus string

const (
	BuildStatusInProgress BuildStatus = "in_progress"
	BuildStatusCompleted  BuildStatus = "completed"
	BuildStatusFailed     BuildStatus = "failed"
)

// Стартовый баланс нового игрока.
const (
	DefaultStartingWood  = 1000
	DefaultStartingStone = 1000
)

// Resources is the player's resource balance. Both fields stay >= 0 at all
// times: gameplay code must mutate the balance only through HasSufficient /
// Consume / Credit. The administrative absolute-set path (update_resources)
// lives in the service layer and is deliberately separate from these delta
// operations.
type Resources struct {
	Wood  int `json:"wood"`
	Stone int `json:"stone"`
}

// HasSufficient reports whether the balance covers the given cost.
// It exactly predicts whether Consume would succeed.
func (r *Resources) HasSufficient(wood, stone int) bool {
	return r.Wood >= wood && r.Stone >= stone
}

// Consume atomically decrements both fields or does nothing at all.
func (r *Resources) Consume(wood, stone int) error {
	if !r.HasSufficient(wood, stone) {
		return ErrInsufficientResources
	}
	r.Wood -= wood
	r.Stone -= stone
	return nil
}

// Credit unconditionally increments the balance. Used for refunds.
func (r *Resources) Credit(wood, stone int) {
	r.Wood += wood
	r.Stone += stone
}

// PlayerBuilding is one progression record: a single building attempt of a
// player. TaskID holds the scheduler handle of the pending completion task
// and is non-empty if and only if Status == BuildStatusInProgress.
type PlayerBuilding struct {
	BuildingID int         `json:"building_id"`
	Status     BuildStatus `json:"status"`
	StartedAt  time.Time   `json:"started_at"`
	FinishEta  time.Time   `json:"finish_eta"`
	TaskID     string      `json:"task_id,omitempty"`
}

// Player is the aggregate the progression engine operates on. Buildings is
// append-only and ordered by creation; entries mutate in place on
// completion/acceleration. Version backs the optimistic save check.
type Player struct {
	ID           uuid.UUID        `json:"id"`
	Username     string           `json:"username"`
	Email        string           `json:"email"`
	PasswordHash string           `json:"-"`
	Resources    Resources        `json:"resources"`
	Buildings    []PlayerBuilding `json:"buildings"`
	Version      int64            `json:"-"`
	CreatedAt    time.Time        `json:"created_at"`
}

// NewPlayer creates a player with the default starting balance.
func NewPlayer(username, email, passwordHash string) *Player {
	return &Player{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Resources: Resources{
			Wood:  DefaultStartingWood,
			Stone: DefaultStartingStone,
		},
		Buildings: []PlayerBuilding{},
	}
}

// GetBuilding returns the progression record for buildingID, or nil.
// Инвариант "не более одной записи на (игрок, здание), кроме failed"
// поддерживается валидатором, поэтому достаточно вернуть последнюю запись.
func (p *Player) GetBuilding(buildingID int) *PlayerBuilding {
	for i := len(p.Buildings) - 1; i >= 0; i-- {
		if p.Buildings[i].BuildingID == buildingID {
			return &p.Buildings[i]
		}
	}
	return nil
}

// HasCompletedBuilding reports whether the player finished the given building.
func (p *Player) HasCompletedBuilding(buildingID int) bool {
	for i := range p.Buildings {
		if p.Buildings[i].BuildingID == buildingID && p.Buildings[i].Status == BuildStatusCompleted {
			return true
		}
	}
	return false
}

// Snapshot returns the client-facing view of the player (no credentials, no
// scheduler handles).
func (p *Player) Snapshot() PlayerSnapshot {
	buildings := make([]PlayerBuildingSnapshot, 0, len(p.Buildings))
	for i := range p.Buildings {
		b := &p.Buildings[i]
		buildings = append(buildings, PlayerBuildingSnapshot{
			BuildingID: b.BuildingID,
			Status:     b.Status,
			StartedAt:  b.StartedAt,
			FinishEta:  b.FinishEta,
		})
	}
	return PlayerSnapshot{
		ID:        p.ID,
		Username:  p.Username,
		Email:     p.Email,
		Resources: p.Resources,
		Buildings: buildings,
	}
}

// PlayerSnapshot is the serialized player state sent to clients.
type PlayerSnapshot struct {
	ID        uuid.UUID                `json:"id"`
	Username  string                   `json:"username"`
	Email     string                   `json:"email"`
	Resources Resources                `json:"resources"`
	Buildings []PlayerBuildingSnapshot `json:"buildings"`
}

// PlayerBuildingSnapshot is the client view of one progression record.
type PlayerBuildingSnapshot struct {
	BuildingID int         `json:"building_id"`
	Status     BuildStatus `json:"status"`
	StartedAt  time.Time   `json:"started_at"`
	FinishEta  time.Time   `json:"finish_eta"`
}
