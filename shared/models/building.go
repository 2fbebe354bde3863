package models

import "time"

// Building is an immutable catalog definition of a constructible building.
// BuildingID is the catalog key referenced by player progression records and
// by the Dependencies list of other definitions.
type Building struct {
	BuildingID    int       `json:"building_id"`
	Name          string    `json:"name"`
	BuildTime     int       `json:"build_time"` // seconds, > 0
	RequiredWood  int       `json:"required_wood"`
	RequiredStone int       `json:"required_stone"`
	Dependencies  []int     `json:"dependencies"`
	CreatedAt     time.Time `json:"created_at"`
}

// AllowedBuilding is a catalog entry annotated for a specific player:
// whether they can afford it right now and, if not, what is missing.
type AllowedBuilding struct {
	Building
	CanAfford        bool              `json:"can_afford"`
	MissingResources *MissingResources `json:"missing_resources,omitempty"`
}

// MissingResources lists the shortfall per resource (0 when covered).
type MissingResources struct {
	Wood  int `json:"wood"`
	Stone int `json:"stone"`
}
