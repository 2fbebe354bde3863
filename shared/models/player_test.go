package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourcesConsume(t *testing.T) {
	r := Resources{Wood: 1000, Stone: 1000}

	require.NoError(t, r.Consume(500, 300))
	assert.Equal(t, 500, r.Wood)
	assert.Equal(t, 700, r.Stone)

	// Недостаточно одного из ресурсов: баланс не меняется вовсе
	err := r.Consume(600, 100)
	assert.ErrorIs(t, err, ErrInsufficientResources)
	assert.Equal(t, 500, r.Wood)
	assert.Equal(t, 700, r.Stone)

	err = r.Consume(100, 800)
	assert.ErrorIs(t, err, ErrInsufficientResources)
	assert.Equal(t, 500, r.Wood)
	assert.Equal(t, 700, r.Stone)

	// Списание в ноль допустимо
	require.NoError(t, r.Consume(500, 700))
	assert.Equal(t, 0, r.Wood)
	assert.Equal(t, 0, r.Stone)
}

func TestResourcesCredit(t *testing.T) {
	r := Resources{}
	r.Credit(100, 50)
	assert.Equal(t, Resources{Wood: 100, Stone: 50}, r)
}

func TestNewPlayerDefaults(t *testing.T) {
	p := NewPlayer("alice", "alice@example.com", "hash")

	assert.Equal(t, DefaultStartingWood, p.Resources.Wood)
	assert.Equal(t, DefaultStartingStone, p.Resources.Stone)
	assert.NotNil(t, p.Buildings)
	assert.Empty(t, p.Buildings)
	assert.NotEqual(t, "", p.ID.String())
}

func TestGetBuildingReturnsLatestRecord(t *testing.T) {
	p := NewPlayer("bob", "bob@example.com", "hash")

	assert.Nil(t, p.GetBuilding(1))

	// Проваленная попытка, затем повторная
	p.Buildings = append(p.Buildings,
		PlayerBuilding{BuildingID: 1, Status: BuildStatusFailed},
		PlayerBuilding{BuildingID: 2, Status: BuildStatusCompleted},
		PlayerBuilding{BuildingID: 1, Status: BuildStatusInProgress, TaskID: "task-2"},
	)

	record := p.GetBuilding(1)
	require.NotNil(t, record)
	assert.Equal(t, BuildStatusInProgress, record.Status)
	assert.Equal(t, "task-2", record.TaskID)
}

func TestHasCompletedBuilding(t *testing.T) {
	p := NewPlayer("carol", "carol@example.com", "hash")
	p.Buildings = append(p.Buildings,
		PlayerBuilding{BuildingID: 1, Status: BuildStatusCompleted},
		PlayerBuilding{BuildingID: 2, Status: BuildStatusInProgress},
		PlayerBuilding{BuildingID: 3, Status: BuildStatusFailed},
	)

	assert.True(t, p.HasCompletedBuilding(1))
	assert.False(t, p.HasCompletedBuilding(2))
	assert.False(t, p.HasCompletedBuilding(3))
	assert.False(t, p.HasCompletedBuilding(4))
}

func TestSnapshotHidesInternals(t *testing.T) {
	now := time.Now().UTC()
	p := NewPlayer("dave", "dave@example.com", "secret-hash")
	p.Version = 7
	p.Buildings = append(p.Buildings, PlayerBuilding{
		BuildingID: 1,
		Status:     BuildStatusInProgress,
		StartedAt:  now,
		FinishEta:  now.Add(time.Minute),
		TaskID:     "task-id-must-not-leak",
	})

	snap := p.Snapshot()
	require.Len(t, snap.Buildings, 1)
	assert.Equal(t, 1, snap.Buildings[0].BuildingID)
	assert.Equal(t, BuildStatusInProgress, snap.Buildings[0].Status)
	assert.Equal(t, p.ID, snap.ID)
	assert.Equal(t, p.Resources, snap.Resources)
}
