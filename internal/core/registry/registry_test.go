package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeusync/entityundo/internal/core/components"
	"github.com/zeusync/entityundo/internal/core/events/bus"
	"github.com/zeusync/entityundo/internal/core/models"
	"github.com/zeusync/entityundo/internal/core/observability/log"
)

func TestRegistry_AddFindDestroy(t *testing.T) {
	events := bus.New()
	var destroyed []uint64
	_, err := events.Subscribe(bus.TypeEntityDestroyed, func(e bus.Event) error {
		destroyed = append(destroyed, e.(bus.EntityDestroyed).EntityID)
		return nil
	})
	require.NoError(t, err)

	r := New(events, log.NewNop())
	e := r.NewEntity("lamp")
	require.NoError(t, r.Add(e))
	assert.Same(t, e, r.FindByIdentity(e.ID()))
	assert.ErrorIs(t, r.Add(e), ErrEntityExists)

	require.NoError(t, r.DestroyByIdentity(e.ID()))
	assert.Nil(t, r.FindByIdentity(e.ID()))
	assert.Equal(t, []uint64{uint64(e.ID())}, destroyed)

	require.NoError(t, r.DestroyByIdentity(e.ID()), "destroying a missing entity is a no-op")
	assert.Len(t, destroyed, 1)
}

func TestRegistry_IdentityAllocationSkipsRestoredIDs(t *testing.T) {
	r := New(bus.New(), log.NewNop())
	require.NoError(t, r.Add(models.NewEntity(50, "restored")))

	next := r.NewEntity("fresh")
	assert.Equal(t, models.EntityID(51), next.ID())
	assert.ErrorIs(t, r.Add(nil), ErrInvalidEntity)
	assert.ErrorIs(t, r.Add(models.NewEntity(0, "bad")), ErrInvalidEntity)
}

func TestRegistry_Lifecycle(t *testing.T) {
	r := New(bus.New(), log.NewNop())
	e := r.NewEntity("body")
	body := &components.RigidBody{Mass: 3}
	require.NoError(t, e.AddComponent(body))
	require.NoError(t, r.Add(e))

	state, err := r.GetState(e.ID())
	require.NoError(t, err)
	assert.Equal(t, models.StateConstructed, state)

	require.NoError(t, r.ActivateFromInitialized(e.ID()), "constructed entity is left alone")
	assert.Equal(t, models.StateConstructed, e.State())

	require.NoError(t, r.InitializeFromConstructed(e.ID()))
	require.NoError(t, r.ActivateFromInitialized(e.ID()))
	assert.Equal(t, models.StateActive, e.State())
	assert.True(t, body.Simulating())

	require.NoError(t, r.InitializeFromConstructed(e.ID()), "forward only, no error past construction")
	assert.Equal(t, models.StateActive, e.State())

	require.NoError(t, r.DestroyByIdentity(e.ID()))
	assert.False(t, body.Simulating(), "destroy deactivates")

	_, err = r.GetState(e.ID())
	assert.ErrorIs(t, err, ErrEntityNotFound)
	assert.ErrorIs(t, r.InitializeFromConstructed(e.ID()), ErrEntityNotFound)
	assert.ErrorIs(t, r.ActivateFromInitialized(e.ID()), ErrEntityNotFound)
}

func TestRegistry_IDsSorted(t *testing.T) {
	r := New(bus.New(), log.NewNop())
	require.NoError(t, r.Add(models.NewEntity(9, "c")))
	require.NoError(t, r.Add(models.NewEntity(2, "a")))
	require.NoError(t, r.Add(models.NewEntity(5, "b")))
	assert.Equal(t, []models.EntityID{2, 5, 9}, r.IDs())
	assert.Equal(t, 3, r.Len())
}
