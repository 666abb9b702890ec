package command_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zeusync/entityundo/internal/core/assets"
	"github.com/zeusync/entityundo/internal/core/command"
	"github.com/zeusync/entityundo/internal/core/components"
	"github.com/zeusync/entityundo/internal/core/entitycontext"
	"github.com/zeusync/entityundo/internal/core/events/bus"
	"github.com/zeusync/entityundo/internal/core/models"
	"github.com/zeusync/entityundo/internal/core/observability/log"
	"github.com/zeusync/entityundo/internal/core/registry"
	"github.com/zeusync/entityundo/internal/core/selection"
	"github.com/zeusync/entityundo/internal/core/serialization"
	"github.com/zeusync/entityundo/internal/core/slice"
	"github.com/zeusync/entityundo/internal/core/snapshotcache"
)

type fixture struct {
	reg       *registry.Registry
	assets    *assets.Manager
	contexts  *entitycontext.Manager
	selection *selection.Service
	ser       *serialization.CBORSerializer
	cache     *snapshotcache.Cache
	logs      *observer.ObservedLogs
	deps      command.Deps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	logger := log.NewWithCore(core)

	events := bus.New()
	reg := registry.New(events, logger)
	mgr := assets.NewManager(logger)
	contexts, err := entitycontext.NewManager(reg, slice.NewRoot(mgr, logger), events, logger)
	require.NoError(t, err)
	sel, err := selection.New(events)
	require.NoError(t, err)

	types := serialization.NewTypeRegistry()
	require.NoError(t, components.Register(types))
	ser, err := serialization.NewCBORSerializer(types, mgr)
	require.NoError(t, err)
	cache := snapshotcache.New(ser, reg, nil, logger)

	return &fixture{
		reg:       reg,
		assets:    mgr,
		contexts:  contexts,
		selection: sel,
		ser:       ser,
		cache:     cache,
		logs:      logs,
		deps: command.Deps{
			Serializer: ser,
			Registry:   reg,
			Contexts:   contexts,
			Assets:     mgr,
			Selection:  sel,
			Cache:      cache,
			Logger:     logger,
		},
	}
}

// spawn registers an active entity with a transform and a rigid body in the
// editor context.
func (f *fixture) spawn(t *testing.T, id models.EntityID, x float64) *models.Entity {
	t.Helper()
	e := models.NewEntity(id, "crate")
	require.NoError(t, e.AddComponent(components.NewTransform(x, 0, 0)))
	require.NoError(t, e.AddComponent(&components.RigidBody{Mass: 4}))
	require.NoError(t, f.contexts.RegisterWithContext(f.contexts.EditorContext(), e))
	require.NoError(t, f.reg.InitializeFromConstructed(id))
	require.NoError(t, f.reg.ActivateFromInitialized(id))
	return e
}

func (f *fixture) live(t *testing.T, id models.EntityID) *models.Entity {
	t.Helper()
	e := f.reg.FindByIdentity(id)
	require.NotNil(t, e, "entity %d is not live", id)
	return e
}

func (f *fixture) positionX(t *testing.T, id models.EntityID) float64 {
	t.Helper()
	c, ok := f.live(t, id).GetComponent(components.TransformType)
	require.True(t, ok)
	return c.(*components.Transform).Position.X
}

func (f *fixture) serialize(t *testing.T, id models.EntityID) []byte {
	t.Helper()
	data, err := f.ser.Serialize(f.live(t, id))
	require.NoError(t, err)
	return data
}

func setX(t *testing.T, e *models.Entity, x float64) {
	t.Helper()
	c, ok := e.GetComponent(components.TransformType)
	require.True(t, ok)
	c.(*components.Transform).Position.X = x
}

func TestStateCommand_UndoRedoActiveSelectedEntity(t *testing.T) {
	f := newFixture(t)
	e := f.spawn(t, 7, 1)
	require.NoError(t, f.selection.SetSelected([]models.EntityID{7}))
	require.NoError(t, f.cache.UpdateCache(7))

	cmd := command.NewStateCommand(uuid.New(), "", f.deps)
	require.NoError(t, cmd.Capture(e, true))
	setX(t, e, 99)
	require.NoError(t, cmd.Capture(e, false))

	assert.Equal(t, command.LabelModify, cmd.Label())
	assert.Equal(t, models.EntityID(7), cmd.EntityID())
	assert.Equal(t, models.StateActive, cmd.CapturedState())
	assert.True(t, cmd.WasSelected())
	assert.Equal(t, f.contexts.EditorContext(), cmd.ContextID())

	require.NoError(t, cmd.Undo())
	assert.Equal(t, 1.0, f.positionX(t, 7))
	assert.Equal(t, models.StateActive, f.live(t, 7).State())
	assert.Contains(t, f.selection.Selected(), models.EntityID(7))
	assert.Equal(t, f.contexts.EditorContext(), f.contexts.OwningContext(7))
	body, ok := f.live(t, 7).GetComponent(components.RigidBodyType)
	require.True(t, ok)
	assert.True(t, body.(*components.RigidBody).Simulating())

	require.NoError(t, cmd.Redo())
	assert.Equal(t, 99.0, f.positionX(t, 7))
	assert.Equal(t, []models.EntityID{7}, f.selection.Selected())
}

func TestStateCommand_RoundTrip(t *testing.T) {
	f := newFixture(t)
	e := f.spawn(t, 3, 5)
	original := f.serialize(t, 3)

	cmd := command.NewStateCommand(uuid.New(), "Move", f.deps)
	require.NoError(t, cmd.Capture(e, false))
	assert.Equal(t, original, cmd.RedoState())

	require.NoError(t, cmd.RestoreEntity(cmd.RedoState()))
	assert.Equal(t, original, f.serialize(t, 3))
	assert.NotSame(t, e, f.live(t, 3), "restore rebuilds the entity")
}

func TestStateCommand_CacheCoherentAfterRestore(t *testing.T) {
	f := newFixture(t)
	e := f.spawn(t, 4, 1)
	require.NoError(t, f.cache.UpdateCache(4))

	cmd := command.NewStateCommand(uuid.New(), "", f.deps)
	require.NoError(t, cmd.Capture(e, true))
	setX(t, e, 2)
	require.NoError(t, cmd.Capture(e, false))

	require.NoError(t, cmd.Undo())
	assert.Equal(t, f.serialize(t, 4), f.cache.Retrieve(4))
	assert.Equal(t, cmd.UndoState(), f.cache.Retrieve(4))

	require.NoError(t, cmd.Redo())
	assert.Equal(t, f.serialize(t, 4), f.cache.Retrieve(4))
	assert.Equal(t, cmd.RedoState(), f.cache.Retrieve(4))
}

func TestStateCommand_UndoRedoSymmetry(t *testing.T) {
	f := newFixture(t)
	e := f.spawn(t, 5, 1)
	require.NoError(t, f.cache.UpdateCache(5))

	cmd := command.NewStateCommand(uuid.New(), "", f.deps)
	require.NoError(t, cmd.Capture(e, true))
	setX(t, e, 8)
	require.NoError(t, cmd.Capture(e, false))

	before := f.serialize(t, 5)
	for i := 0; i < 3; i++ {
		require.NoError(t, cmd.Undo())
		require.NoError(t, cmd.Redo())
		assert.Equal(t, before, f.serialize(t, 5))
	}
}

func TestStateCommand_UnselectedEntityIsNeverSelected(t *testing.T) {
	f := newFixture(t)
	e := f.spawn(t, 6, 1)
	f.spawn(t, 9, 1)
	require.NoError(t, f.selection.SetSelected([]models.EntityID{9}))
	require.NoError(t, f.cache.UpdateCache(6))

	cmd := command.NewStateCommand(uuid.New(), "", f.deps)
	require.NoError(t, cmd.Capture(e, true))
	setX(t, e, 3)
	require.NoError(t, cmd.Capture(e, false))
	assert.False(t, cmd.WasSelected())

	require.NoError(t, cmd.Undo())
	assert.Equal(t, []models.EntityID{9}, f.selection.Selected())
	require.NoError(t, cmd.Redo())
	assert.Equal(t, []models.EntityID{9}, f.selection.Selected())
}

func TestStateCommand_RestoresRecordedLifecycle(t *testing.T) {
	f := newFixture(t)

	initialized := models.NewEntity(20, "init-only")
	require.NoError(t, initialized.AddComponent(&components.RigidBody{Mass: 1}))
	require.NoError(t, f.contexts.RegisterWithContext(f.contexts.EditorContext(), initialized))
	require.NoError(t, f.reg.InitializeFromConstructed(20))

	free := models.NewEntity(21, "free")
	require.NoError(t, free.AddComponent(components.NewTransform(0, 0, 0)))
	require.NoError(t, f.reg.Add(free))

	initCmd := command.NewStateCommand(uuid.New(), "", f.deps)
	require.NoError(t, initCmd.Capture(initialized, false))
	require.NoError(t, initCmd.Redo())
	assert.Equal(t, models.StateInitialized, f.live(t, 20).State())

	freeCmd := command.NewStateCommand(uuid.New(), "", f.deps)
	require.NoError(t, freeCmd.Capture(free, false))
	assert.Equal(t, uuid.Nil, freeCmd.ContextID())
	require.NoError(t, freeCmd.Redo())
	assert.Equal(t, models.StateConstructed, f.live(t, 21).State())
	assert.Equal(t, uuid.Nil, f.contexts.OwningContext(21))
}

func TestStateCommand_SliceEntityKeepsTemplateLoaded(t *testing.T) {
	f := newFixture(t)
	assetID := uuid.New()
	require.NoError(t, f.assets.Register(assetID, "tower.slice"))
	root := f.contexts.SliceRoot()
	instanceID := root.NewInstance(assetID)

	e := models.NewEntity(30, "tower-door")
	require.NoError(t, e.AddComponent(components.NewTransform(1, 0, 0)))
	require.NoError(t, f.contexts.AddSliceEntity(instanceID, e, 4))
	require.Equal(t, 1, f.assets.LoadCount(assetID))
	require.NoError(t, f.cache.UpdateCache(30))

	cmd := command.NewStateCommand(uuid.New(), "", f.deps)
	require.NoError(t, cmd.Capture(e, true))
	setX(t, e, 12)
	require.NoError(t, cmd.Capture(e, false))

	info := cmd.RestoreInfo()
	assert.True(t, info.IsValid())
	assert.Equal(t, instanceID, info.InstanceID)
	assert.Equal(t, models.EntityID(4), info.AncestorID)

	require.NoError(t, cmd.Undo())
	require.NoError(t, cmd.Redo())
	require.NoError(t, cmd.Undo())

	assert.Equal(t, 1.0, f.positionX(t, 30))
	assert.Equal(t, models.StateActive, f.live(t, 30).State())
	assert.Equal(t, 1, f.assets.LoadCount(assetID), "template never reloads")
	assert.Equal(t, 1, f.assets.RefCount(assetID), "only the instance holds the template")

	inst, ok := f.contexts.OwningSliceInstance(30)
	require.True(t, ok)
	assert.Equal(t, instanceID, inst.ID)
}

func TestStateCommand_CacheMissFallsBackWithWarning(t *testing.T) {
	f := newFixture(t)
	e := f.spawn(t, 7, 1)

	cmd := command.NewStateCommand(uuid.New(), "", f.deps)
	require.NoError(t, cmd.Capture(e, true))
	assert.NotEmpty(t, cmd.UndoState())
	assert.Equal(t, 1, f.logs.FilterMessage("undo snapshot not cached, serializing live entity").Len())
}

func TestStateCommand_StrictCaptureRequiresCachedSnapshot(t *testing.T) {
	f := newFixture(t)
	e := f.spawn(t, 7, 1)
	deps := f.deps
	deps.StrictUndoCapture = true

	cmd := command.NewStateCommand(uuid.New(), "", deps)
	err := cmd.Capture(e, true)
	assert.ErrorIs(t, err, command.ErrUndoNotPrecached)
	assert.False(t, cmd.Valid())
	assert.ErrorIs(t, cmd.Undo(), command.ErrInvalidCommand)
	assert.Same(t, e, f.live(t, 7), "invalid command leaves the live entity alone")

	require.NoError(t, f.cache.UpdateCache(7))
	strict := command.NewStateCommand(uuid.New(), "", deps)
	require.NoError(t, strict.Capture(e, true))
	assert.True(t, strict.Valid())
}

func TestStateCommand_CapturePreconditions(t *testing.T) {
	f := newFixture(t)
	e := f.spawn(t, 7, 1)
	require.NoError(t, f.cache.UpdateCache(7))

	cmd := command.NewStateCommand(uuid.New(), "", f.deps)
	require.NoError(t, cmd.Capture(e, true))
	assert.ErrorIs(t, cmd.Capture(e, true), command.ErrUndoAlreadyCaptured)
	assert.True(t, cmd.Valid())

	nilCmd := command.NewStateCommand(uuid.New(), "", f.deps)
	assert.ErrorIs(t, nilCmd.Capture(nil, false), command.ErrNilEntity)
	assert.False(t, nilCmd.Valid())

	deps := f.deps
	deps.Cache = nil
	missing := command.NewStateCommand(uuid.New(), "", deps)
	assert.ErrorIs(t, missing.Capture(e, true), command.ErrMissingDependency)
	assert.False(t, missing.Valid())

	fresh := command.NewStateCommand(uuid.New(), "", f.deps)
	assert.ErrorIs(t, fresh.Undo(), command.ErrNotCaptured)
}

func TestStateCommand_RedoWithoutSnapshot(t *testing.T) {
	f := newFixture(t)
	e := f.spawn(t, 7, 1)
	require.NoError(t, f.cache.UpdateCache(7))

	cmd := command.NewStateCommand(uuid.New(), "", f.deps)
	require.NoError(t, cmd.Capture(e, true))
	assert.ErrorIs(t, cmd.Redo(), command.ErrNoSnapshot)
	assert.Same(t, e, f.live(t, 7))
}

type failingSerializer struct {
	command.Serializer
	serializeErr   error
	deserializeErr error
}

func (s *failingSerializer) Serialize(e *models.Entity) ([]byte, error) {
	if s.serializeErr != nil {
		return nil, s.serializeErr
	}
	return s.Serializer.Serialize(e)
}

func (s *failingSerializer) Deserialize(data []byte, opts serialization.Options) (*models.Entity, error) {
	if s.deserializeErr != nil {
		return nil, s.deserializeErr
	}
	return s.Serializer.Deserialize(data, opts)
}

func TestStateCommand_SerializationFailureInvalidates(t *testing.T) {
	f := newFixture(t)
	e := f.spawn(t, 7, 1)
	deps := f.deps
	deps.Serializer = &failingSerializer{Serializer: f.ser, serializeErr: errors.New("disk full")}

	cmd := command.NewStateCommand(uuid.New(), "", deps)
	assert.ErrorIs(t, cmd.Capture(e, false), command.ErrSerialization)
	assert.False(t, cmd.Valid())
	assert.Positive(t, f.logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

func TestStateCommand_DeserializationFailureLeavesNoEntity(t *testing.T) {
	f := newFixture(t)
	e := f.spawn(t, 7, 1)
	require.NoError(t, f.cache.UpdateCache(7))
	ser := &failingSerializer{Serializer: f.ser}
	deps := f.deps
	deps.Serializer = ser

	cmd := command.NewStateCommand(uuid.New(), "", deps)
	require.NoError(t, cmd.Capture(e, true))

	ser.deserializeErr = errors.New("truncated")
	assert.ErrorIs(t, cmd.Undo(), command.ErrDeserialization)
	assert.Nil(t, f.reg.FindByIdentity(7))
	assert.Nil(t, f.cache.Retrieve(7), "destroyed identity keeps no cached bytes")
}

type failingContexts struct {
	*entitycontext.Manager
}

// RegisterWithContext registers the entity and then reports a failure, so
// the command has a half-integrated entity to clean up.
func (c failingContexts) RegisterWithContext(ctxID uuid.UUID, e *models.Entity) error {
	if err := c.Manager.RegisterWithContext(ctxID, e); err != nil {
		return err
	}
	return errors.New("context rejected entity")
}

func TestStateCommand_ReintegrationFailureLeavesNoEntity(t *testing.T) {
	f := newFixture(t)
	e := f.spawn(t, 7, 1)
	require.NoError(t, f.cache.UpdateCache(7))
	deps := f.deps
	deps.Contexts = failingContexts{Manager: f.contexts}

	cmd := command.NewStateCommand(uuid.New(), "", deps)
	require.NoError(t, cmd.Capture(e, false))
	assert.ErrorIs(t, cmd.Redo(), command.ErrReintegration)
	assert.Nil(t, f.reg.FindByIdentity(7))
	assert.Equal(t, 0, f.reg.Len())
	assert.Nil(t, f.cache.Retrieve(7))
}

type failingRegistry struct {
	*registry.Registry
	destroyErr error
}

// DestroyByIdentity removes the entity and then reports a failure, the way a
// failing deactivation hook does.
func (r failingRegistry) DestroyByIdentity(id models.EntityID) error {
	if err := r.Registry.DestroyByIdentity(id); err != nil {
		return err
	}
	return r.destroyErr
}

func TestStateCommand_DestroyFailurePurgesCache(t *testing.T) {
	f := newFixture(t)
	e := f.spawn(t, 7, 1)
	require.NoError(t, f.cache.UpdateCache(7))
	deps := f.deps
	deps.Registry = failingRegistry{Registry: f.reg, destroyErr: errors.New("hook failed")}

	cmd := command.NewStateCommand(uuid.New(), "", deps)
	require.NoError(t, cmd.Capture(e, true))
	assert.Error(t, cmd.Undo())
	assert.Nil(t, f.reg.FindByIdentity(7))
	assert.Nil(t, f.cache.Retrieve(7))
}

func TestDeleteCommand_UndoRedo(t *testing.T) {
	f := newFixture(t)
	e := f.spawn(t, 7, 2)
	require.NoError(t, f.selection.SetSelected([]models.EntityID{7}))
	// stale entry from an earlier edit
	require.NoError(t, f.cache.UpdateCache(7))
	setX(t, e, 6)

	cmd := command.NewDeleteCommand(uuid.New(), f.deps)
	require.NoError(t, cmd.Capture(e))
	assert.Equal(t, command.LabelDelete, cmd.Label())
	require.NoError(t, f.reg.DestroyByIdentity(7))
	f.cache.PurgeCache(7)
	assert.Empty(t, f.selection.Selected())

	require.NoError(t, cmd.Undo())
	assert.Equal(t, 6.0, f.positionX(t, 7), "undo restores the pre-delete state, not the stale cache")
	assert.Equal(t, models.StateActive, f.live(t, 7).State())
	assert.Equal(t, []models.EntityID{7}, f.selection.Selected())

	require.NoError(t, cmd.Redo())
	assert.Nil(t, f.reg.FindByIdentity(7))
	assert.Nil(t, f.cache.Retrieve(7))
	assert.Empty(t, f.selection.Selected())

	require.NoError(t, cmd.Undo())
	assert.Equal(t, 6.0, f.positionX(t, 7))
}

func TestCreateCommand_UndoRedo(t *testing.T) {
	f := newFixture(t)
	e := f.spawn(t, 12, 4)
	require.NoError(t, f.cache.UpdateCache(12))

	cmd := command.NewCreateCommand(uuid.New(), f.deps)
	require.NoError(t, cmd.Capture(e))
	assert.Equal(t, command.LabelCreate, cmd.Label())
	assert.True(t, cmd.WasSelected())
	assert.Empty(t, cmd.UndoState())
	snapshot := cmd.RedoState()

	require.NoError(t, cmd.Undo())
	assert.Nil(t, f.reg.FindByIdentity(12))
	assert.Nil(t, f.cache.Retrieve(12))

	require.NoError(t, cmd.Redo())
	assert.Equal(t, snapshot, f.serialize(t, 12))
	assert.Equal(t, []models.EntityID{12}, f.selection.Selected())
	assert.Equal(t, models.StateActive, f.live(t, 12).State())

	require.NoError(t, cmd.Undo())
	assert.Nil(t, f.reg.FindByIdentity(12))
	assert.Nil(t, f.cache.Retrieve(12))
	assert.Empty(t, f.selection.Selected())
}

func TestCreateCommand_NilEntity(t *testing.T) {
	f := newFixture(t)
	cmd := command.NewCreateCommand(uuid.New(), f.deps)
	assert.ErrorIs(t, cmd.Capture(nil), command.ErrNilEntity)
	assert.False(t, cmd.Valid())
	assert.ErrorIs(t, cmd.Undo(), command.ErrInvalidCommand)
}
