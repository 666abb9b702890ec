// Package command implements undoable entity state commands. A command
// captures serialized snapshots of one entity and restores either of them by
// destroying the live entity and rebuilding it from the snapshot.
package command

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/zeusync/entityundo/internal/core/models"
	"github.com/zeusync/entityundo/internal/core/observability/log"
	"github.com/zeusync/entityundo/internal/core/serialization"
	"github.com/zeusync/entityundo/internal/core/slice"
)

const (
	LabelModify = "Entity Change"
	LabelDelete = "Delete Entity"
	LabelCreate = "Create Entity"
)

// Command is an entry on an undo stack.
type Command interface {
	ID() uuid.UUID
	Label() string
	Undo() error
	Redo() error
}

var (
	_ Command = (*StateCommand)(nil)
	_ Command = (*DeleteCommand)(nil)
	_ Command = (*CreateCommand)(nil)
)

// StateCommand records the state of one entity before and after a change.
// Both snapshots are kept for the life of the command so undo and redo can
// be repeated.
type StateCommand struct {
	id     uuid.UUID
	label  string
	deps   Deps
	logger log.Log

	entityID    models.EntityID
	contextID   uuid.UUID
	state       models.State
	selected    bool
	restoreInfo slice.RestoreInfo

	undoState []byte
	redoState []byte

	invalid bool
}

// NewStateCommand returns a modify command. Dependencies are checked on the
// first capture.
func NewStateCommand(id uuid.UUID, label string, deps Deps) *StateCommand {
	if label == "" {
		label = LabelModify
	}
	c := &StateCommand{
		id:    id,
		label: label,
		deps:  deps,
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	c.logger = logger.With(log.CommandID(id), log.String("label", label))
	return c
}

func (c *StateCommand) ID() uuid.UUID                  { return c.id }
func (c *StateCommand) Label() string                  { return c.label }
func (c *StateCommand) EntityID() models.EntityID      { return c.entityID }
func (c *StateCommand) ContextID() uuid.UUID           { return c.contextID }
func (c *StateCommand) CapturedState() models.State    { return c.state }
func (c *StateCommand) WasSelected() bool              { return c.selected }
func (c *StateCommand) RestoreInfo() slice.RestoreInfo { return c.restoreInfo }

// UndoState returns the pre-change snapshot, nil until captured.
func (c *StateCommand) UndoState() []byte { return c.undoState }

// RedoState returns the post-change snapshot, nil until captured.
func (c *StateCommand) RedoState() []byte { return c.redoState }

// Valid reports whether every capture so far succeeded.
func (c *StateCommand) Valid() bool { return !c.invalid }

// Capture records entity. With captureUndo the pre-change snapshot is taken
// from the snapshot cache, otherwise the post-change snapshot is serialized
// from the live entity.
//
// The undo snapshot may be captured once per command. A failed capture
// leaves the command invalid.
func (c *StateCommand) Capture(entity *models.Entity, captureUndo bool) error {
	if err := c.deps.validate(); err != nil {
		c.invalid = true
		return err
	}
	if entity == nil {
		return c.fail("capture", ErrNilEntity)
	}
	if captureUndo && len(c.undoState) > 0 {
		return fmt.Errorf("%w: entity %d", ErrUndoAlreadyCaptured, entity.ID())
	}

	id := entity.ID()
	c.entityID = id
	c.contextID = c.deps.Contexts.OwningContext(id)
	c.selected = c.deps.Selection.IsSelected(id)
	c.state = entity.State()

	if captureUndo {
		data, err := c.captureUndo(id)
		if err != nil {
			return c.fail("capture undo", err)
		}
		c.undoState = data
	} else {
		data, err := c.deps.Serializer.Serialize(entity)
		if err != nil {
			return c.fail("capture redo", fmt.Errorf("%w: %w", ErrSerialization, err))
		}
		if len(data) == 0 {
			return c.fail("capture redo", ErrEmptySnapshot)
		}
		c.redoState = data
	}

	c.restoreInfo = slice.RestoreInfo{}
	if _, ok := c.deps.Contexts.OwningSliceInstance(id); ok {
		info, ok := c.deps.Contexts.ExtractRestoreInfo(id)
		if !ok || !info.IsValid() {
			return c.fail("capture", fmt.Errorf("%w: entity %d", ErrSliceInfo, id))
		}
		c.restoreInfo = info
	}

	c.logger.Debug("entity captured",
		log.EntityID(uint64(id)),
		log.Bool("undo", captureUndo),
		log.String("state", c.state.String()),
		log.Bool("selected", c.selected),
		log.Bool("slice", c.restoreInfo.IsValid()),
	)
	return nil
}

// captureUndo reads the pre-change snapshot from the cache. A cache miss
// means the caller skipped the pre-mutation refresh, so the snapshot taken
// now may already contain the change.
func (c *StateCommand) captureUndo(id models.EntityID) ([]byte, error) {
	if data := c.deps.Cache.Retrieve(id); len(data) > 0 {
		return data, nil
	}
	if c.deps.StrictUndoCapture {
		return nil, fmt.Errorf("%w: entity %d", ErrUndoNotPrecached, id)
	}

	c.logger.Warn("undo snapshot not cached, serializing live entity", log.EntityID(uint64(id)))
	if err := c.deps.Cache.UpdateCache(id); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCacheRefresh, err)
	}
	data := c.deps.Cache.Retrieve(id)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: entity %d", ErrEmptySnapshot, id)
	}
	return data, nil
}

// RestoreEntity replaces the live entity with the one encoded in data and
// puts it back where it was: same context or slice instance, same lifecycle
// state and same selection.
func (c *StateCommand) RestoreEntity(data []byte) error {
	if c.invalid {
		return ErrInvalidCommand
	}
	if !c.entityID.IsValid() {
		return ErrNotCaptured
	}
	if len(data) == 0 {
		return c.restoreErr(ErrNoSnapshot)
	}
	id := c.entityID

	// hold the slice template so destroying its last member does not unload it
	if c.restoreInfo.IsValid() {
		handle, err := c.deps.Assets.Pin(c.restoreInfo.AssetID)
		if err != nil {
			return c.restoreErr(fmt.Errorf("pin slice asset: %w", err))
		}
		defer handle.Release()
	}

	selected := c.deps.Selection.Selected()

	if c.deps.Registry.FindByIdentity(id) != nil {
		if err := c.deps.Registry.DestroyByIdentity(id); err != nil {
			return c.abort(fmt.Errorf("destroy live entity: %w", err))
		}
	}

	entity, err := c.deps.Serializer.Deserialize(data, serialization.Options{SuppressAssetLoading: true})
	switch {
	case err != nil:
		return c.abort(fmt.Errorf("%w: %w", ErrDeserialization, err))
	case entity == nil:
		return c.abort(fmt.Errorf("%w: no entity in snapshot", ErrDeserialization))
	case entity.ID() != id:
		return c.abort(fmt.Errorf("%w: snapshot holds entity %d", ErrDeserialization, entity.ID()))
	}

	if err = c.reintegrate(entity); err != nil {
		return c.abort(errors.Join(
			fmt.Errorf("%w: %w", ErrReintegration, err),
			c.deps.Registry.DestroyByIdentity(id),
		))
	}

	if err = c.deps.Cache.UpdateCache(id); err != nil {
		return c.abort(fmt.Errorf("%w: %w", ErrCacheRefresh, err))
	}

	if c.selected {
		selected = append(selected, id)
	}
	if err = c.deps.Selection.SetSelected(selected); err != nil {
		return c.restoreErr(fmt.Errorf("restore selection: %w", err))
	}

	c.logger.Debug("entity restored", log.EntityID(uint64(id)), log.String("state", entity.State().String()))
	return nil
}

func (c *StateCommand) reintegrate(entity *models.Entity) error {
	if c.restoreInfo.IsValid() {
		return c.deps.Contexts.ReattachToSlice(entity, c.restoreInfo)
	}

	var err error
	if c.contextID != uuid.Nil {
		err = c.deps.Contexts.RegisterWithContext(c.contextID, entity)
	} else {
		err = c.deps.Registry.Add(entity)
	}
	if err != nil {
		return err
	}

	id := entity.ID()
	if c.state >= models.StateInitialized {
		if err = c.advance(id, models.StateConstructed, c.deps.Registry.InitializeFromConstructed); err != nil {
			return err
		}
	}
	if c.state == models.StateActive {
		return c.advance(id, models.StateInitialized, c.deps.Registry.ActivateFromInitialized)
	}
	return nil
}

func (c *StateCommand) advance(id models.EntityID, from models.State, step func(models.EntityID) error) error {
	current, err := c.deps.Registry.GetState(id)
	if err != nil {
		return err
	}
	if current != from {
		return nil
	}
	return step(id)
}

// Undo restores the pre-change snapshot.
func (c *StateCommand) Undo() error {
	return c.RestoreEntity(c.undoState)
}

// Redo restores the post-change snapshot.
func (c *StateCommand) Redo() error {
	return c.RestoreEntity(c.redoState)
}

func (c *StateCommand) fail(op string, err error) error {
	c.invalid = true
	c.logger.Error(op+" failed", log.EntityID(uint64(c.entityID)), log.Error(err))
	return err
}

// abort fails a restore that already destroyed the live entity. The cache
// entry goes with it so the identity does not resolve to stale bytes.
func (c *StateCommand) abort(err error) error {
	c.deps.Cache.PurgeCache(c.entityID)
	return c.restoreErr(err)
}

func (c *StateCommand) restoreErr(err error) error {
	c.logger.Error("restore failed", log.EntityID(uint64(c.entityID)), log.Error(err))
	return err
}

// destroy removes the live entity and its cache entry.
func (c *StateCommand) destroy() error {
	if c.invalid {
		return ErrInvalidCommand
	}
	if !c.entityID.IsValid() {
		return ErrNotCaptured
	}
	err := c.deps.Registry.DestroyByIdentity(c.entityID)
	c.deps.Cache.PurgeCache(c.entityID)
	if err != nil {
		c.logger.Error("destroy failed", log.EntityID(uint64(c.entityID)), log.Error(err))
		return err
	}
	c.logger.Debug("entity destroyed", log.EntityID(uint64(c.entityID)))
	return nil
}
