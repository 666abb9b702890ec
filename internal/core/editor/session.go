// Package editor ties the entity collaborators, the snapshot cache and the
// undo history into one editing session. Everything a session owns is
// released by Close.
package editor

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/zeusync/entityundo/internal/config"
	"github.com/zeusync/entityundo/internal/core/assets"
	"github.com/zeusync/entityundo/internal/core/command"
	"github.com/zeusync/entityundo/internal/core/entitycontext"
	"github.com/zeusync/entityundo/internal/core/events/bus"
	"github.com/zeusync/entityundo/internal/core/models"
	"github.com/zeusync/entityundo/internal/core/observability/log"
	"github.com/zeusync/entityundo/internal/core/registry"
	"github.com/zeusync/entityundo/internal/core/selection"
	"github.com/zeusync/entityundo/internal/core/serialization"
	"github.com/zeusync/entityundo/internal/core/snapshotcache"
	"github.com/zeusync/entityundo/internal/core/undo"
)

var ErrSessionClosed = errors.New("editor session closed")

type Session struct {
	cfg    *config.Config
	logger log.Log

	events     bus.EventBus
	registry   *registry.Registry
	assets     *assets.Manager
	contexts   *entitycontext.Manager
	selection  *selection.Service
	serializer *serialization.CBORSerializer
	cache      *snapshotcache.Cache
	history    *undo.Stack

	deps   command.Deps
	closed bool
}

func New(
	cfg *config.Config,
	logger log.Log,
	events bus.EventBus,
	reg *registry.Registry,
	assetManager *assets.Manager,
	contexts *entitycontext.Manager,
	sel *selection.Service,
	serializer *serialization.CBORSerializer,
	cache *snapshotcache.Cache,
	history *undo.Stack,
) *Session {
	s := &Session{
		cfg:        cfg,
		logger:     logger,
		events:     events,
		registry:   reg,
		assets:     assetManager,
		contexts:   contexts,
		selection:  sel,
		serializer: serializer,
		cache:      cache,
		history:    history,
	}
	s.deps = command.Deps{
		Serializer:        serializer,
		Registry:          reg,
		Contexts:          contexts,
		Assets:            assetManager,
		Selection:         sel,
		Cache:             cache,
		Logger:            logger,
		StrictUndoCapture: cfg.Commands.StrictUndoCapture,
	}
	logger.Info("editor session started",
		log.Bool("strict_undo_capture", cfg.Commands.StrictUndoCapture),
		log.Int("undo_limit", cfg.Undo.Limit),
	)
	return s
}

func (s *Session) Events() bus.EventBus                      { return s.events }
func (s *Session) Registry() *registry.Registry              { return s.registry }
func (s *Session) Assets() *assets.Manager                   { return s.assets }
func (s *Session) Contexts() *entitycontext.Manager          { return s.contexts }
func (s *Session) Selection() *selection.Service             { return s.selection }
func (s *Session) Serializer() *serialization.CBORSerializer { return s.serializer }
func (s *Session) Cache() *snapshotcache.Cache               { return s.cache }
func (s *Session) History() *undo.Stack                      { return s.history }

func (s *Session) NewModifyCommand(label string) *command.StateCommand {
	return command.NewStateCommand(uuid.New(), label, s.deps)
}

func (s *Session) NewDeleteCommand() *command.DeleteCommand {
	return command.NewDeleteCommand(uuid.New(), s.deps)
}

func (s *Session) NewCreateCommand() *command.CreateCommand {
	return command.NewCreateCommand(uuid.New(), s.deps)
}

// CreateEntity builds a new entity, registers it with ctxID (uuid.Nil for a
// free entity), selects it and records the creation.
func (s *Session) CreateEntity(name string, ctxID uuid.UUID, build func(*models.Entity) error) (*models.Entity, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	e := s.registry.NewEntity(name)
	if build != nil {
		if err := build(e); err != nil {
			return nil, fmt.Errorf("build entity %q: %w", name, err)
		}
	}

	var err error
	if ctxID == uuid.Nil {
		err = s.registry.Add(e)
	} else {
		err = s.contexts.RegisterWithContext(ctxID, e)
	}
	if err != nil {
		return nil, err
	}

	cmd := s.NewCreateCommand()
	err = s.activate(e.ID())
	if err == nil {
		err = s.cache.UpdateCache(e.ID())
	}
	if err == nil {
		err = s.selection.SetSelected([]models.EntityID{e.ID()})
	}
	if err == nil {
		err = cmd.Capture(e)
	}
	if err == nil {
		err = s.history.Push(cmd)
	}
	if err != nil {
		return nil, errors.Join(err, s.discard(e.ID()))
	}

	s.logger.Debug("entity created", log.EntityID(uint64(e.ID())), log.String("name", name))
	return e, nil
}

// ModifyEntity applies mutate to a live entity and records the change. The
// cache is refreshed before mutate runs so the undo snapshot is the
// pre-change state. A failing mutate is rolled back.
func (s *Session) ModifyEntity(id models.EntityID, mutate func(*models.Entity) error) error {
	if s.closed {
		return ErrSessionClosed
	}
	e := s.registry.FindByIdentity(id)
	if e == nil {
		return fmt.Errorf("%w: %d", registry.ErrEntityNotFound, id)
	}
	if err := s.cache.UpdateCache(id); err != nil {
		return err
	}

	cmd := s.NewModifyCommand(command.LabelModify)
	if err := cmd.Capture(e, true); err != nil {
		return err
	}
	if err := mutate(e); err != nil {
		return errors.Join(fmt.Errorf("modify entity %d: %w", id, err), cmd.Undo())
	}
	if err := cmd.Capture(e, false); err != nil {
		return errors.Join(err, s.cache.UpdateCache(id))
	}
	if err := s.cache.UpdateCache(id); err != nil {
		return err
	}
	return s.history.Push(cmd)
}

// DeleteEntity destroys a live entity and records the deletion.
func (s *Session) DeleteEntity(id models.EntityID) error {
	if s.closed {
		return ErrSessionClosed
	}
	e := s.registry.FindByIdentity(id)
	if e == nil {
		return fmt.Errorf("%w: %d", registry.ErrEntityNotFound, id)
	}

	cmd := s.NewDeleteCommand()
	if err := cmd.Capture(e); err != nil {
		return err
	}
	if err := s.discard(id); err != nil {
		return err
	}
	s.logger.Debug("entity deleted", log.EntityID(uint64(id)))
	return s.history.Push(cmd)
}

func (s *Session) Undo() error {
	if s.closed {
		return ErrSessionClosed
	}
	return s.history.Undo()
}

func (s *Session) Redo() error {
	if s.closed {
		return ErrSessionClosed
	}
	return s.history.Redo()
}

// Close drops the history and the cache and detaches the collaborators from
// the event bus. Closing twice is a no-op.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.history.Clear()
	s.cache.Clear()
	err := errors.Join(s.selection.Close(), s.contexts.Close())
	s.logger.Info("editor session closed", log.Int("entities", s.registry.Len()))
	return err
}

func (s *Session) activate(id models.EntityID) error {
	if !s.cfg.Commands.ActivateNewEntities {
		return nil
	}
	if err := s.registry.InitializeFromConstructed(id); err != nil {
		return err
	}
	return s.registry.ActivateFromInitialized(id)
}

func (s *Session) discard(id models.EntityID) error {
	err := s.registry.DestroyByIdentity(id)
	s.cache.PurgeCache(id)
	return err
}
