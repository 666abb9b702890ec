// Package entitycontext groups live entities into owning contexts (the
// editor world, sub-levels, previews) and fronts the slice root for the
// editor context.
package entitycontext

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/zeusync/entityundo/internal/core/events/bus"
	"github.com/zeusync/entityundo/internal/core/models"
	"github.com/zeusync/entityundo/internal/core/observability/log"
	"github.com/zeusync/entityundo/internal/core/slice"
)

// ID identifies an owning context. uuid.Nil means "no context".
type ID = uuid.UUID

var (
	ErrContextNotFound = errors.New("entity context not found")
	ErrNilEntity       = errors.New("entity is nil")
)

// EntityAdder is the part of the entity registry a context needs.
type EntityAdder interface {
	Add(*models.Entity) error
}

type Context struct {
	ID   ID
	Name string
}

// Manager tracks which context owns which entity.
type Manager struct {
	mu       sync.RWMutex
	contexts map[ID]*Context
	owners   map[models.EntityID]ID
	editor   ID
	root     *slice.Root
	entities EntityAdder
	events   bus.EventBus
	sub      bus.Subscription
	logger   log.Log
}

// NewManager creates the manager with its editor context. Slice entities
// always live in the editor context.
func NewManager(entities EntityAdder, root *slice.Root, events bus.EventBus, logger log.Log) (*Manager, error) {
	m := &Manager{
		contexts: make(map[ID]*Context),
		owners:   make(map[models.EntityID]ID),
		root:     root,
		entities: entities,
		events:   events,
		logger:   logger,
	}
	m.editor = m.CreateContext("editor")

	sub, err := events.Subscribe(bus.TypeEntityDestroyed, m.onEntityDestroyed)
	if err != nil {
		return nil, err
	}
	m.sub = sub
	return m, nil
}

func (m *Manager) CreateContext(name string) ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.contexts[id] = &Context{ID: id, Name: name}
	return id
}

func (m *Manager) EditorContext() ID { return m.editor }

func (m *Manager) SliceRoot() *slice.Root { return m.root }

func (m *Manager) Context(id ID) (*Context, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.contexts[id]
	return c, ok
}

// RegisterWithContext adds the entity to the live registry as a member of ctxID.
func (m *Manager) RegisterWithContext(ctxID ID, e *models.Entity) error {
	if e == nil {
		return ErrNilEntity
	}
	if _, ok := m.Context(ctxID); !ok {
		return fmt.Errorf("%w: %s", ErrContextNotFound, ctxID)
	}
	if err := m.entities.Add(e); err != nil {
		return err
	}
	m.mu.Lock()
	m.owners[e.ID()] = ctxID
	m.mu.Unlock()
	return nil
}

// OwningContext returns uuid.Nil for entities that belong to no context.
func (m *Manager) OwningContext(id models.EntityID) ID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.owners[id]
}

func (m *Manager) OwningSliceInstance(id models.EntityID) (*slice.Instance, bool) {
	return m.root.OwningInstance(id)
}

func (m *Manager) ExtractRestoreInfo(id models.EntityID) (slice.RestoreInfo, bool) {
	return m.root.RestoreInfo(id)
}

// AddSliceEntity registers e in the editor context as a member of the slice
// instance and brings it up to the active state.
func (m *Manager) AddSliceEntity(instanceID slice.InstanceID, e *models.Entity, ancestorID models.EntityID) error {
	if e == nil {
		return ErrNilEntity
	}
	if err := m.RegisterWithContext(m.editor, e); err != nil {
		return err
	}
	if err := m.root.AddEntity(instanceID, e.ID(), ancestorID); err != nil {
		return err
	}
	return activate(e)
}

// ReattachToSlice re-links a restored entity to the slice instance described
// by info. Slice entities are always brought back active.
func (m *Manager) ReattachToSlice(e *models.Entity, info slice.RestoreInfo) error {
	if e == nil {
		return ErrNilEntity
	}
	if !info.IsValid() {
		return slice.ErrInvalidRestore
	}
	if err := m.RegisterWithContext(m.editor, e); err != nil {
		return err
	}
	if err := m.root.Reattach(e.ID(), info); err != nil {
		return err
	}
	m.logger.Debug("slice entity reattached",
		log.EntityID(uint64(e.ID())),
		log.String("instance_id", info.InstanceID.String()),
		log.Bool("override", info.IsOverride()),
	)
	return activate(e)
}

// Close stops listening for destroyed entities.
func (m *Manager) Close() error {
	return m.events.Unsubscribe(m.sub)
}

func (m *Manager) onEntityDestroyed(ev bus.Event) error {
	id := models.EntityID(ev.(bus.EntityDestroyed).EntityID)
	m.mu.Lock()
	delete(m.owners, id)
	m.mu.Unlock()
	m.root.Detach(id)
	return nil
}

func activate(e *models.Entity) error {
	if e.State() == models.StateConstructed {
		if err := e.Init(); err != nil {
			return err
		}
	}
	if e.State() == models.StateInitialized {
		return e.Activate()
	}
	return nil
}
