// Package registry holds the live entities of an editing session, keyed by
// identity, and drives their lifecycle transitions.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/zeusync/entityundo/internal/core/events/bus"
	"github.com/zeusync/entityundo/internal/core/models"
	"github.com/zeusync/entityundo/internal/core/observability/log"
)

var (
	ErrEntityExists   = errors.New("entity already registered")
	ErrEntityNotFound = errors.New("entity not found")
	ErrInvalidEntity  = errors.New("invalid entity")
)

type Registry struct {
	mu       sync.RWMutex
	entities map[models.EntityID]*models.Entity
	lastID   models.EntityID
	events   bus.EventBus
	logger   log.Log
}

func New(events bus.EventBus, logger log.Log) *Registry {
	return &Registry{
		entities: make(map[models.EntityID]*models.Entity),
		events:   events,
		logger:   logger,
	}
}

// NewEntity allocates a fresh identity and returns a constructed, not yet
// registered entity.
func (r *Registry) NewEntity(name string) *models.Entity {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastID++
	return models.NewEntity(r.lastID, name)
}

// Add registers a live entity under its identity.
func (r *Registry) Add(e *models.Entity) error {
	if e == nil || !e.ID().IsValid() {
		return ErrInvalidEntity
	}
	r.mu.Lock()
	if _, exists := r.entities[e.ID()]; exists {
		r.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrEntityExists, e.ID())
	}
	r.entities[e.ID()] = e
	// identities from snapshots must never be handed out again
	if e.ID() > r.lastID {
		r.lastID = e.ID()
	}
	r.mu.Unlock()

	r.logger.Debug("entity registered", log.EntityID(uint64(e.ID())), log.String("name", e.Name()))
	return r.events.Publish(bus.EntityRegistered{EntityID: uint64(e.ID())})
}

// FindByIdentity returns the live entity or nil.
func (r *Registry) FindByIdentity(id models.EntityID) *models.Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entities[id]
}

// DestroyByIdentity deactivates and removes the entity. Destroying an
// identity with no live entity is a no-op.
func (r *Registry) DestroyByIdentity(id models.EntityID) error {
	r.mu.Lock()
	e, ok := r.entities[id]
	if ok {
		delete(r.entities, id)
	}
	r.mu.Unlock()
	if !ok {
		return nil
	}

	var deactivateErr error
	if e.State() == models.StateActive {
		deactivateErr = e.Deactivate()
	}
	r.logger.Debug("entity destroyed", log.EntityID(uint64(id)))
	return errors.Join(deactivateErr, r.events.Publish(bus.EntityDestroyed{EntityID: uint64(id)}))
}

// GetState returns the lifecycle state of a live entity.
func (r *Registry) GetState(id models.EntityID) (models.State, error) {
	e := r.FindByIdentity(id)
	if e == nil {
		return models.StateConstructed, fmt.Errorf("%w: %d", ErrEntityNotFound, id)
	}
	return e.State(), nil
}

// InitializeFromConstructed initializes a constructed entity. Entities
// already past construction are left alone.
func (r *Registry) InitializeFromConstructed(id models.EntityID) error {
	e := r.FindByIdentity(id)
	if e == nil {
		return fmt.Errorf("%w: %d", ErrEntityNotFound, id)
	}
	if e.State() != models.StateConstructed {
		return nil
	}
	return e.Init()
}

// ActivateFromInitialized activates an initialized entity. Constructed or
// already active entities are left alone.
func (r *Registry) ActivateFromInitialized(id models.EntityID) error {
	e := r.FindByIdentity(id)
	if e == nil {
		return fmt.Errorf("%w: %d", ErrEntityNotFound, id)
	}
	if e.State() != models.StateInitialized {
		return nil
	}
	return e.Activate()
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entities)
}

// IDs lists live identities in ascending order.
func (r *Registry) IDs() []models.EntityID {
	r.mu.RLock()
	ids := make([]models.EntityID, 0, len(r.entities))
	for id := range r.entities {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
