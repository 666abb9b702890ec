package models

import (
	"errors"
	"fmt"
	"sort"
)

// EntityID represents a unique identifier for entities.
// It survives destroy/recreate cycles performed by undo and redo.
type EntityID uint64

// InvalidEntityID is never assigned to a live entity
const InvalidEntityID EntityID = 0

// IsValid reports whether the id can address an entity
func (id EntityID) IsValid() bool {
	return id != InvalidEntityID
}

// State is the lifecycle state of an entity.
// Entities only move forward through Constructed -> Initialized -> Active,
// except for Deactivate which steps back from Active to Initialized.
type State uint8

const (
	StateConstructed State = iota
	StateInitialized
	StateActive
)

func (s State) String() string {
	switch s {
	case StateConstructed:
		return "constructed"
	case StateInitialized:
		return "initialized"
	case StateActive:
		return "active"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Component represents a data container attached to an entity.
// TypeName must be stable across sessions, it is the tag used by the
// snapshot format to find the component factory.
type Component interface {
	TypeName() string
}

// Initializer is implemented by components that need a hook when the owning
// entity is initialized.
type Initializer interface {
	OnInit(*Entity) error
}

// Activator is implemented by components that react to activation.
type Activator interface {
	OnActivate(*Entity) error
	OnDeactivate(*Entity) error
}

// Entity is a named bag of components with a lifecycle state.
// It is not safe for concurrent use.
type Entity struct {
	id         EntityID
	name       string
	state      State
	components map[string]Component
}

// NewEntity creates a constructed entity with the given identity.
func NewEntity(id EntityID, name string) *Entity {
	return &Entity{
		id:         id,
		name:       name,
		state:      StateConstructed,
		components: make(map[string]Component),
	}
}

func (e *Entity) ID() EntityID { return e.id }
func (e *Entity) Name() string { return e.name }
func (e *Entity) State() State { return e.state }

// AddComponent attaches c. Only one component per type name is allowed.
func (e *Entity) AddComponent(c Component) error {
	if c == nil {
		return ErrNilComponent
	}
	name := c.TypeName()
	if _, exists := e.components[name]; exists {
		return fmt.Errorf("%w: %s", ErrComponentExists, name)
	}
	e.components[name] = c
	return nil
}

// GetComponent returns the component registered under typeName.
func (e *Entity) GetComponent(typeName string) (Component, bool) {
	c, ok := e.components[typeName]
	return c, ok
}

// ListComponents returns the component type names in sorted order.
func (e *Entity) ListComponents() []string {
	names := make([]string, 0, len(e.components))
	for name := range e.components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Components returns the attached components ordered by type name.
func (e *Entity) Components() []Component {
	names := e.ListComponents()
	out := make([]Component, len(names))
	for i, name := range names {
		out[i] = e.components[name]
	}
	return out
}

// Init moves a constructed entity to the initialized state.
func (e *Entity) Init() error {
	if e.state != StateConstructed {
		return fmt.Errorf("%w: init from %s", ErrInvalidTransition, e.state)
	}
	for _, c := range e.Components() {
		if i, ok := c.(Initializer); ok {
			if err := i.OnInit(e); err != nil {
				return fmt.Errorf("init component %s: %w", c.TypeName(), err)
			}
		}
	}
	e.state = StateInitialized
	return nil
}

// Activate moves an initialized entity to the active state.
func (e *Entity) Activate() error {
	if e.state != StateInitialized {
		return fmt.Errorf("%w: activate from %s", ErrInvalidTransition, e.state)
	}
	for _, c := range e.Components() {
		if a, ok := c.(Activator); ok {
			if err := a.OnActivate(e); err != nil {
				return fmt.Errorf("activate component %s: %w", c.TypeName(), err)
			}
		}
	}
	e.state = StateActive
	return nil
}

// Deactivate moves an active entity back to initialized. Every component
// is deactivated even if an earlier hook fails; hook errors are joined.
func (e *Entity) Deactivate() error {
	if e.state != StateActive {
		return fmt.Errorf("%w: deactivate from %s", ErrInvalidTransition, e.state)
	}
	var errs error
	for _, c := range e.Components() {
		if a, ok := c.(Activator); ok {
			if err := a.OnDeactivate(e); err != nil {
				errs = errors.Join(errs, fmt.Errorf("deactivate component %s: %w", c.TypeName(), err))
			}
		}
	}
	e.state = StateInitialized
	return errs
}
