package serialization

import (
	"fmt"
	"sort"
	"sync"

	"github.com/zeusync/entityundo/internal/core/models"
)

// ComponentFactory returns a zero value of a component, ready to be decoded into.
type ComponentFactory func() models.Component

// TypeRegistry maps stable component type tags to factories.
type TypeRegistry struct {
	mu        sync.RWMutex
	factories map[string]ComponentFactory
}

func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{factories: make(map[string]ComponentFactory)}
}

// Register binds tag to factory. The tag must match the TypeName of the
// components the factory creates.
func (r *TypeRegistry) Register(tag string, factory ComponentFactory) error {
	if tag == "" || factory == nil {
		return fmt.Errorf("%w: empty tag or nil factory", ErrInvalidRegistration)
	}
	if got := factory().TypeName(); got != tag {
		return fmt.Errorf("%w: factory for %q builds %q", ErrInvalidRegistration, tag, got)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[tag]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateType, tag)
	}
	r.factories[tag] = factory
	return nil
}

// RegisterType registers *T under its own TypeName.
func RegisterType[T any, PT interface {
	*T
	models.Component
}](r *TypeRegistry) error {
	factory := func() models.Component { return PT(new(T)) }
	return r.Register(factory().TypeName(), factory)
}

// MustRegisterType is RegisterType for package init code.
func MustRegisterType[T any, PT interface {
	*T
	models.Component
}](r *TypeRegistry) {
	if err := RegisterType[T, PT](r); err != nil {
		panic(err)
	}
}

func (r *TypeRegistry) Lookup(tag string) (ComponentFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[tag]
	return f, ok
}

// Tags lists the registered type tags, sorted.
func (r *TypeRegistry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.factories))
	for tag := range r.factories {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
