package bus

const (
	TypeEntityRegistered = "entity.registered"
	TypeEntityDestroyed  = "entity.destroyed"
	TypeSelectionChanged = "selection.changed"
)

// EntityRegistered is published when a live entity enters the registry.
type EntityRegistered struct {
	EntityID uint64
}

func (EntityRegistered) Type() string { return TypeEntityRegistered }

// EntityDestroyed is published after an entity left the registry.
type EntityDestroyed struct {
	EntityID uint64
}

func (EntityDestroyed) Type() string { return TypeEntityDestroyed }

// SelectionChanged carries the full new selection, in order.
type SelectionChanged struct {
	Selected []uint64
}

func (SelectionChanged) Type() string { return TypeSelectionChanged }
