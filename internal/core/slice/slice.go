// Package slice tracks live slice instances: entities instantiated from a
// reusable template asset. An instance keeps its template asset pinned while
// it has at least one member.
package slice

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/zeusync/entityundo/internal/core/assets"
	"github.com/zeusync/entityundo/internal/core/models"
	"github.com/zeusync/entityundo/internal/core/observability/log"
)

var (
	ErrInstanceNotFound = errors.New("slice instance not found")
	ErrAlreadyMember    = errors.New("entity already belongs to a slice instance")
	ErrInvalidRestore   = errors.New("invalid slice restore info")
)

type InstanceID = uuid.UUID

// RestoreInfo is what an undo command needs to put an entity back into the
// slice instance it came from.
type RestoreInfo struct {
	AssetID    assets.ID
	InstanceID InstanceID
	// AncestorID is the template-local entity this one overrides.
	// Invalid for entities added to the instance after instantiation.
	AncestorID models.EntityID
}

// IsValid reports whether the info points at a slice.
func (ri RestoreInfo) IsValid() bool {
	return ri.AssetID != uuid.Nil && ri.InstanceID != uuid.Nil
}

// IsOverride reports whether the entity overrides a template entity.
func (ri RestoreInfo) IsOverride() bool {
	return ri.AncestorID.IsValid()
}

// AssetPinner hands out asset references.
type AssetPinner interface {
	Pin(assets.ID) (*assets.Handle, error)
}

// Instance is one live instantiation of a slice template.
type Instance struct {
	ID      InstanceID
	AssetID assets.ID
	// members maps live entity id -> template ancestor id (0 for added members)
	members map[models.EntityID]models.EntityID
	handle  *assets.Handle
}

func (i *Instance) Has(id models.EntityID) bool {
	_, ok := i.members[id]
	return ok
}

// Root owns every slice instance of an editing context.
type Root struct {
	mu        sync.RWMutex
	instances map[InstanceID]*Instance
	owners    map[models.EntityID]InstanceID
	assets    AssetPinner
	logger    log.Log
}

func NewRoot(pinner AssetPinner, logger log.Log) *Root {
	return &Root{
		instances: make(map[InstanceID]*Instance),
		owners:    make(map[models.EntityID]InstanceID),
		assets:    pinner,
		logger:    logger,
	}
}

// NewInstance declares an empty instance of the template asset.
func (r *Root) NewInstance(assetID assets.ID) InstanceID {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := uuid.New()
	r.instances[id] = &Instance{
		ID:      id,
		AssetID: assetID,
		members: make(map[models.EntityID]models.EntityID),
	}
	return id
}

// AddEntity makes entityID a member of the instance.
func (r *Root) AddEntity(instanceID InstanceID, entityID, ancestorID models.EntityID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addLocked(instanceID, entityID, ancestorID)
}

func (r *Root) addLocked(instanceID InstanceID, entityID, ancestorID models.EntityID) error {
	inst, ok := r.instances[instanceID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrInstanceNotFound, instanceID)
	}
	if owner, taken := r.owners[entityID]; taken {
		return fmt.Errorf("%w: entity %d in %s", ErrAlreadyMember, entityID, owner)
	}
	if len(inst.members) == 0 {
		handle, err := r.assets.Pin(inst.AssetID)
		if err != nil {
			return fmt.Errorf("pin slice asset: %w", err)
		}
		inst.handle = handle
	}
	inst.members[entityID] = ancestorID
	r.owners[entityID] = instanceID
	return nil
}

// Detach removes the entity from its instance, if any. The template asset is
// released when the instance becomes empty.
func (r *Root) Detach(entityID models.EntityID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	instanceID, ok := r.owners[entityID]
	if !ok {
		return
	}
	delete(r.owners, entityID)
	inst := r.instances[instanceID]
	delete(inst.members, entityID)
	if len(inst.members) == 0 && inst.handle != nil {
		inst.handle.Release()
		inst.handle = nil
		r.logger.Debug("slice instance emptied", log.String("instance_id", instanceID.String()))
	}
}

// OwningInstance returns the instance the entity belongs to.
func (r *Root) OwningInstance(entityID models.EntityID) (*Instance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	instanceID, ok := r.owners[entityID]
	if !ok {
		return nil, false
	}
	return r.instances[instanceID], true
}

// RestoreInfo extracts the data needed to reattach the entity later.
func (r *Root) RestoreInfo(entityID models.EntityID) (RestoreInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	instanceID, ok := r.owners[entityID]
	if !ok {
		return RestoreInfo{}, false
	}
	inst := r.instances[instanceID]
	return RestoreInfo{
		AssetID:    inst.AssetID,
		InstanceID: instanceID,
		AncestorID: inst.members[entityID],
	}, true
}

// Reattach puts a freshly restored entity back into its instance.
func (r *Root) Reattach(entityID models.EntityID, info RestoreInfo) error {
	if !info.IsValid() {
		return ErrInvalidRestore
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.instances[info.InstanceID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrInstanceNotFound, info.InstanceID)
	}
	if inst.AssetID != info.AssetID {
		return fmt.Errorf("%w: instance %s is not of asset %s", ErrInvalidRestore, info.InstanceID, info.AssetID)
	}
	return r.addLocked(info.InstanceID, entityID, info.AncestorID)
}
