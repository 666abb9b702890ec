package command

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/zeusync/entityundo/internal/core/assets"
	"github.com/zeusync/entityundo/internal/core/models"
	"github.com/zeusync/entityundo/internal/core/observability/log"
	"github.com/zeusync/entityundo/internal/core/serialization"
	"github.com/zeusync/entityundo/internal/core/slice"
)

// Serializer turns entities into snapshots and back.
type Serializer interface {
	Serialize(*models.Entity) ([]byte, error)
	Deserialize([]byte, serialization.Options) (*models.Entity, error)
}

// EntityRegistry is the live entity registry. Add is used for restored
// entities that belong to no context.
type EntityRegistry interface {
	Add(*models.Entity) error
	FindByIdentity(models.EntityID) *models.Entity
	DestroyByIdentity(models.EntityID) error
	GetState(models.EntityID) (models.State, error)
	InitializeFromConstructed(models.EntityID) error
	ActivateFromInitialized(models.EntityID) error
}

// ContextService answers ownership questions and re-integrates restored
// entities into their context or slice instance.
type ContextService interface {
	OwningContext(models.EntityID) uuid.UUID
	OwningSliceInstance(models.EntityID) (*slice.Instance, bool)
	ExtractRestoreInfo(models.EntityID) (slice.RestoreInfo, bool)
	ReattachToSlice(*models.Entity, slice.RestoreInfo) error
	RegisterWithContext(uuid.UUID, *models.Entity) error
}

// AssetPinner holds slice template assets across a restore.
type AssetPinner interface {
	Pin(assets.ID) (*assets.Handle, error)
}

type SelectionService interface {
	Selected() []models.EntityID
	SetSelected([]models.EntityID) error
	IsSelected(models.EntityID) bool
}

type SnapshotCache interface {
	Retrieve(models.EntityID) []byte
	UpdateCache(models.EntityID) error
	PurgeCache(models.EntityID)
}

// Deps are the collaborators every entity state command works against.
type Deps struct {
	Serializer Serializer
	Registry   EntityRegistry
	Contexts   ContextService
	Assets     AssetPinner
	Selection  SelectionService
	Cache      SnapshotCache
	Logger     log.Log

	// StrictUndoCapture rejects undo captures when the cache holds no
	// pre-mutation snapshot, instead of serializing the live entity.
	StrictUndoCapture bool
}

func (d Deps) validate() error {
	missing := ""
	switch {
	case d.Serializer == nil:
		missing = "serializer"
	case d.Registry == nil:
		missing = "entity registry"
	case d.Contexts == nil:
		missing = "context service"
	case d.Assets == nil:
		missing = "asset pinner"
	case d.Selection == nil:
		missing = "selection service"
	case d.Cache == nil:
		missing = "snapshot cache"
	case d.Logger == nil:
		missing = "logger"
	}
	if missing != "" {
		return fmt.Errorf("%w: %s", ErrMissingDependency, missing)
	}
	return nil
}
