// Package serialization turns live entities into opaque snapshot bytes and
// back. The format is deterministic CBOR: two entities with the same
// identity, name and component state always encode to the same bytes, which
// is what lets snapshots be compared byte for byte.
package serialization

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeusync/entityundo/internal/core/assets"
	"github.com/zeusync/entityundo/internal/core/models"
)

// FormatVersion is written into every snapshot envelope.
const FormatVersion uint16 = 1

// Serializer is the generic object serialization routine used by the snapshot
// cache and the entity state commands.
type Serializer interface {
	Serialize(*models.Entity) ([]byte, error)
	Deserialize([]byte, Options) (*models.Entity, error)
}

// Options tune a single Deserialize call.
type Options struct {
	// SuppressAssetLoading keeps asset refs as plain handles instead of
	// asking the AssetLoader to make them resident.
	SuppressAssetLoading bool
}

// AssetLoader is consulted for asset refs when loading is not suppressed.
type AssetLoader interface {
	Load(assets.ID) error
}

type envelope struct {
	Version    uint16            `cbor:"1,keyasint"`
	ID         uint64            `cbor:"2,keyasint"`
	Name       string            `cbor:"3,keyasint"`
	Components []componentRecord `cbor:"4,keyasint"`
}

type componentRecord struct {
	Type string          `cbor:"1,keyasint"`
	Data cbor.RawMessage `cbor:"2,keyasint"`
}

var _ Serializer = (*CBORSerializer)(nil)

// CBORSerializer encodes entities with a type-tagged component list.
type CBORSerializer struct {
	types  *TypeRegistry
	loader AssetLoader
	enc    cbor.EncMode
	dec    cbor.DecMode
}

// NewCBORSerializer builds a serializer over the given component types.
// loader may be nil, in which case asset refs are never loaded.
func NewCBORSerializer(types *TypeRegistry, loader AssetLoader) (*CBORSerializer, error) {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("build cbor encoder: %w", err)
	}
	dec, err := cbor.DecOptions{DupMapKey: cbor.DupMapKeyEnforcedAPF}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("build cbor decoder: %w", err)
	}
	return &CBORSerializer{
		types:  types,
		loader: loader,
		enc:    enc,
		dec:    dec,
	}, nil
}

func (s *CBORSerializer) Types() *TypeRegistry { return s.types }

func (s *CBORSerializer) Serialize(e *models.Entity) ([]byte, error) {
	if e == nil {
		return nil, ErrNilEntity
	}
	components := e.Components()
	env := envelope{
		Version:    FormatVersion,
		ID:         uint64(e.ID()),
		Name:       e.Name(),
		Components: make([]componentRecord, 0, len(components)),
	}
	for _, c := range components {
		tag := c.TypeName()
		if _, ok := s.types.Lookup(tag); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownComponentType, tag)
		}
		data, err := s.enc.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("encode component %s: %w", tag, err)
		}
		env.Components = append(env.Components, componentRecord{Type: tag, Data: data})
	}
	data, err := s.enc.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode entity %d: %w", e.ID(), err)
	}
	return data, nil
}

func (s *CBORSerializer) Deserialize(data []byte, opts Options) (*models.Entity, error) {
	if len(data) == 0 {
		return nil, ErrEmptyData
	}
	var env envelope
	if err := s.dec.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Version != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, env.Version)
	}
	id := models.EntityID(env.ID)
	if !id.IsValid() {
		return nil, ErrInvalidEntity
	}

	e := models.NewEntity(id, env.Name)
	for _, rec := range env.Components {
		factory, ok := s.types.Lookup(rec.Type)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownComponentType, rec.Type)
		}
		c := factory()
		if err := s.dec.Unmarshal(rec.Data, c); err != nil {
			return nil, fmt.Errorf("decode component %s: %w", rec.Type, err)
		}
		if err := e.AddComponent(c); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidEntity, err)
		}
	}

	if !opts.SuppressAssetLoading && s.loader != nil {
		if err := s.loadAssets(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (s *CBORSerializer) loadAssets(e *models.Entity) error {
	for _, c := range e.Components() {
		referencer, ok := c.(models.AssetReferencer)
		if !ok {
			continue
		}
		for _, ref := range referencer.AssetRefs() {
			if !ref.IsValid() {
				continue
			}
			if err := s.loader.Load(ref.ID); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrAssetLoad, ref.ID, err)
			}
		}
	}
	return nil
}
