// Package components holds the stock editor components. Each one is plain
// data with CBOR tags so the snapshot serializer can encode it without
// knowing its layout.
package components

import (
	"github.com/zeusync/entityundo/internal/core/assets"
	"github.com/zeusync/entityundo/internal/core/models"
	"github.com/zeusync/entityundo/internal/core/serialization"
)

const (
	TransformType    = "Transform"
	TagsType         = "Tags"
	MeshRendererType = "MeshRenderer"
	RigidBodyType    = "RigidBody"
)

// Register adds every stock component to the type registry.
func Register(types *serialization.TypeRegistry) error {
	if err := serialization.RegisterType[Transform](types); err != nil {
		return err
	}
	if err := serialization.RegisterType[Tags](types); err != nil {
		return err
	}
	if err := serialization.RegisterType[MeshRenderer](types); err != nil {
		return err
	}
	return serialization.RegisterType[RigidBody](types)
}

type Vec3 struct {
	X float64 `cbor:"1,keyasint"`
	Y float64 `cbor:"2,keyasint"`
	Z float64 `cbor:"3,keyasint"`
}

type Transform struct {
	Position Vec3 `cbor:"1,keyasint"`
	Rotation Vec3 `cbor:"2,keyasint"`
	Scale    Vec3 `cbor:"3,keyasint"`
}

func NewTransform(x, y, z float64) *Transform {
	return &Transform{
		Position: Vec3{X: x, Y: y, Z: z},
		Scale:    Vec3{X: 1, Y: 1, Z: 1},
	}
}

func (t *Transform) TypeName() string { return TransformType }

type Tags struct {
	Values []string `cbor:"1,keyasint"`
}

func (t *Tags) TypeName() string { return TagsType }


// MeshRenderer points at a mesh and a material asset.
type MeshRenderer struct {
	Mesh     assets.Ref `cbor:"1,keyasint"`
	Material assets.Ref `cbor:"2,keyasint"`
	Visible  bool       `cbor:"3,keyasint"`
}

var _ models.AssetReferencer = (*MeshRenderer)(nil)

func (m *MeshRenderer) TypeName() string { return MeshRendererType }

func (m *MeshRenderer) AssetRefs() []assets.Ref {
	return []assets.Ref{m.Mesh, m.Material}
}

// RigidBody starts simulating when its entity activates. The simulating
// flag is runtime state and never serialized.
type RigidBody struct {
	Mass      float64 `cbor:"1,keyasint"`
	Kinematic bool    `cbor:"2,keyasint"`

	initialized bool
	simulating  bool
}

var (
	_ models.Initializer = (*RigidBody)(nil)
	_ models.Activator   = (*RigidBody)(nil)
)

func (r *RigidBody) TypeName() string { return RigidBodyType }

func (r *RigidBody) OnInit(*models.Entity) error {
	r.initialized = true
	return nil
}

func (r *RigidBody) OnActivate(*models.Entity) error {
	r.simulating = true
	return nil
}

func (r *RigidBody) OnDeactivate(*models.Entity) error {
	r.simulating = false
	return nil
}

func (r *RigidBody) Initialized() bool { return r.initialized }
func (r *RigidBody) Simulating() bool  { return r.simulating }
