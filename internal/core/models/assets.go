package models

import "github.com/zeusync/entityundo/internal/core/assets"

// AssetReferencer is implemented by components that hold asset references.
// The snapshot deserializer uses it to decide what to load.
type AssetReferencer interface {
	AssetRefs() []assets.Ref
}
