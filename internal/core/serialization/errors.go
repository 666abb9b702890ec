package serialization

import "errors"

var (
	ErrEmptyData            = errors.New("snapshot data is empty")
	ErrNilEntity            = errors.New("entity is nil")
	ErrUnknownComponentType = errors.New("unknown component type")
	ErrUnsupportedVersion   = errors.New("unsupported snapshot format version")
	ErrDuplicateType        = errors.New("component type already registered")
	ErrInvalidRegistration  = errors.New("invalid component registration")
	ErrAssetLoad            = errors.New("asset load failed")
	ErrInvalidEntity        = errors.New("snapshot does not describe a valid entity")
)
