package bus

import "errors"

var (
	ErrNilEvent       = errors.New("event is nil")
	ErrNilHandler     = errors.New("handler is nil")
	ErrEmptyEventType = errors.New("event type is empty")
)
