package models

import "errors"

var (
	ErrNilComponent      = errors.New("component is nil")
	ErrComponentExists   = errors.New("component already attached")
	ErrComponentNotFound = errors.New("component not found")
	ErrInvalidTransition = errors.New("invalid lifecycle transition")
)
