package domain

import "errors"

var (
	ErrEventNotFound = errors.New("event not found")
	ErrEmptyCode     = errors.New("code must not be empty")
)
