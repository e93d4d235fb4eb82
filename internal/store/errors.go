package store

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Store operations. Match them with errors.Is.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrUnknownField  = errors.New("unknown field")
	ErrInvalidValue  = errors.New("invalid filter value")
)

// Error records the operation and entity id that failed.
type Error struct {
	Op  string
	ID  any
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %v: %v", e.Op, e.ID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
