package hub

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateID   = errors.New("device id already registered")
	ErrDuplicateRoom = errors.New("room already added")
	ErrNilRoom       = errors.New("nil room")
)

// DuplicateIDError is returned by RegisterDevice when the id is taken. The
// device registered first stays in place.
type DuplicateIDError struct {
	ID       int
	Existing string
	Rejected string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("device id %d already registered to %q, rejecting %q", e.ID, e.Existing, e.Rejected)
}

func (e *DuplicateIDError) Is(target error) bool { return target == ErrDuplicateID }

// HandlerPanic wraps a value recovered from a device or app handler.
type HandlerPanic struct {
	Value any
}

func (p HandlerPanic) Error() string { return fmt.Sprintf("handler panicked: %v", p.Value) }

func (p HandlerPanic) Unwrap() error {
	if err, ok := p.Value.(error); ok {
		return err
	}
	return nil
}
