package storage

import (
	"fmt"

	"github.com/pkg/errors"
)

// PersistenceError reports an I/O or decoding failure. A record that simply
// does not exist is never reported this way.
type PersistenceError struct {
	Op       string
	Location string
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Location, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func persistenceError(op, location string, err error) error {
	return &PersistenceError{Op: op, Location: location, Err: errors.WithStack(err)}
}

// IsPersistenceError reports whether err wraps a *PersistenceError.
func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
