package storage

import "errors"

// ErrNilTurn is returned by Put when given a nil turn or one without an ID.
var ErrNilTurn = errors.New("cannot store nil turn or turn without id")

// NotFoundError is returned when a turn doesn't exist in the store.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	if e.ID == "" {
		return "turn not found"
	}

	return "turn not found: " + e.ID
}

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}
