package masterdata

import "errors"

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("masterdata: not found")
	// ErrNilRecord is returned when saving a nil record.
	ErrNilRecord = errors.New("masterdata: nil record")
)
