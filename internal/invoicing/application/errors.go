package application

import (
	"fmt"

	invoicing "invoice-desk/internal/invoicing/domain"
)

// StorageError reports a failed counter or lookup operation.
// It matches invoicing.ErrStorageUnavailable with errors.Is.
type StorageError struct {
	Op     string
	Year   int
	Number string
	Err    error
}

func (e *StorageError) Error() string {
	subject := e.Number
	if subject == "" {
		subject = fmt.Sprintf("%d", e.Year)
	}
	if e.Err == nil {
		return fmt.Sprintf("numbering: %s %s: %v", e.Op, subject, invoicing.ErrStorageUnavailable)
	}
	return fmt.Sprintf("numbering: %s %s: %v: %v", e.Op, subject, invoicing.ErrStorageUnavailable, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the storage unavailable kind.
func (e *StorageError) Is(target error) bool {
	return target == invoicing.ErrStorageUnavailable
}
