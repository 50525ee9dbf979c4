package database

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when no record exists for a title.
var ErrNotFound = errors.New("item not found")

// StorageError reports an I/O failure of the underlying database.
// It is never returned for a record that simply does not exist.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
