package catalog

import "fmt"

// StorageError represents a catalog/table operation failure. Read paths
// swallow these and degrade to empty results; write paths surface them.
type StorageError struct {
	Op    string
	Cause error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("catalog storage error: %s: %v", e.Op, e.Cause)
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}
