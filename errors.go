// errors.go
package carprefs

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput       = errors.New("invalid input parameters")
	ErrMissingUserID      = errors.New("user id missing from context")
	ErrInvalidKey         = errors.New("invalid attribute key")
	ErrReservedKey        = errors.New("reserved document key")
	ErrInvalidAction      = errors.New("invalid patch action")
	ErrInvalidKind        = errors.New("invalid attribute value type")
	ErrInvalidValue       = errors.New("invalid attribute value")
	ErrShapeMismatch      = errors.New("attribute value type does not match stored shape")
	ErrNotFound           = errors.New("document not found")
	ErrStorageUnavailable = errors.New("storage backend unavailable")
	ErrSerialization      = errors.New("document serialization failed")
)

// StoreError reports a failed call to the storage backend, with the operation
// that triggered it.
type StoreError struct {
	Op     string // load, save or reset
	UserID string
	Action Action // empty for operations that are not patches
	Err    error
}

func (e *StoreError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s preferences for user %q (action %s): %v", e.Op, e.UserID, e.Action, e.Err)
	}
	return fmt.Sprintf("%s preferences for user %q: %v", e.Op, e.UserID, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is matches ErrStorageUnavailable unless the backend failed to encode or
// decode the document, which is a data problem rather than an outage.
func (e *StoreError) Is(target error) bool {
	return target == ErrStorageUnavailable && !errors.Is(e.Err, ErrSerialization)
}
