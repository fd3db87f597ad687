package carprefs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorVariables(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"ErrInvalidInput", ErrInvalidInput, "invalid input parameters"},
		{"ErrMissingUserID", ErrMissingUserID, "user id missing from context"},
		{"ErrInvalidKey", ErrInvalidKey, "invalid attribute key"},
		{"ErrReservedKey", ErrReservedKey, "reserved document key"},
		{"ErrInvalidAction", ErrInvalidAction, "invalid patch action"},
		{"ErrInvalidKind", ErrInvalidKind, "invalid attribute value type"},
		{"ErrInvalidValue", ErrInvalidValue, "invalid attribute value"},
		{"ErrShapeMismatch", ErrShapeMismatch, "attribute value type does not match stored shape"},
		{"ErrNotFound", ErrNotFound, "document not found"},
		{"ErrStorageUnavailable", ErrStorageUnavailable, "storage backend unavailable"},
		{"ErrSerialization", ErrSerialization, "document serialization failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.expected {
				t.Errorf("Expected error message '%s', got '%s'", tt.expected, tt.err.Error())
			}
		})
	}
}

func TestStoreError(t *testing.T) {
	cause := errors.New("connection refused")

	t.Run("with action", func(t *testing.T) {
		err := &StoreError{Op: "save", UserID: "u1", Action: ActionAdd, Err: cause}
		assert.Equal(t, `save preferences for user "u1" (action add): connection refused`, err.Error())
		assert.ErrorIs(t, err, ErrStorageUnavailable)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("without action", func(t *testing.T) {
		var err error = &StoreError{Op: "load", UserID: "u2", Err: cause}
		assert.Equal(t, `load preferences for user "u2": connection refused`, err.Error())

		var storeErr *StoreError
		assert.True(t, errors.As(err, &storeErr))
		assert.Equal(t, "load", storeErr.Op)
		assert.False(t, errors.Is(err, ErrShapeMismatch))
	})

	t.Run("serialization failure is not an outage", func(t *testing.T) {
		var err error = &StoreError{Op: "load", UserID: "u3", Err: fmt.Errorf("sqlite: failed to decode document: %w", ErrSerialization)}
		assert.ErrorIs(t, err, ErrSerialization)
		assert.False(t, errors.Is(err, ErrStorageUnavailable))
	})
}
