// Package carprefs defines interfaces for storage and encryption used by the document store.
package carprefs

import (
	"context"
)

// Storage defines the methods required for a storage backend.
// A backend maps one user ID to one document and has no partial-update primitive:
// SaveAttributes replaces whatever was stored before.
type Storage interface {
	// GetAttributes returns the stored document, or ErrNotFound if the user has none.
	GetAttributes(ctx context.Context, userID string) (Document, error)
	// SaveAttributes overwrites the user's entire document.
	SaveAttributes(ctx context.Context, userID string, doc Document) error
	Close() error
}

// Encryptor seals documents at rest. *encryption.Manager satisfies it.
type Encryptor interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(encrypted string) (string, error)
}
