package carprefs

import (
	"context"
	"errors"
	"fmt"
)

// Repository loads and saves whole preference documents through a Storage.
// Every call touches the store exactly once; nothing is cached between calls.
type Repository struct {
	storage Storage
	logger  Logger
}

// NewRepository wraps storage. A nil logger discards log output.
func NewRepository(storage Storage, logger Logger) *Repository {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Repository{storage: storage, logger: logger}
}

// Load returns the user's stored document, or an empty Document when the user
// has none. Store failures are returned as *StoreError.
func (r *Repository) Load(ctx context.Context, userID string) (Document, error) {
	if userID == "" {
		return Document{}, fmt.Errorf("%w: empty user id", ErrInvalidInput)
	}

	doc, err := r.storage.GetAttributes(context.WithoutCancel(ctx), userID)
	if errors.Is(err, ErrNotFound) {
		r.logger.Debug("No stored preferences, starting empty document", "user_id", userID)
		return Document{}, nil
	}
	if err != nil {
		r.logger.Error("Failed to load preferences", "user_id", userID, "error", err)
		return Document{}, &StoreError{Op: "load", UserID: userID, Err: err}
	}
	return doc, nil
}

// Save overwrites the user's entire stored document with doc.
func (r *Repository) Save(ctx context.Context, userID string, doc Document) error {
	return r.save(ctx, "save", userID, "", doc)
}

// Reset replaces the user's document with the empty document.
func (r *Repository) Reset(ctx context.Context, userID string) error {
	return r.save(ctx, "reset", userID, "", Document{})
}

func (r *Repository) save(ctx context.Context, op, userID string, action Action, doc Document) error {
	if userID == "" {
		return fmt.Errorf("%w: empty user id", ErrInvalidInput)
	}

	if err := r.storage.SaveAttributes(context.WithoutCancel(ctx), userID, doc); err != nil {
		r.logger.Error("Failed to save preferences", "op", op, "user_id", userID, "action", action, "error", err)
		return &StoreError{Op: op, UserID: userID, Action: action, Err: err}
	}
	return nil
}
