// manager.go
package carprefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch"
)

// Manager exposes the preference operations used by intent handlers. Each
// mutating call is one load, one in-memory transform and one save; a failed
// transform saves nothing.
//
// Concurrent mutations for the same user are not serialized: the later save
// overwrites the earlier one.
type Manager struct {
	config *Config
	repo   *Repository
}

// New creates a Manager. WithStorage is required.
func New(opts ...Option) (*Manager, error) {
	cfg := &Config{
		logger: NewDefaultLogger(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.storage == nil {
		return nil, fmt.Errorf("%w: storage is required", ErrInvalidInput)
	}
	if cfg.logger == nil {
		cfg.logger = nopLogger{}
	}

	return &Manager{
		config: cfg,
		repo:   NewRepository(cfg.storage, cfg.logger),
	}, nil
}

// Repository returns the repository the Manager reads and writes through.
func (m *Manager) Repository() *Repository {
	return m.repo
}

// SaveSingle applies one update to basePreferences.<key> and saves the result.
func (m *Manager) SaveSingle(ctx context.Context, action Action, kind ValueKind, key string, value any) error {
	return m.mutate(ctx, action, func(doc Document) (Document, error) {
		return Apply(doc, action, key, kind, value)
	})
}

// SaveBatch applies updates in order with one shared action and saves once.
// An empty batch writes the loaded document back unchanged.
func (m *Manager) SaveBatch(ctx context.Context, action Action, updates []AttributeUpdate) error {
	return m.mutate(ctx, action, func(doc Document) (Document, error) {
		return ApplyMany(doc, action, updates)
	})
}

// RecordSearchHistory appends carDetails to the history list named category.
func (m *Manager) RecordSearchHistory(ctx context.Context, category string, carDetails any) error {
	return m.mutate(ctx, "", func(doc Document) (Document, error) {
		return RecordSearch(doc, category, carDetails)
	})
}

// LastShownCar returns the car stored by the previous SetLastShownCar, if any.
func (m *Manager) LastShownCar(ctx context.Context) (any, bool, error) {
	doc, err := m.LoadPreferences(ctx)
	if err != nil {
		return nil, false, err
	}
	car, ok := LastShownCar(doc)
	return car, ok, nil
}

// SetLastShownCar replaces the last shown car.
func (m *Manager) SetLastShownCar(ctx context.Context, carDetails any) error {
	return m.mutate(ctx, "", func(doc Document) (Document, error) {
		return WithLastShownCar(doc, carDetails)
	})
}

// LoadPreferences returns the caller's current document.
func (m *Manager) LoadPreferences(ctx context.Context) (Document, error) {
	userID, err := UserIDFromContext(ctx)
	if err != nil {
		return Document{}, err
	}
	return m.repo.Load(ctx, userID)
}

// ResetAll wipes the caller's document.
func (m *Manager) ResetAll(ctx context.Context) error {
	userID, err := UserIDFromContext(ctx)
	if err != nil {
		return err
	}
	if err := m.repo.Reset(ctx, userID); err != nil {
		return err
	}
	m.config.logger.Info("Preferences reset", "user_id", userID)
	return nil
}

func (m *Manager) mutate(ctx context.Context, action Action, transform func(Document) (Document, error)) error {
	userID, err := UserIDFromContext(ctx)
	if err != nil {
		return err
	}

	current, err := m.repo.Load(ctx, userID)
	if err != nil {
		var storeErr *StoreError
		if errors.As(err, &storeErr) {
			storeErr.Action = action
		}
		return err
	}

	next, err := transform(current)
	if err != nil {
		m.config.logger.Warn("Rejected preference update", "user_id", userID, "action", action, "error", err)
		return err
	}

	m.logChange(userID, action, current, next)
	return m.repo.save(ctx, "save", userID, action, next)
}

// logChange logs the RFC 7386 merge patch that turns before into after.
func (m *Manager) logChange(userID string, action Action, before, after Document) {
	original, err := json.Marshal(before)
	if err != nil {
		return
	}
	modified, err := json.Marshal(after)
	if err != nil {
		return
	}
	patch, err := jsonpatch.CreateMergePatch(original, modified)
	if err != nil {
		m.config.logger.Warn("Failed to diff preference documents", "user_id", userID, "error", err)
		return
	}
	m.config.logger.Debug("Saving preferences", "user_id", userID, "action", action, "merge_patch", string(patch))
}
