package carprefs

import (
	"fmt"
)

// Apply merges one update into basePreferences.<key> and returns the new document.
//
//   - add: an absent key is created (array kinds as a one-element list); an
//     existing array gets value appended, duplicates included; an existing
//     scalar is overwritten.
//   - clear: array kinds lose every element equal to value, survivors keep
//     their order; scalar kinds are deleted whatever value is. Clearing an
//     absent key is a no-op.
//   - clearAll: the key is deleted; kind and value are ignored.
//
// If the key exists with a different kind than declared, add and clear fail
// with ErrShapeMismatch. doc is never modified.
func Apply(doc Document, action Action, key string, kind ValueKind, value any) (Document, error) {
	next := doc.Clone()
	if err := applyInPlace(&next, action, key, kind, value); err != nil {
		return doc, err
	}
	return next, nil
}

// ApplyMany folds Apply over updates in order, with the same action for every
// update. Later updates see the effect of earlier ones. On error the input
// document is returned unchanged.
func ApplyMany(doc Document, action Action, updates []AttributeUpdate) (Document, error) {
	next := doc.Clone()
	for i, u := range updates {
		if err := applyInPlace(&next, action, u.AttributeKey, u.AttributeValueType, u.AttributeValue); err != nil {
			return doc, fmt.Errorf("update %d: %w", i, err)
		}
	}
	return next, nil
}

// applyInPlace mutates doc, which must be a private copy.
func applyInPlace(doc *Document, action Action, key string, kind ValueKind, value any) error {
	if !action.valid() {
		return fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
	if err := validateAttributeKey(key); err != nil {
		return err
	}

	if action == ActionClearAll {
		if doc.BasePreferences != nil {
			delete(doc.BasePreferences, key)
		}
		return nil
	}

	if !kind.valid() {
		return fmt.Errorf("%w: %q for key %q", ErrInvalidKind, kind, key)
	}

	stored, exists := doc.BasePreferences[key]
	if exists && stored.Kind != kind {
		return fmt.Errorf("%w: key %q declared %s, stored %s", ErrShapeMismatch, key, kind, stored.Kind)
	}

	switch action {
	case ActionAdd:
		v, err := normalizeValue(value)
		if err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
		if doc.BasePreferences == nil {
			doc.BasePreferences = make(map[string]Attribute)
		}
		if kind == KindScalar {
			doc.BasePreferences[key] = Attribute{Kind: KindScalar, Value: v}
			return nil
		}
		list, err := storedList(key, stored, exists)
		if err != nil {
			return err
		}
		doc.BasePreferences[key] = Attribute{Kind: KindArray, Value: append(list, v)}

	case ActionClear:
		if !exists {
			return nil
		}
		if kind == KindScalar {
			delete(doc.BasePreferences, key)
			return nil
		}
		v, err := normalizeValue(value)
		if err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
		list, err := storedList(key, stored, exists)
		if err != nil {
			return err
		}
		kept := make([]any, 0, len(list))
		for _, item := range list {
			if !valuesEqual(item, v) {
				kept = append(kept, item)
			}
		}
		doc.BasePreferences[key] = Attribute{Kind: KindArray, Value: kept}
	}
	return nil
}

// storedList returns the list held by an array attribute, or nil when absent.
func storedList(key string, stored Attribute, exists bool) ([]any, error) {
	if !exists || stored.Value == nil {
		return nil, nil
	}
	list, ok := stored.Value.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: key %q is tagged array but holds %T", ErrShapeMismatch, key, stored.Value)
	}
	return list, nil
}
