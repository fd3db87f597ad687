package carprefs

import "fmt"

// RecordSearch appends carDetails to the history list stored at the top-level
// key category (for example "liked" or "disliked"), creating the list when absent.
// These lists feed preference inference downstream.
func RecordSearch(doc Document, category string, carDetails any) (Document, error) {
	if err := validateCategory(category); err != nil {
		return doc, err
	}
	if _, taken := doc.extra[category]; taken {
		return doc, fmt.Errorf("%w: key %q does not hold a list", ErrShapeMismatch, category)
	}
	record, err := normalizeValue(carDetails)
	if err != nil {
		return doc, fmt.Errorf("category %q: %w", category, err)
	}

	next := doc.Clone()
	if next.Collections == nil {
		next.Collections = make(map[string][]any)
	}
	next.Collections[category] = append(next.Collections[category], record)
	return next, nil
}

// SearchHistory returns a copy of the list recorded under category, or nil.
func SearchHistory(doc Document, category string) []any {
	return cloneList(doc.Collections[category])
}
