package carprefs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Document is the full per-user preference record.
//
// A Document is treated as an immutable snapshot: the patch functions in this
// package return a deep copy and never modify the Document they are given.
// The zero value is the empty document.
type Document struct {
	// BasePreferences maps attribute keys to tagged values. Nil when the
	// document never held base preferences.
	BasePreferences map[string]Attribute
	// LastShownCar is the car record shown in the previous turn; nil when unset.
	LastShownCar any
	// Collections holds the free-form search history lists (liked, disliked, ...),
	// keyed by category.
	Collections map[string][]any

	// extra keeps top-level keys this package does not interpret, so that a
	// load/save cycle does not drop them.
	extra map[string]json.RawMessage
}

// IsEmpty reports whether the document holds no keys at all.
func (d Document) IsEmpty() bool {
	return d.BasePreferences == nil && d.LastShownCar == nil && len(d.Collections) == 0 && len(d.extra) == 0
}

// Clone returns a deep copy of d.
func (d Document) Clone() Document {
	var out Document
	if d.BasePreferences != nil {
		out.BasePreferences = make(map[string]Attribute, len(d.BasePreferences))
		for k, a := range d.BasePreferences {
			out.BasePreferences[k] = Attribute{Kind: a.Kind, Value: cloneValue(a.Value)}
		}
	}
	out.LastShownCar = cloneValue(d.LastShownCar)
	if d.Collections != nil {
		out.Collections = make(map[string][]any, len(d.Collections))
		for k, list := range d.Collections {
			out.Collections[k] = cloneList(list)
		}
	}
	if d.extra != nil {
		out.extra = make(map[string]json.RawMessage, len(d.extra))
		for k, raw := range d.extra {
			out.extra[k] = append(json.RawMessage(nil), raw...)
		}
	}
	return out
}

// Preferences projects basePreferences to plain values, dropping the kind tags:
// {"make": "Toyota", "color": ["red"]}. The result is a copy.
func (d Document) Preferences() map[string]any {
	out := make(map[string]any, len(d.BasePreferences))
	for k, a := range d.BasePreferences {
		out[k] = cloneValue(a.Value)
	}
	return out
}

// Lookup resolves a dotted path such as "basePreferences.color" or "liked.0.make"
// against the plain JSON view of the document. Numeric segments index lists.
func (d Document) Lookup(path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	var cur any = d.plain()
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cloneValue(cur), true
}

// plain builds the untagged map view used by Lookup. Values are shared, not copied.
func (d Document) plain() map[string]any {
	out := make(map[string]any, len(d.Collections)+len(d.extra)+2)
	for k, raw := range d.extra {
		var v any
		if err := json.Unmarshal(raw, &v); err == nil {
			out[k] = v
		}
	}
	for k, list := range d.Collections {
		out[k] = list
	}
	if d.BasePreferences != nil {
		base := make(map[string]any, len(d.BasePreferences))
		for k, a := range d.BasePreferences {
			base[k] = a.Value
		}
		out[BasePreferencesKey] = base
	}
	if d.LastShownCar != nil {
		out[LastShownCarKey] = d.LastShownCar
	}
	return out
}

// MarshalJSON writes the document as one flat JSON object; collections and
// uninterpreted keys sit next to basePreferences and lastShownCar.
func (d Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Collections)+len(d.extra)+2)
	for k, raw := range d.extra {
		out[k] = raw
	}
	for k, list := range d.Collections {
		if list == nil {
			list = []any{}
		}
		out[k] = list
	}
	if d.BasePreferences != nil {
		out[BasePreferencesKey] = d.BasePreferences
	}
	if d.LastShownCar != nil {
		out[LastShownCarKey] = d.LastShownCar
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads a stored document. Top-level arrays become Collections;
// other unknown keys are kept verbatim.
func (d *Document) UnmarshalJSON(data []byte) error {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}

	var doc Document
	for key, raw := range top {
		switch key {
		case BasePreferencesKey:
			if isJSONNull(raw) {
				continue
			}
			var base map[string]Attribute
			if err := json.Unmarshal(raw, &base); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrSerialization, BasePreferencesKey, err)
			}
			if base == nil {
				base = make(map[string]Attribute)
			}
			doc.BasePreferences = base
		case LastShownCarKey:
			if err := json.Unmarshal(raw, &doc.LastShownCar); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrSerialization, LastShownCarKey, err)
			}
		default:
			if firstByte(raw) == '[' {
				var list []any
				if err := json.Unmarshal(raw, &list); err != nil {
					return fmt.Errorf("%w: %s: %v", ErrSerialization, key, err)
				}
				if doc.Collections == nil {
					doc.Collections = make(map[string][]any)
				}
				doc.Collections[key] = list
				continue
			}
			if doc.extra == nil {
				doc.extra = make(map[string]json.RawMessage)
			}
			doc.extra[key] = append(json.RawMessage(nil), raw...)
		}
	}
	*d = doc
	return nil
}

// UnmarshalJSON accepts both the tagged form {"kind":..., "value":...} and
// untagged values written before attributes carried a kind; the latter are
// tagged by shape.
func (a *Attribute) UnmarshalJSON(data []byte) error {
	if firstByte(data) == '{' {
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(data, &probe); err == nil && len(probe) == 2 {
			kindRaw, hasKind := probe["kind"]
			valueRaw, hasValue := probe["value"]
			var kind ValueKind
			if hasKind && hasValue && json.Unmarshal(kindRaw, &kind) == nil && kind.valid() {
				return a.decodeTagged(kind, valueRaw)
			}
		}
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if list, ok := v.([]any); ok {
		*a = Attribute{Kind: KindArray, Value: list}
		return nil
	}
	*a = Attribute{Kind: KindScalar, Value: v}
	return nil
}

func (a *Attribute) decodeTagged(kind ValueKind, raw json.RawMessage) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	if kind == KindArray {
		switch list := v.(type) {
		case nil:
			v = []any{}
		case []any:
		default:
			return fmt.Errorf("array attribute holds %T", list)
		}
	}
	*a = Attribute{Kind: kind, Value: v}
	return nil
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = cloneValue(e)
		}
		return m
	case []any:
		return cloneList(t)
	default:
		return v
	}
}

func cloneList(list []any) []any {
	if list == nil {
		return nil
	}
	out := make([]any, len(list))
	for i, e := range list {
		out[i] = cloneValue(e)
	}
	return out
}

func firstByte(data []byte) byte {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}

func isJSONNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
