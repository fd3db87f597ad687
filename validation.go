// validation.go
package carprefs

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"
)

// ParseAction converts a wire string into an Action.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if !a.valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidAction, s)
	}
	return a, nil
}

// ParseValueKind converts a wire string into a ValueKind.
// "string" is accepted as a synonym of "scalar".
func ParseValueKind(s string) (ValueKind, error) {
	switch strings.ToLower(s) {
	case string(KindScalar), "string":
		return KindScalar, nil
	case string(KindArray):
		return KindArray, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
}

func (a Action) valid() bool {
	switch a {
	case ActionAdd, ActionClear, ActionClearAll:
		return true
	}
	return false
}

func (k ValueKind) valid() bool {
	return k == KindScalar || k == KindArray
}

// UnmarshalJSON lets AttributeUpdate payloads use the "string" synonym.
func (k *ValueKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidKind, err)
	}
	kind, err := ParseValueKind(s)
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// UnmarshalJSON rejects unknown actions at decode time.
func (a *Action) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}
	action, err := ParseAction(s)
	if err != nil {
		return err
	}
	*a = action
	return nil
}

func validateAttributeKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	return nil
}

func validateCategory(category string) error {
	if strings.TrimSpace(category) == "" {
		return fmt.Errorf("%w: empty category", ErrInvalidKey)
	}
	if category == BasePreferencesKey || category == LastShownCarKey {
		return fmt.Errorf("%w: %q", ErrReservedKey, category)
	}
	return nil
}

// normalizeValue converts v to the shape encoding/json produces when decoding,
// so values compare equal before and after a storage round-trip. NaN and
// ±Inf have no JSON form and are rejected at any depth.
func normalizeValue(v any) (any, error) {
	switch t := v.(type) {
	case nil, string, bool:
		return v, nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil, fmt.Errorf("%w: non-finite number %v", ErrInvalidValue, t)
		}
		return v, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return out, nil
}

func valuesEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}
