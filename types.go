// Package carprefs defines the core types used in the preference document store.
package carprefs

// Reserved top-level document keys.
const (
	// BasePreferencesKey holds the attribute map patched by Apply.
	BasePreferencesKey = "basePreferences"
	// LastShownCarKey holds the single car record shown in the previous turn.
	LastShownCarKey = "lastShownCar"
)

// ValueKind tells the patch engine whether an attribute holds a single scalar or a list.
type ValueKind string

const (
	// KindScalar is a single value that add overwrites and clear deletes.
	KindScalar ValueKind = "scalar"
	// KindArray is an ordered list that add appends to and clear filters.
	KindArray ValueKind = "array"
)

// Action is the patch operation applied to every AttributeUpdate of a call.
type Action string

const (
	// ActionAdd stores, appends or overwrites a value.
	ActionAdd Action = "add"
	// ActionClear removes one value from a list, or deletes a scalar.
	ActionClear Action = "clear"
	// ActionClearAll deletes the attribute regardless of its kind.
	ActionClearAll Action = "clearAll"
)

// Attribute is one entry of basePreferences, tagged with the kind it was created with.
// For KindArray, Value is always a []any.
type Attribute struct {
	Kind  ValueKind `json:"kind"`
	Value any       `json:"value"`
}

// AttributeUpdate is one unit of patch work.
type AttributeUpdate struct {
	AttributeKey       string    `json:"attributeKey"`
	AttributeValueType ValueKind `json:"attributeValueType"`
	AttributeValue     any       `json:"attributeValue"`
}

// Config holds the internal configuration for a Manager instance.
// It is populated by applying functional Options when a Manager is created with New().
type Config struct {
	// storage is the persistence layer (PostgresStorage, SQLiteStorage, RedisStorage, MemoryStorage).
	storage Storage
	// logger is the logging interface used by the Manager and its Repository.
	logger Logger
}

// Option defines the signature for a functional option that configures a Manager instance.
type Option func(*Config)

// WithStorage sets the Storage implementation for the Manager.
// This is a mandatory option for a functional Manager.
func WithStorage(s Storage) Option {
	return func(c *Config) {
		c.storage = s
	}
}

// WithLogger sets the Logger implementation for the Manager.
// If not set, NewDefaultLogger is used.
func WithLogger(l Logger) Option {
	return func(c *Config) {
		c.logger = l
	}
}
