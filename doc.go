// Package carprefs provides a per-user preference document store for a conversational
// car-shopping assistant.
//
// Incremental preference updates (add, clear and clearAll of scalar or list-valued
// attributes) are merged in memory into a JSON document keyed by user ID, and the
// result is written back through a pluggable Storage backend (PostgreSQL, SQLite,
// Redis or in-memory). The merge engine is pure: Apply, ApplyMany, RecordSearch and
// WithLastShownCar never touch storage and never mutate their input.
package carprefs
