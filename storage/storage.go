// Package storage provides carprefs.Storage backends: in-memory, SQLite, PostgreSQL and Redis.
//
// Every backend stores one JSON document per user. With WithEncryptor the
// document is sealed and stored as a JSON string literal instead of an object,
// which keeps it valid for JSONB columns; plain documents are still readable
// after encryption is switched on.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/CreativeUnicorns/carprefs"
)

// Compile-time interface checks.
var (
	_ carprefs.Storage = (*MemoryStorage)(nil)
	_ carprefs.Storage = (*SQLiteStorage)(nil)
	_ carprefs.Storage = (*PostgresStorage)(nil)
	_ carprefs.Storage = (*RedisStorage)(nil)
)

// ErrEncryptedDocument is returned when a sealed document is read by a backend without an encryptor.
var ErrEncryptedDocument = errors.New("document is encrypted but no encryptor is configured")

// Option configures a backend.
type Option func(*options)

type options struct {
	encryptor carprefs.Encryptor
	ttl       time.Duration
}

// WithEncryptor seals documents before they are written.
func WithEncryptor(e carprefs.Encryptor) Option {
	return func(o *options) {
		o.encryptor = e
	}
}

// WithTTL sets an expiry on stored documents. Only RedisStorage honours it; 0 means no expiry.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.ttl = ttl
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// codec turns documents into the bytes a backend stores.
type codec struct {
	encryptor carprefs.Encryptor
}

func (c codec) encode(doc carprefs.Document) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", carprefs.ErrSerialization, err)
	}
	if c.encryptor == nil {
		return data, nil
	}

	sealed, err := c.encryptor.Encrypt(string(data))
	if err != nil {
		return nil, fmt.Errorf("%w: encrypt document: %v", carprefs.ErrSerialization, err)
	}
	out, err := json.Marshal(sealed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", carprefs.ErrSerialization, err)
	}
	return out, nil
}

func (c codec) decode(data []byte) (carprefs.Document, error) {
	var sealed string
	if err := json.Unmarshal(data, &sealed); err == nil {
		if c.encryptor == nil {
			return carprefs.Document{}, fmt.Errorf("%w: %w", carprefs.ErrSerialization, ErrEncryptedDocument)
		}
		plain, err := c.encryptor.Decrypt(sealed)
		if err != nil {
			return carprefs.Document{}, fmt.Errorf("%w: decrypt document: %v", carprefs.ErrSerialization, err)
		}
		data = []byte(plain)
	}

	var doc carprefs.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		if errors.Is(err, carprefs.ErrSerialization) {
			return carprefs.Document{}, err
		}
		return carprefs.Document{}, fmt.Errorf("%w: %v", carprefs.ErrSerialization, err)
	}
	return doc, nil
}
