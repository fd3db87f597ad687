// Package storage provides a PostgreSQL-based implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/CreativeUnicorns/carprefs"
)

// sqlOpenFunc is a package-level variable that can be overridden for testing.
var sqlOpenFunc = sql.Open

const (
	createTableSQL = `
		CREATE TABLE IF NOT EXISTS user_documents (
			user_id TEXT NOT NULL PRIMARY KEY,
			document JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`

	upsertSQL = `
		INSERT INTO user_documents (user_id, document, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET document = EXCLUDED.document, updated_at = NOW()
	`

	selectSQL = `
		SELECT document
		FROM user_documents
		WHERE user_id = $1
	`
)

// PostgresStorage implements carprefs.Storage using PostgreSQL.
type PostgresStorage struct {
	db    *sql.DB
	codec codec
}

// NewPostgresStorage connects using connString and runs migrations.
func NewPostgresStorage(connString string, opts ...Option) (*PostgresStorage, error) {
	db, err := sqlOpenFunc("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to open database connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: failed to ping database: %w", err)
	}

	o := buildOptions(opts)
	storage := &PostgresStorage{db: db, codec: codec{encryptor: o.encryptor}}
	if err := storage.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: failed to run migrations: %w", err)
	}

	return storage, nil
}

// migrate runs the necessary database migrations.
func (s *PostgresStorage) migrate() error {
	if _, err := s.db.Exec(createTableSQL); err != nil {
		return fmt.Errorf("postgres: failed to execute create table statement: %w", err)
	}
	return nil
}

// GetAttributes returns the user's document, or carprefs.ErrNotFound.
func (s *PostgresStorage) GetAttributes(ctx context.Context, userID string) (carprefs.Document, error) {
	var document []byte
	err := s.db.QueryRowContext(ctx, selectSQL, userID).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return carprefs.Document{}, carprefs.ErrNotFound
	}
	if err != nil {
		return carprefs.Document{}, fmt.Errorf("postgres: failed to scan document for user '%s': %w", userID, err)
	}

	doc, err := s.codec.decode(document)
	if err != nil {
		return carprefs.Document{}, fmt.Errorf("postgres: failed to decode document for user '%s': %w", userID, err)
	}
	return doc, nil
}

// SaveAttributes stores or replaces the user's document.
func (s *PostgresStorage) SaveAttributes(ctx context.Context, userID string, doc carprefs.Document) error {
	data, err := s.codec.encode(doc)
	if err != nil {
		return fmt.Errorf("postgres: failed to encode document for user '%s': %w", userID, err)
	}

	if _, err := s.db.ExecContext(ctx, upsertSQL, userID, data); err != nil {
		return fmt.Errorf("postgres: failed to execute upsert for user '%s': %w", userID, err)
	}
	return nil
}

// Close closes the PostgreSQL database connection.
func (s *PostgresStorage) Close() error {
	return s.db.Close()
}
