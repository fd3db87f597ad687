// Package storage provides a SQLite-based implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/CreativeUnicorns/carprefs"
)

const (
	sqliteCreateTableSQL = `
		CREATE TABLE IF NOT EXISTS user_documents (
			user_id TEXT NOT NULL PRIMARY KEY,
			document TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`

	sqliteUpsertSQL = `
		INSERT INTO user_documents (user_id, document, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id)
		DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at
	`

	sqliteSelectSQL = `
		SELECT document
		FROM user_documents
		WHERE user_id = ?
	`
)

// SQLiteStorage implements carprefs.Storage using SQLite.
type SQLiteStorage struct {
	db    *sql.DB
	codec codec
}

// NewSQLiteStorage connects to the SQLite database at dbPath and runs migrations.
func NewSQLiteStorage(dbPath string, opts ...Option) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to ping database: %w", err)
	}

	o := buildOptions(opts)
	storage := &SQLiteStorage{db: db, codec: codec{encryptor: o.encryptor}}
	if err := storage.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to run migrations: %w", err)
	}

	return storage, nil
}

// migrate runs the necessary database migrations.
func (s *SQLiteStorage) migrate() error {
	_, err := s.db.Exec(sqliteCreateTableSQL)
	return err
}

// GetAttributes returns the user's document, or carprefs.ErrNotFound.
func (s *SQLiteStorage) GetAttributes(ctx context.Context, userID string) (carprefs.Document, error) {
	var document string
	err := s.db.QueryRowContext(ctx, sqliteSelectSQL, userID).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return carprefs.Document{}, carprefs.ErrNotFound
	}
	if err != nil {
		return carprefs.Document{}, fmt.Errorf("sqlite: failed to get document for user '%s': %w", userID, err)
	}

	doc, err := s.codec.decode([]byte(document))
	if err != nil {
		return carprefs.Document{}, fmt.Errorf("sqlite: failed to decode document for user '%s': %w", userID, err)
	}
	return doc, nil
}

// SaveAttributes stores or replaces the user's document.
func (s *SQLiteStorage) SaveAttributes(ctx context.Context, userID string, doc carprefs.Document) error {
	data, err := s.codec.encode(doc)
	if err != nil {
		return fmt.Errorf("sqlite: failed to encode document for user '%s': %w", userID, err)
	}

	if _, err := s.db.ExecContext(ctx, sqliteUpsertSQL, userID, string(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("sqlite: failed to save document for user '%s': %w", userID, err)
	}
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
