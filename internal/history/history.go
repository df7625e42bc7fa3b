// Package history persists finished conversions in a SQLite database so
// they can be listed and fetched again later.
package history

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mcncl/gotoon/internal/errors"
	"github.com/mcncl/gotoon/internal/models"
)

// DefaultListLimit caps List when the caller does not pick a limit.
const DefaultListLimit = 50

// Store is a SQLite-backed conversion history. The single connection
// serializes writers, so it is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens the history database at path, creating the file and schema as
// needed.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.NewStoreError("history database path is empty", errors.ErrInvalidFilePath)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.NewStoreError("failed to create history directory", err)
		}
	}

	dsn := fmt.Sprintf("%s?_busy_timeout=5000&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.NewStoreError("failed to open history database", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &Store{db: db}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	statements := []string{
		"PRAGMA journal_mode=WAL;",
		`CREATE TABLE IF NOT EXISTS conversions (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT 'Untitled Conversion',
			json_input TEXT NOT NULL,
			toon_output TEXT NOT NULL,
			json_tokens INTEGER NOT NULL DEFAULT 0,
			toon_tokens INTEGER NOT NULL DEFAULT 0,
			tokens_saved INTEGER NOT NULL DEFAULT 0,
			reduction_percent TEXT NOT NULL DEFAULT '0',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_conversions_created_at ON conversions(created_at);`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.NewStoreError("failed to initialise history schema", err)
		}
	}
	return nil
}

// Save inserts a conversion record, filling in the ID, default title, and
// timestamps, and returns the completed record.
func (s *Store) Save(ctx context.Context, record models.ConversionRecord) (models.ConversionRecord, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Title == "" {
		record.Title = models.DefaultTitle
	}
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversions (
			id, title, json_input, toon_output,
			json_tokens, toon_tokens, tokens_saved, reduction_percent,
			created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`, record.ID, record.Title, record.JSONInput, record.ToonOutput,
		record.JSONTokens, record.ToonTokens, record.TokensSaved, record.ReductionPercent,
		record.CreatedAt, record.UpdatedAt)
	if err != nil {
		return models.ConversionRecord{}, errors.NewStoreError("failed to save conversion", err)
	}
	return record, nil
}

// List returns persisted conversions, newest first. A limit of zero or less
// uses DefaultListLimit.
func (s *Store) List(ctx context.Context, limit int) ([]models.ConversionRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, json_input, toon_output,
			json_tokens, toon_tokens, tokens_saved, reduction_percent,
			created_at, updated_at
		FROM conversions
		ORDER BY created_at DESC, id
		LIMIT ?;
	`, limit)
	if err != nil {
		return nil, errors.NewStoreError("failed to list conversions", err)
	}
	defer rows.Close()

	var records []models.ConversionRecord
	for rows.Next() {
		record, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, errors.NewStoreError("failed to scan conversion row", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreError("failed to read conversion rows", err)
	}
	return records, nil
}

// Get fetches a single conversion by ID.
func (s *Store) Get(ctx context.Context, id string) (models.ConversionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, json_input, toon_output,
			json_tokens, toon_tokens, tokens_saved, reduction_percent,
			created_at, updated_at
		FROM conversions
		WHERE id = ?;
	`, id)
	record, err := scanRecord(row.Scan)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return models.ConversionRecord{}, errors.NewStoreError(
				fmt.Sprintf("conversion '%s' not found", id),
				errors.ErrNotFound,
			)
		}
		return models.ConversionRecord{}, errors.NewStoreError("failed to fetch conversion", err)
	}
	return record, nil
}

// Delete removes a conversion by ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM conversions WHERE id = ?;`, id)
	if err != nil {
		return errors.NewStoreError("failed to delete conversion", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.NewStoreError("failed to confirm deletion", err)
	}
	if affected == 0 {
		return errors.NewStoreError(
			fmt.Sprintf("conversion '%s' not found", id),
			errors.ErrNotFound,
		)
	}
	return nil
}

func scanRecord(scan func(dest ...any) error) (models.ConversionRecord, error) {
	var record models.ConversionRecord
	err := scan(
		&record.ID, &record.Title, &record.JSONInput, &record.ToonOutput,
		&record.JSONTokens, &record.ToonTokens, &record.TokensSaved, &record.ReductionPercent,
		&record.CreatedAt, &record.UpdatedAt,
	)
	return record, err
}
