// Package sqlite provides a SQLite-backed implementation of the storage
// interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	sqlitemigrate "github.com/billy1976-servant/screenloom/internal/platform/storage/sqlitemigrate"
	"github.com/billy1976-servant/screenloom/internal/screen/filter"
	"github.com/billy1976-servant/screenloom/internal/storage"
	"github.com/billy1976-servant/screenloom/internal/storage/sqlite/migrations"
)

// Store persists the event log and screen documents in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// SaveLog replaces the stored event log payload.
func (s *Store) SaveLog(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO event_log (id, payload, updated_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		data,
		toMillis(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("save event log: %w", err)
	}
	return nil
}

// LoadLog returns the stored event log payload if any.
func (s *Store) LoadLog(ctx context.Context) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, false, fmt.Errorf("storage is not configured")
	}
	var payload []byte
	row := s.sqlDB.QueryRowContext(ctx, `SELECT payload FROM event_log WHERE id = 1`)
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("load event log: %w", err)
	}
	return payload, true, nil
}

// PutScreen inserts or replaces one screen document.
func (s *Store) PutScreen(ctx context.Context, record storage.ScreenRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	key := strings.TrimSpace(record.Key)
	if key == "" {
		return fmt.Errorf("screen key is required")
	}
	if len(record.Document) == 0 {
		return fmt.Errorf("screen document is required")
	}
	updatedAt := record.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO screens (key, document, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at`,
		key,
		[]byte(record.Document),
		toMillis(updatedAt),
	)
	if err != nil {
		return fmt.Errorf("put screen: %w", err)
	}
	return nil
}

// GetScreen returns one screen document by key.
func (s *Store) GetScreen(ctx context.Context, key string) (storage.ScreenRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.ScreenRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.ScreenRecord{}, fmt.Errorf("storage is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return storage.ScreenRecord{}, fmt.Errorf("screen key is required")
	}
	var (
		document  []byte
		updatedAt int64
	)
	row := s.sqlDB.QueryRowContext(ctx, `SELECT document, updated_at FROM screens WHERE key = ?`, key)
	if err := row.Scan(&document, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ScreenRecord{}, storage.ErrNotFound
		}
		return storage.ScreenRecord{}, fmt.Errorf("get screen: %w", err)
	}
	return storage.ScreenRecord{
		Key:       key,
		Document:  json.RawMessage(document),
		UpdatedAt: fromMillis(updatedAt),
	}, nil
}

// ListScreens returns all stored screen documents ordered by key.
func (s *Store) ListScreens(ctx context.Context) ([]storage.ScreenRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT key, document, updated_at FROM screens ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list screens: %w", err)
	}
	defer rows.Close()

	var records []storage.ScreenRecord
	for rows.Next() {
		var (
			key       string
			document  []byte
			updatedAt int64
		)
		if err := rows.Scan(&key, &document, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan screen row: %w", err)
		}
		records = append(records, storage.ScreenRecord{
			Key:       key,
			Document:  json.RawMessage(document),
			UpdatedAt: fromMillis(updatedAt),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list screens: %w", err)
	}
	return records, nil
}

// QueryScreens returns screens matching an AIP-160 filter expression,
// ordered by key. An empty filter matches everything.
func (s *Store) QueryScreens(ctx context.Context, filterStr string) ([]storage.ScreenRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	condition, err := filter.ParseScreenFilter(filterStr)
	if err != nil {
		return nil, fmt.Errorf("parse screen filter: %w", err)
	}
	query := `SELECT key, document, updated_at FROM screens`
	if condition.Clause != "" {
		query += " WHERE " + condition.Clause
	}
	query += " ORDER BY key"

	rows, err := s.sqlDB.QueryContext(ctx, query, condition.Params...)
	if err != nil {
		return nil, fmt.Errorf("query screens: %w", err)
	}
	defer rows.Close()

	var records []storage.ScreenRecord
	for rows.Next() {
		var (
			key       string
			document  []byte
			updatedAt int64
		)
		if err := rows.Scan(&key, &document, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan screen row: %w", err)
		}
		records = append(records, storage.ScreenRecord{
			Key:       key,
			Document:  json.RawMessage(document),
			UpdatedAt: fromMillis(updatedAt),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query screens: %w", err)
	}
	return records, nil
}

// DeleteScreen removes one screen document.
func (s *Store) DeleteScreen(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("screen key is required")
	}
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM screens WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("delete screen: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete screen: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

var (
	_ storage.EventLogStore = (*Store)(nil)
	_ storage.ScreenStore   = (*Store)(nil)
)
