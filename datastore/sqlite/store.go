/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package sqlite provides a SQLite-backed DataStore. Entities are stored as
// JSON bodies in a single table, with the remote id and timestamps copied
// into columns for indexed lookups.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/suparena/remotestore/datastore"
	"github.com/suparena/remotestore/errors"
	"github.com/suparena/remotestore/registry"
	"github.com/suparena/remotestore/storagemodels"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

const memoryPath = ":memory:"

// DB is an open SQLite database shared by the typed stores.
type DB struct {
	sqlDB *sql.DB
}

// Open creates or opens the SQLite database at path and applies the schema.
// The special path ":memory:" opens a private in-memory database.
func Open(path string) (*DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := memoryPath
	if path != memoryPath {
		dsn = filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	}

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// SQLite has a single writer, and an in-memory database lives only as
	// long as its connection.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schemaSQL); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &DB{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (db *DB) Close() error {
	if db == nil || db.sqlDB == nil {
		return nil
	}
	return db.sqlDB.Close()
}

// Store implements datastore.DataStore[T] for one entity type.
type Store[T any] struct {
	db         *DB
	entityType registry.EntityType
}

var _ datastore.DataStore[struct{}] = (*Store[struct{}])(nil)

// NewDataStore binds a typed store to db.
func NewDataStore[T any](db *DB, entityType registry.EntityType) (*Store[T], error) {
	if db == nil || db.sqlDB == nil {
		return nil, fmt.Errorf("sqlite db is not configured")
	}
	if err := entityType.Validate(); err != nil {
		return nil, err
	}
	return &Store[T]{db: db, entityType: entityType}, nil
}

// GetOne retrieves the entity with the given object id.
func (s *Store[T]) GetOne(ctx context.Context, objectID string) (*T, error) {
	row := s.db.sqlDB.QueryRowContext(ctx,
		`SELECT body FROM entities WHERE entity_type = ? AND object_id = ?`,
		s.entityType.Name, objectID)
	return s.scanOne(row, objectID)
}

// FindFirst returns the first entity, in insertion order, matching pred.
// Remote id lookups use the indexed column; other attributes are read from
// the JSON body.
func (s *Store[T]) FindFirst(ctx context.Context, pred storagemodels.Predicate) (*T, error) {
	if err := pred.Validate(); err != nil {
		return nil, err
	}

	if pred.IsRemoteID() {
		remoteID, ok := pred.Value.(string)
		if !ok {
			remoteID = fmt.Sprint(pred.Value)
		}
		row := s.db.sqlDB.QueryRowContext(ctx,
			`SELECT body FROM entities WHERE entity_type = ? AND remote_id = ? ORDER BY rowid LIMIT 1`,
			s.entityType.Name, remoteID)
		return s.scanOne(row, pred.String())
	}

	path := "$." + pred.Attribute
	if pred.Value == nil {
		row := s.db.sqlDB.QueryRowContext(ctx,
			`SELECT body FROM entities WHERE entity_type = ? AND json_extract(body, ?) IS NULL ORDER BY rowid LIMIT 1`,
			s.entityType.Name, path)
		return s.scanOne(row, pred.String())
	}

	value, err := sqlValue(pred.Value)
	if err != nil {
		return nil, err
	}
	row := s.db.sqlDB.QueryRowContext(ctx,
		`SELECT body FROM entities WHERE entity_type = ? AND json_extract(body, ?) = ? ORDER BY rowid LIMIT 1`,
		s.entityType.Name, path, value)
	return s.scanOne(row, pred.String())
}

// FindAll returns every entity of the store's type in insertion order.
func (s *Store[T]) FindAll(ctx context.Context) ([]T, error) {
	rows, err := s.db.sqlDB.QueryContext(ctx,
		`SELECT body FROM entities WHERE entity_type = ? ORDER BY rowid`,
		s.entityType.Name)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.entityType.Name, err)
	}
	defer rows.Close()

	results := make([]T, 0)
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.entityType.Name, err)
		}
		var entity T
		if err := json.Unmarshal([]byte(body), &entity); err != nil {
			return nil, fmt.Errorf("decode %s: %w", s.entityType.Name, err)
		}
		results = append(results, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", s.entityType.Name, err)
	}
	return results, nil
}

// Put inserts or replaces the entity. Replacing keeps the original insertion order.
func (s *Store[T]) Put(ctx context.Context, entity T) error {
	ro, ok := any(&entity).(storagemodels.RemoteObject)
	if !ok {
		return errors.NewValidationError("entity", fmt.Sprintf("%T does not embed RemoteFields", entity))
	}
	fields := ro.Remote()
	if fields.ObjectID == "" {
		return errors.NewValidationError(storagemodels.AttrObjectID, "must not be empty")
	}

	body, err := json.Marshal(&entity)
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.entityType.Name, err)
	}

	_, err = s.db.sqlDB.ExecContext(ctx, `
INSERT INTO entities (entity_type, object_id, remote_id, created_at, updated_at, body)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (entity_type, object_id) DO UPDATE SET
    remote_id = excluded.remote_id,
    created_at = excluded.created_at,
    updated_at = excluded.updated_at,
    body = excluded.body`,
		s.entityType.Name,
		fields.ObjectID,
		nullString(fields.RemoteID),
		nullMillis(fields.CreatedAt),
		nullMillis(fields.UpdatedAt),
		string(body),
	)
	if err != nil {
		return fmt.Errorf("put %s %q: %w", s.entityType.Name, fields.ObjectID, err)
	}
	return nil
}

// Delete removes the entity with the given object id.
func (s *Store[T]) Delete(ctx context.Context, objectID string) error {
	res, err := s.db.sqlDB.ExecContext(ctx,
		`DELETE FROM entities WHERE entity_type = ? AND object_id = ?`,
		s.entityType.Name, objectID)
	if err != nil {
		return fmt.Errorf("delete %s %q: %w", s.entityType.Name, objectID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s %q: %w", s.entityType.Name, objectID, err)
	}
	if affected == 0 {
		return errors.NewNotFoundError(s.entityType.Name, objectID)
	}
	return nil
}

func (s *Store[T]) scanOne(row *sql.Row, key string) (*T, error) {
	var body string
	if err := row.Scan(&body); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundError(s.entityType.Name, key)
		}
		return nil, fmt.Errorf("get %s %q: %w", s.entityType.Name, key, err)
	}
	entity := new(T)
	if err := json.Unmarshal([]byte(body), entity); err != nil {
		return nil, fmt.Errorf("decode %s %q: %w", s.entityType.Name, key, err)
	}
	return entity, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UTC().UnixMilli(), Valid: true}
}

// sqlValue converts a predicate value into the form json_extract yields for
// the same value in a JSON body.
func sqlValue(v any) (any, error) {
	switch tv := v.(type) {
	case string, bool, int64, float64:
		return tv, nil
	case int:
		return int64(tv), nil
	case int8:
		return int64(tv), nil
	case int16:
		return int64(tv), nil
	case int32:
		return int64(tv), nil
	case uint:
		return uintValue(uint64(tv))
	case uint8:
		return int64(tv), nil
	case uint16:
		return int64(tv), nil
	case uint32:
		return int64(tv), nil
	case uint64:
		return uintValue(tv)
	case float32:
		return float64(tv), nil
	case json.Number:
		if i, err := tv.Int64(); err == nil {
			return i, nil
		}
		f, err := tv.Float64()
		if err != nil {
			return nil, errors.NewValidationError("value", fmt.Sprintf("invalid number %q", tv))
		}
		return f, nil
	case time.Time:
		return tv.Format(time.RFC3339Nano), nil
	case *time.Time:
		if tv == nil {
			return nil, errors.NewValidationError("value", "nil time")
		}
		return tv.Format(time.RFC3339Nano), nil
	default:
		return nil, errors.NewValidationError("value", fmt.Sprintf("unsupported predicate value type %T", v))
	}
}

func uintValue(u uint64) (any, error) {
	if u > math.MaxInt64 {
		return float64(u), nil
	}
	return int64(u), nil
}
