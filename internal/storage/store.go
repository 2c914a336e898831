// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/rigchat/internal/model"
)

// =============================================================================
// STORE
// =============================================================================

// Store is the durable, ordered message log for the single active conversation.
//
// Store is safe for concurrent use. Writes hold an exclusive lock so a reader
// (export, reset) never observes a half-applied append.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.RWMutex
}

// Open opens or creates the database at path and ensures the schema exists.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, classify("open", fmt.Errorf("create database directory: %w", err))
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, classify("open", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, classify("open", fmt.Errorf("%s: %w", pragma, err))
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, classify("open", fmt.Errorf("initialize schema: %w", err))
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// MoveAside renames a database that cannot be opened, together with its
// -wal and -shm files, to <path>.corrupt-<timestamp> so a fresh database can
// be created in its place. It returns the new path of the main file.
func MoveAside(path string, now time.Time) (string, error) {
	dest := path + ".corrupt-" + now.UTC().Format("20060102_150405")
	if err := os.Rename(path, dest); err != nil {
		return "", &StoreError{Kind: IOFailure, Op: "move aside", Err: err}
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		err := os.Rename(path+suffix, dest+suffix)
		if err != nil && !os.IsNotExist(err) {
			return dest, &StoreError{Kind: IOFailure, Op: "move aside", Err: err}
		}
	}
	return dest, nil
}

// =============================================================================
// WRITE OPERATIONS
// =============================================================================

// Append durably records one message. The insert runs in its own transaction,
// so after a crash the message is either fully present or absent.
func (s *Store) Append(ctx context.Context, msg model.Message) error {
	if !msg.Role.Valid() {
		return fmt.Errorf("storage append: invalid role %q", msg.Role)
	}
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, "append", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, insertMessageSQL,
			string(msg.Role), msg.Content, ts.UTC().Format(time.RFC3339Nano))
		return err
	})
}

// Clear deletes every persisted message.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, "clear", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, deleteAllSQL)
		return err
	})
}

func (s *Store) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(op, err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return classify(op, err)
	}
	if err := tx.Commit(); err != nil {
		return classify(op, err)
	}
	return nil
}

// =============================================================================
// READ OPERATIONS
// =============================================================================

// ReadAll returns every message in insertion order. It returns an empty,
// non-nil slice when nothing was appended. Any row that cannot be decoded
// fails the whole read with CorruptData; partial results are never returned.
func (s *Store) ReadAll(ctx context.Context) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readAll(ctx)
}

func (s *Store) readAll(ctx context.Context) ([]model.Message, error) {
	rows, err := s.db.QueryContext(ctx, selectAllSQL)
	if err != nil {
		return nil, classify("read", err)
	}
	defer rows.Close()

	msgs := make([]model.Message, 0)
	for rows.Next() {
		var (
			id        int64
			role      string
			content   string
			createdAt string
		)
		if err := rows.Scan(&id, &role, &content, &createdAt); err != nil {
			return nil, corrupt("read", fmt.Errorf("row %d: %w", id, err))
		}
		r, err := model.ParseRole(role)
		if err != nil {
			return nil, corrupt("read", fmt.Errorf("row %d: %w", id, err))
		}
		ts, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, corrupt("read", fmt.Errorf("row %d: bad timestamp: %w", id, err))
		}
		msgs = append(msgs, model.Message{Role: r, Content: content, Timestamp: ts})
	}
	if err := rows.Err(); err != nil {
		return nil, classify("read", err)
	}
	return msgs, nil
}

// Count returns the number of persisted messages.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRowContext(ctx, countSQL).Scan(&n); err != nil {
		return 0, classify("count", err)
	}
	return n, nil
}

// =============================================================================
// EXPORT
// =============================================================================

// ExportDocument serializes the full log as an indented JSON array of
// {role, content, timestamp} records. It is a pure read.
func (s *Store) ExportDocument(ctx context.Context) ([]byte, error) {
	msgs, err := s.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	return MarshalDocument(msgs)
}

// MarshalDocument renders messages in the export document format.
func MarshalDocument(msgs []model.Message) ([]byte, error) {
	if msgs == nil {
		msgs = []model.Message{}
	}
	return json.MarshalIndent(msgs, "", "  ")
}
