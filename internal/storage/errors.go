// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// =============================================================================
// ERROR KINDS
// =============================================================================

// ErrorKind classifies storage failures.
type ErrorKind int

const (
	// IOFailure covers disk full, permission denied, closed database, and
	// any other failure to read or write the file.
	IOFailure ErrorKind = iota + 1
	// CorruptData means the stored log cannot be trusted. Reads fail closed.
	CorruptData
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case IOFailure:
		return "IOFailure"
	case CorruptData:
		return "CorruptData"
	default:
		return "Unknown"
	}
}

// Sentinels for errors.Is checks.
// Use errors.Is(err, storage.ErrCorruptData) to detect corruption.
var (
	ErrIOFailure   = &StoreError{Kind: IOFailure}
	ErrCorruptData = &StoreError{Kind: CorruptData}
)

// StoreError reports a storage failure.
type StoreError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Op == "" && e.Err == nil {
		return "storage: " + e.Kind.String()
	}
	if e.Err == nil {
		return fmt.Sprintf("storage %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("storage %s: %s: %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is matches any StoreError of the same Kind, so the sentinels work with errors.Is.
func (e *StoreError) Is(target error) bool {
	t, ok := target.(*StoreError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf returns the Kind of a storage error, or 0 if err is not one.
func KindOf(err error) ErrorKind {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}

// classify wraps a driver error, mapping SQLite corruption codes to CorruptData.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *StoreError
	if errors.As(err, &existing) {
		return err
	}
	kind := IOFailure
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_CORRUPT, sqlite3.SQLITE_NOTADB:
			kind = CorruptData
		}
	}
	return &StoreError{Kind: kind, Op: op, Err: err}
}

func corrupt(op string, err error) error {
	return &StoreError{Kind: CorruptData, Op: op, Err: err}
}
