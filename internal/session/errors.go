// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"fmt"
)

// TurnErrorKind classifies why a turn did not complete.
type TurnErrorKind int

const (
	// EmptyInput means the submitted text was blank. Nothing changed.
	EmptyInput TurnErrorKind = iota + 1
	// PersistenceFailure means a message could not be written to the store.
	PersistenceFailure
	// CompletionFailure means the model call failed or timed out.
	CompletionFailure
	// Busy means another turn was running and the policy rejects overlap.
	Busy
)

// String returns the kind name.
func (k TurnErrorKind) String() string {
	switch k {
	case EmptyInput:
		return "EmptyInput"
	case PersistenceFailure:
		return "PersistenceFailure"
	case CompletionFailure:
		return "CompletionFailure"
	case Busy:
		return "Busy"
	default:
		return "Unknown"
	}
}

// Sentinels for errors.Is checks.
var (
	ErrEmptyInput         = &TurnError{Kind: EmptyInput}
	ErrPersistenceFailure = &TurnError{Kind: PersistenceFailure}
	ErrCompletionFailure  = &TurnError{Kind: CompletionFailure}
	ErrBusy               = &TurnError{Kind: Busy}
)

// TurnError reports a failed turn.
type TurnError struct {
	Kind   TurnErrorKind
	TurnID string
	// Reply holds the assistant text when the model answered but the
	// answer could not be persisted.
	Reply string
	Err   error
}

// Error implements the error interface.
func (e *TurnError) Error() string {
	if e.Err == nil {
		return "turn: " + e.Kind.String()
	}
	return fmt.Sprintf("turn: %s: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *TurnError) Unwrap() error {
	return e.Err
}

// Is matches any TurnError of the same Kind.
func (e *TurnError) Is(target error) bool {
	t, ok := target.(*TurnError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf returns the Kind of a turn error, or 0 if err is not one.
func KindOf(err error) TurnErrorKind {
	var te *TurnError
	if errors.As(err, &te) {
		return te.Kind
	}
	return 0
}

// UnsavedReply returns the assistant text carried by a PersistenceFailure.
func UnsavedReply(err error) (string, bool) {
	var te *TurnError
	if errors.As(err, &te) && te.Reply != "" {
		return te.Reply, true
	}
	return "", false
}
