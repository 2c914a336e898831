// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging configures the structured log file for rigchat.
//
// Logs never go to stdout: the REPL owns the terminal. Events are short
// snake_case messages with key/value attributes:
//
//	logger.Info("turn_completed", "turn_id", id, "messages", n)
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

type ctxKey string

const ctxKeyTurnID ctxKey = "turn_id"

// ParseLevel converts a config level name to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}

// New opens (appending) the log file at path and returns a text logger at
// the given level. The returned closer closes the file.
func New(path, level string) (*slog.Logger, io.Closer, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return NewWriter(f, lvl), f, nil
}

// NewWriter returns a text logger writing to w.
func NewWriter(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// WithTurnID stores a turn identifier in the context.
func WithTurnID(ctx context.Context, turnID string) context.Context {
	return context.WithValue(ctx, ctxKeyTurnID, turnID)
}

// TurnID returns the turn identifier stored in ctx, if any.
func TurnID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyTurnID).(string)
	return id
}

// FromContext adds turn_id to logger when ctx carries one.
func FromContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = Discard()
	}
	if id := TurnID(ctx); id != "" {
		return logger.With("turn_id", id)
	}
	return logger
}
