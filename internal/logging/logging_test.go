// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"", slog.LevelInfo, false},
		{"WARN", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tc := range tests {
		got, err := ParseLevel(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestNew_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "rigchat.log")
	logger, closer, err := New(path, "info")
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("turn_completed", "messages", 2)
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "msg=turn_completed")
	assert.Contains(t, string(data), "messages=2")
	assert.NotContains(t, string(data), "hidden")
}

func TestFromContext_AddsTurnID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriter(&buf, slog.LevelInfo)

	ctx := WithTurnID(context.Background(), "abc123")
	FromContext(ctx, logger).Info("turn_started")
	assert.Contains(t, buf.String(), "turn_id=abc123")

	buf.Reset()
	FromContext(context.Background(), logger).Info("turn_started")
	assert.NotContains(t, buf.String(), "turn_id")
}
