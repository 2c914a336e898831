// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigchat/internal/model"
)

func sample() []model.Message {
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	return []model.Message{
		{Role: model.RoleUser, Content: "first question", Timestamp: ts},
		{Role: model.RoleAssistant, Content: "first answer", Timestamp: ts},
	}
}

func TestRender(t *testing.T) {
	out := Render(sample(), 80)
	assert.Contains(t, out, "You")
	assert.Contains(t, out, "first question")
	assert.Contains(t, out, "Assistant")
	assert.Less(t, indexOf(out, "first question"), indexOf(out, "first answer"))

	assert.Contains(t, Render(nil, 80), "No messages yet.")
}

func TestModel_SizesOnWindowMsg(t *testing.T) {
	m := New(sample())
	assert.Equal(t, "Loading history...", m.View())

	updated, cmd := m.Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	assert.Nil(t, cmd)
	view := updated.View()
	assert.Contains(t, view, "Chat history (2 messages)")
	assert.Contains(t, view, "first answer")
	assert.Contains(t, view, "q quit")
}

func TestModel_QuitKeys(t *testing.T) {
	m, _ := New(sample()).Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune("q")},
		{Type: tea.KeyEsc},
		{Type: tea.KeyCtrlC},
	} {
		_, cmd := m.Update(key)
		require.NotNil(t, cmd, key.String())
		assert.IsType(t, tea.QuitMsg{}, cmd(), key.String())
	}
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
