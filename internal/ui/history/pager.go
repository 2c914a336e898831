// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history shows the persisted conversation in a scrollable pager.
package history

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/ui/styles"
)

// =============================================================================
// PAGER MODEL
// =============================================================================

// Model is a read-only Bubble Tea model over a transcript.
type Model struct {
	viewport viewport.Model
	messages []model.Message
	ready    bool
	width    int
}

// New creates a pager for msgs. The viewport is sized on the first
// WindowSizeMsg.
func New(msgs []model.Message) Model {
	return Model{messages: msgs}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "g", "home":
			m.viewport.GotoTop()
			return m, nil
		case "G", "end":
			m.viewport.GotoBottom()
			return m, nil
		}

	case tea.WindowSizeMsg:
		height := msg.Height - lipgloss.Height(m.header()) - lipgloss.Height(m.footer())
		if height < 1 {
			height = 1
		}
		m.width = msg.Width
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		m.viewport.SetContent(Render(m.messages, msg.Width))
		m.viewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading history..."
	}
	return m.header() + "\n" + m.viewport.View() + "\n" + m.footer()
}

func (m Model) header() string {
	return styles.Title.Render(fmt.Sprintf("Chat history (%d messages)", len(m.messages)))
}

func (m Model) footer() string {
	percent := 100.0
	if m.ready {
		percent = m.viewport.ScrollPercent() * 100
	}
	return styles.Muted.Render(fmt.Sprintf("%3.0f%%  up/down scroll  g/G top/bottom  q quit", percent))
}

// =============================================================================
// RENDERING
// =============================================================================

// Render formats messages as plain labelled blocks wrapped to width.
func Render(msgs []model.Message, width int) string {
	if len(msgs) == 0 {
		return styles.Muted.Render("No messages yet.")
	}
	if width < 20 {
		width = 20
	}
	body := lipgloss.NewStyle().Width(width - 2).PaddingLeft(2)

	var sb strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(styles.RoleLabel(msg.Role))
		sb.WriteString(" ")
		sb.WriteString(styles.Muted.Render(msg.Timestamp.Local().Format("2006-01-02 15:04")))
		sb.WriteString("\n")
		sb.WriteString(body.Render(msg.Content))
		sb.WriteString("\n")
	}
	return sb.String()
}

// Run shows the pager full-screen until the user quits.
func Run(msgs []model.Message) error {
	_, err := tea.NewProgram(New(msgs), tea.WithAltScreen(), tea.WithMouseCellMotion()).Run()
	return err
}
