// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - REPL styling and markdown rendering.

package cli

import (
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/rigchat/internal/ui/styles"
)

// init configures lipgloss for NO_COLOR, FORCE_COLOR and TTY detection.
func init() {
	lipgloss.SetColorProfile(GetColorProfile())
}

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)

	welcomeStyle = lipgloss.NewStyle().
			Foreground(styles.Purple).
			Bold(true)

	infoStyle    = styles.Muted
	commandStyle = styles.Command
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// newMarkdownRenderer returns a renderer for replies, or a pass-through
// when glamour cannot be initialized.
func newMarkdownRenderer(width int) func(string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return plainRenderer
	}
	return func(content string) string {
		rendered, err := r.Render(content)
		if err != nil {
			return content + "\n"
		}
		return rendered
	}
}

func plainRenderer(content string) string {
	return content + "\n"
}
