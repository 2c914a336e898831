// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/rigchat/internal/model"
)

// Text styles shared by the REPL and the history pager.
var (
	UserLabel      = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	AssistantLabel = lipgloss.NewStyle().Foreground(Purple).Bold(true)
	Body           = lipgloss.NewStyle().Foreground(TextPrimary)
	Muted          = lipgloss.NewStyle().Foreground(TextMuted)
	Error          = lipgloss.NewStyle().Foreground(Rose).Bold(true)
	Warning        = lipgloss.NewStyle().Foreground(Amber).Bold(true)
	Success        = lipgloss.NewStyle().Foreground(Emerald)
	Command        = lipgloss.NewStyle().Foreground(Cyan)
	Rule           = lipgloss.NewStyle().Foreground(Overlay)
	Title          = lipgloss.NewStyle().Foreground(Purple).Bold(true)
)

// RoleLabel returns the styled display name for a role.
func RoleLabel(role model.Role) string {
	switch role {
	case model.RoleUser:
		return UserLabel.Render(role.DisplayName())
	case model.RoleAssistant:
		return AssistantLabel.Render(role.DisplayName())
	default:
		return Muted.Render(role.DisplayName())
	}
}

// ErrorLine renders an error message with its indicator.
func ErrorLine(msg string) string {
	return Error.Render(StatusIndicators.Error + " " + msg)
}

// WarningLine renders a warning with its indicator.
func WarningLine(msg string) string {
	return Warning.Render(StatusIndicators.Warning + " " + msg)
}

// SuccessLine renders a confirmation with its indicator.
func SuccessLine(msg string) string {
	return Success.Render(StatusIndicators.Success + " " + msg)
}

// InfoLine renders a muted informational line.
func InfoLine(msg string) string {
	return Muted.Render(StatusIndicators.Info + " " + msg)
}
