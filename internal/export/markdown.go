// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/rigchat/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports the conversation as a readable Markdown document.
type MarkdownExporter struct {
	includeTimestamps bool
	now               func() time.Time
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(includeTimestamps bool) *MarkdownExporter {
	return &MarkdownExporter{includeTimestamps: includeTimestamps, now: time.Now}
}

// Export converts messages to Markdown.
func (e *MarkdownExporter) Export(msgs []model.Message) ([]byte, error) {
	var sb strings.Builder

	sb.WriteString("# Chat History\n\n")
	sb.WriteString(fmt.Sprintf("- **Messages**: %d\n", len(msgs)))
	if len(msgs) > 0 {
		sb.WriteString(fmt.Sprintf("- **Started**: %s\n", formatTimestamp(msgs[0].Timestamp)))
	}
	sb.WriteString("\n---\n\n")

	for i, msg := range msgs {
		label := roleLabel(msg.Role)
		if e.includeTimestamps {
			sb.WriteString(fmt.Sprintf("### %s <sub>%s</sub>\n\n", label, formatShortTimestamp(msg.Timestamp)))
		} else {
			sb.WriteString(fmt.Sprintf("### %s\n\n", label))
		}

		// Content is already markdown
		sb.WriteString(strings.TrimSpace(msg.Content))
		sb.WriteString("\n\n")

		if i < len(msgs)-1 {
			sb.WriteString("---\n\n")
		}
	}

	sb.WriteString(fmt.Sprintf("\n*Exported from rigchat on %s*\n",
		e.now().Format("January 2, 2006 at 3:04 PM")))

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

func roleLabel(role model.Role) string {
	switch role {
	case model.RoleUser:
		return "[User]"
	case model.RoleAssistant:
		return "[Assistant]"
	case "":
		return "Unknown"
	default:
		return string(role)
	}
}

func formatTimestamp(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}

func formatShortTimestamp(t time.Time) string {
	return t.Local().Format("15:04:05")
}
