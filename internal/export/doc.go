// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes the persisted conversation to a file.
//
// # Formats
//
//   - JSON: Array of {role, content, timestamp} records (the canonical export)
//   - Markdown: Human-readable transcript with role headings
//
// # Usage
//
//	path, err := export.ExportToFile(msgs, export.NewJSONExporter(), opts)
package export
