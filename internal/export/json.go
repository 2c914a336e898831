// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/storage"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports the conversation as an array of {role, content,
// timestamp} records. Its output is byte-for-byte the same document the
// store produces, so a file export and an API export always agree.
type JSONExporter struct{}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter() *JSONExporter {
	return &JSONExporter{}
}

// Export converts messages to JSON.
func (e *JSONExporter) Export(msgs []model.Message) ([]byte, error) {
	return storage.MarshalDocument(msgs)
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
