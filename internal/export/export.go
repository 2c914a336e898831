// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/util"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter defines the interface for conversation exporters.
type Exporter interface {
	// Export converts messages to the target format and returns the content.
	Export(msgs []model.Message) ([]byte, error)

	// FileExtension returns the appropriate file extension (e.g., ".json", ".md").
	FileExtension() string

	// MimeType returns the MIME type for the exported format.
	MimeType() string
}

// ForFormat returns the exporter for a format name ("json" or "md").
func ForFormat(format string) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		return NewJSONExporter(), nil
	case "md", "markdown":
		return NewMarkdownExporter(true), nil
	default:
		return nil, fmt.Errorf("unknown export format %q (use json or md)", format)
	}
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures where an export is written.
type Options struct {
	// Path is an explicit output file. When set, OutputDir is ignored.
	Path string

	// OutputDir is the directory for generated file names.
	// Default: current working directory
	OutputDir string

	// Now is used for generated file names. Zero means time.Now().
	Now time.Time
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ExportToFile exports messages to a file using the given exporter and
// returns the output path. The file is written atomically.
func ExportToFile(msgs []model.Message, exporter Exporter, opts Options) (string, error) {
	content, err := exporter.Export(msgs)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}
	return WriteDocument(content, exporter.FileExtension(), opts)
}

// WriteDocument writes an already rendered document and returns its path.
// ext names generated files when opts.Path is empty.
func WriteDocument(content []byte, ext string, opts Options) (string, error) {
	outputPath := opts.Path
	if outputPath == "" {
		dir := opts.OutputDir
		if dir == "" {
			dir = "."
		}
		now := opts.Now
		if now.IsZero() {
			now = time.Now()
		}
		outputPath = filepath.Join(dir, filenameFor(ext, now))
	}

	if err := util.AtomicWriteFile(outputPath, content, 0600); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return outputPath, nil
}

func filenameFor(ext string, now time.Time) string {
	return "chat_history_" + now.Format("20060102_150405") + ext
}
