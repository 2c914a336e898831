// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the rigchat packages.
//
// # Key Functions
//
//   - AtomicWriteFile: Crash-safe file writing with fsync and rename
//   - Truncate: Display-width aware truncation with ellipsis
//   - SingleLine: Collapses newlines for one-line previews
//
// # Usage
//
//	// Write an export atomically so readers never see a partial file
//	err := util.AtomicWriteFile(path, data, 0644)
//
//	// Shorten a message for a history listing
//	preview := util.Truncate(util.SingleLine(msg.Content), 60)
package util
