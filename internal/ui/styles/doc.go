// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles holds the lipgloss palette and text styles for rigchat.
//
// All colors are AdaptiveColor values so light and dark terminals both
// read well. Status lines carry an ASCII marker ([OK], [X], [!], [i]) in
// addition to color.
package styles
