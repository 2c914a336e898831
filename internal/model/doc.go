// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat messages and transcripts.
//
// # Key Types
//
//   - Role: Message role enumeration (user, assistant)
//   - Message: Immutable message with role, content, and timestamp
//   - Transcript: Ordered in-memory sequence of messages for the active conversation
//
// # Usage
//
//	var t model.Transcript
//	t.Append(model.NewUserMessage("Hello!"))
//	for _, msg := range t.Messages() {
//	    fmt.Println(msg.Role.DisplayName(), msg.Content)
//	}
package model
