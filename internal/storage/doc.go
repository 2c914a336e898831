// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides conversation persistence for rigchat.
//
// Messages are kept in a single embedded SQLite database file with one
// logical table. Row order is insertion order, which is conversation order.
//
// # Key Types
//
//   - Store: Append-only message log with ReadAll, Clear, and ExportDocument
//   - StoreError: Storage failure tagged with a Kind (IOFailure, CorruptData)
//
// # Usage
//
//	store, err := storage.Open(path)
//	defer store.Close()
//
//	err = store.Append(ctx, model.NewUserMessage("hello"))
//	msgs, err := store.ReadAll(ctx)
//	doc, err := store.ExportDocument(ctx)
//
// # Storage Location
//
// The database lives at ~/.rigchat/chat_history.db unless configured.
// A file that SQLite cannot open at all is renamed by MoveAside to
// chat_history.db.corrupt-<timestamp> when the user resets.
package storage
