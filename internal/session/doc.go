// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session runs chat turns against the conversation store.
//
// A Controller owns the in-memory transcript for the single active
// conversation and keeps it equal to the persisted log after every turn
// and every reset. Turns are single-flight: a second submission either
// waits for the running turn or is rejected with ErrBusy, depending on the
// configured BusyPolicy.
//
// # Turn Lifecycle
//
//	Idle -> UserAppended -> AwaitingCompletion -> Idle
//
// The user message is persisted before the model is called. If that write
// fails it is rolled back from memory and the model is never contacted.
// A failed completion keeps the user message. A reply that cannot be
// persisted is returned inside the TurnError so it can still be shown.
//
// # Key Types
//
//   - Controller: Turn, reset and export entry points
//   - TurnError: Failure of a single turn, classified by Kind
//   - Reply: The assistant text and its turn identifier
//
// # Usage
//
//	ctrl := session.NewController(store, client, session.Options{})
//	if err := ctrl.Load(ctx); err != nil {
//	    // storage.ErrCorruptData: the user must reset before chatting
//	}
//	reply, err := ctrl.SubmitUserTurn(ctx, "hello", printDelta)
package session
