// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server exposes a chat session over a small JSON HTTP API.
//
// The server binds to loopback by default and drives the same session
// controller the REPL uses, so turns from both surfaces are serialized.
//
// # Endpoints
//
//   - GET    /healthz       - Liveness and message count
//   - GET    /api/messages  - Current transcript
//   - POST   /api/turns     - Submit {"text": "..."} and wait for the reply
//   - DELETE /api/messages  - Reset the conversation
//   - GET    /api/export    - Download the history document
//
// # Turn Errors
//
//   - 400 EmptyInput
//   - 409 Busy (reject policy, or a cancelled wait)
//   - 502 CompletionFailure
//   - 500 PersistenceFailure, with any unsaved reply in the "reply" field
//
// # Usage
//
//	srv := server.New(cfg.Server.Addr, controller, logger, version)
//	if err := srv.ListenAndServe(ctx); err != nil {
//		return err
//	}
package server
