// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package completion streams assistant replies from a hosted model.
//
// Two providers are supported: any OpenAI-compatible chat/completions
// endpoint (read as Server-Sent Events) and the Anthropic Messages API
// (through the official SDK). Both stream text deltas to a callback and
// return the full reply when the stream ends.
//
// # Key Types
//
//   - Client: The interface the session controller depends on
//   - OpenAIClient: OpenAI-compatible SSE client
//   - AnthropicClient: Anthropic Messages client
//   - APIError: Non-2xx response from an OpenAI-compatible endpoint
//
// # Usage
//
//	client, err := completion.New(cfg, cred.Value)
//	reply, err := client.Complete(ctx, transcript, func(delta string) {
//	    fmt.Print(delta)
//	})
package completion
