// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package credential resolves the completion API key.
//
// Sources are consulted in a fixed order: the local secrets file, the
// optional AWS SSM parameter, then the process environment (and a .env
// file). When every source comes up empty the resolver returns ErrNotFound,
// which callers treat as the signal to ask the user.
//
// # Key Types
//
//   - Source: One place a key may live
//   - Resolver: Ordered list of sources
//   - Prompter: Asynchronous interactive entry
//
// # Usage
//
//	resolver := credential.ForProvider(ctx, cfg, logger)
//	cred, err := credential.Obtain(ctx, resolver, credential.NewTerminalPrompter())
//	if err != nil {
//	    return err
//	}
//	client := completion.New(cfg, cred.Value)
//
// Resolution is read-only: no source writes to the secrets file or the
// environment, and a prompted key lives only in memory.
package credential
