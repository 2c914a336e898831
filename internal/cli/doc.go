// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and the command handlers for
// rigchat.
//
// # Key Types
//
//   - Command: Enumeration of the available commands
//   - Args: Parsed global and command-specific flags
//   - App: Config, log, store and session controller for one invocation
//   - ArgParser: Flag parsing shared by every command
//
// # Usage
//
//	cmd, args := cli.Parse()
//	if err := cli.Run(ctx, cmd, args); err != nil {
//		cli.DisplayError(os.Stderr, err)
//		os.Exit(cli.GetExitCode(err))
//	}
//
// # Commands Overview
//
//   - chat: Interactive REPL (default)
//   - history: Print or page through the saved conversation
//   - export: Write the conversation as JSON or markdown
//   - reset: Delete the saved conversation
//   - serve: Local HTTP API over the same session
//   - config: Show, initialize or query configuration
package cli
