// rigchat - a terminal chat client with a persistent conversation.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jeranaias/rigchat/internal/cli"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	// The chat REPL handles Ctrl+C itself to cancel a running reply.
	signals := []os.Signal{syscall.SIGTERM}
	if cmd != cli.CmdChat {
		signals = append(signals, os.Interrupt)
	}
	ctx, stop := signal.NotifyContext(context.Background(), signals...)

	err := cli.Run(ctx, cmd, args)
	stop()
	if err != nil {
		cli.DisplayError(os.Stderr, err)
		if cmd == cli.CmdUnknown {
			cli.PrintUsage(os.Stderr)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
