// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and usage text for rigchat.
package cli

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdChat Command = iota
	CmdExport
	CmdHistory
	CmdReset
	CmdServe
	CmdConfig
	CmdVersion
	CmdHelp
	CmdUnknown
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	ConfigPath string
	Quiet      bool
	Verbose    bool
	Provider   string
	Model      string

	// Command-specific
	Subcommand string
	ConfigKey  string
	Format     string
	Output     string
	Addr       string
	Yes        bool
	Plain      bool
	Force      bool

	// Raw args (remaining after the command word)
	Raw []string
}

const usageText = `rigchat - a terminal chat client with a persistent conversation

Every exchange is saved to a local SQLite database and restored on the
next start. The API key is read from the secrets file, AWS SSM (when
configured), the environment or a .env file, in that order, and is
requested interactively when none of them has one.

Usage:
  rigchat                          Start interactive chat (default)
  rigchat chat [-m MODEL]          Start interactive chat
  rigchat history [--plain]        Show the saved conversation
  rigchat export [--format json|md] [-o FILE]
                                   Write the conversation to a file
  rigchat reset [--yes]            Delete the saved conversation
  rigchat serve [--addr HOST:PORT] Serve the conversation over HTTP
  rigchat config [show|init|path|get KEY]
                                   Configuration
  rigchat version                  Show version
  rigchat help                     Show this help

Chat Commands:
  /help                 Show chat commands
  /history              Show the conversation so far
  /export [FILE]        Export the conversation as JSON
  /reset, /clear        Start over (deletes the saved conversation)
  /quit                 Exit

Global Flags:
  --config FILE         Use FILE instead of ~/.rigchat/config.toml
  --provider NAME       openai or anthropic
  --model NAME          Override the configured model
  -q, --quiet           Minimal output
  -v, --verbose         Debug logging

Environment:
  OPENAI_API_KEY, ANTHROPIC_API_KEY      API key (after the secrets file)
  RIGCHAT_PROVIDER, RIGCHAT_MODEL, RIGCHAT_BASE_URL, RIGCHAT_DB,
  RIGCHAT_LOG_LEVEL, RIGCHAT_SERVER_ADDR Configuration overrides

Examples:
  rigchat export --format md -o notes.md
  rigchat --provider anthropic chat
  rigchat serve --addr 127.0.0.1:9000

Version: %s
`

// PrintUsage writes the usage/help text.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// PrintVersion writes version information.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "rigchat version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
	fmt.Fprintf(w, "  Go:         %s\n", runtime.Version())
}

// Parse parses os.Args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses command-line arguments and returns the command and args.
func ParseArgs(argv []string) (Command, Args) {
	remaining, parsed := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdChat, parsed
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsed.Raw = remaining
	p := NewArgParser(remaining)

	switch cmd {
	case "chat":
		if m := p.Flag("m"); m != "" {
			parsed.Model = m
		}
		if m := p.Flag("model"); m != "" {
			parsed.Model = m
		}
		return CmdChat, parsed

	case "export":
		parsed.Format = p.FlagOrDefault("format", p.FlagOrDefault("f", "json"))
		parsed.Output = p.FlagOrDefault("output", p.Flag("o"))
		return CmdExport, parsed

	case "history", "log":
		parsed.Plain = p.BoolFlag("plain")
		return CmdHistory, parsed

	case "reset", "clear":
		parsed.Yes = p.BoolFlag("yes") || p.BoolFlag("y")
		return CmdReset, parsed

	case "serve", "server":
		parsed.Addr = p.Flag("addr")
		return CmdServe, parsed

	case "config":
		parsed.Subcommand = p.Subcommand()
		parsed.ConfigKey = p.Positional(1)
		parsed.Force = p.BoolFlag("force")
		return CmdConfig, parsed

	case "version", "--version":
		return CmdVersion, parsed

	case "help", "-h", "--help":
		return CmdHelp, parsed

	default:
		parsed.Raw = append([]string{cmd}, remaining...)
		return CmdUnknown, parsed
	}
}

// parseGlobalFlags extracts global flags and returns the remaining args.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsed Args

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-q", "--quiet":
			parsed.Quiet = true
		case "-v", "--verbose":
			parsed.Verbose = true
		case "--config", "--provider", "--model":
			if i+1 < len(args) {
				i++
				setGlobalValue(&parsed, strings.TrimPrefix(arg, "--"), args[i])
			}
		default:
			if name, value, ok := splitGlobal(arg); ok {
				setGlobalValue(&parsed, name, value)
			} else {
				remaining = append(remaining, arg)
			}
		}
	}

	return remaining, parsed
}

func splitGlobal(arg string) (name, value string, ok bool) {
	for _, name := range []string{"config", "provider", "model"} {
		prefix := "--" + name + "="
		if strings.HasPrefix(arg, prefix) {
			return name, strings.TrimPrefix(arg, prefix), true
		}
	}
	return "", "", false
}

func setGlobalValue(parsed *Args, name, value string) {
	switch name {
	case "config":
		parsed.ConfigPath = value
	case "provider":
		parsed.Provider = strings.ToLower(value)
	case "model":
		parsed.Model = value
	}
}
