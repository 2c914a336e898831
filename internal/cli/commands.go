// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// commands.go - Non-interactive command handlers.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/credential"
	"github.com/jeranaias/rigchat/internal/export"
	"github.com/jeranaias/rigchat/internal/server"
	"github.com/jeranaias/rigchat/internal/storage"
	"github.com/jeranaias/rigchat/internal/ui/history"
	"github.com/jeranaias/rigchat/internal/ui/styles"
)

// Run executes cmd. Commands that touch the conversation open an App
// for the duration of the call.
func Run(ctx context.Context, cmd Command, args Args) error {
	switch cmd {
	case CmdVersion:
		PrintVersion(os.Stdout)
		return nil
	case CmdHelp:
		PrintUsage(os.Stdout)
		return nil
	case CmdUnknown:
		return &UsageError{Reason: fmt.Sprintf("unknown command %q", args.Raw[0]), Hint: "rigchat help"}
	case CmdConfig:
		return HandleConfig(os.Stdout, args)
	}

	app, err := OpenApp(ctx, args)
	if err != nil {
		if cmd == CmdReset && errors.Is(err, storage.ErrCorruptData) {
			return resetUnreadableDatabase(ctx, args, os.Stdin, os.Stdout, os.Stderr)
		}
		return err
	}
	defer app.Close()

	switch cmd {
	case CmdChat:
		return HandleChat(ctx, app, args)
	case CmdExport:
		return HandleExport(ctx, app, args)
	case CmdHistory:
		return HandleHistory(ctx, app, args)
	case CmdReset:
		return HandleReset(ctx, app, args)
	case CmdServe:
		return HandleServe(ctx, app, args)
	default:
		return &UsageError{Reason: "unsupported command", Hint: "rigchat help"}
	}
}

// =============================================================================
// EXPORT
// =============================================================================

// HandleExport writes the saved conversation to a file. JSON output is the
// store's export document; markdown is rendered from the same records.
func HandleExport(ctx context.Context, app *App, args Args) error {
	exporter, err := export.ForFormat(args.Format)
	if err != nil {
		return &UsageError{Reason: err.Error(), Hint: "rigchat export [--format json|md] [-o FILE]"}
	}
	opts := export.Options{Path: args.Output, OutputDir: app.Config.Storage.ExportDir}

	var path string
	if exporter.FileExtension() == ".json" {
		doc, err := app.Session.ExportHistory(ctx)
		if err != nil {
			return err
		}
		path, err = export.WriteDocument(doc, exporter.FileExtension(), opts)
		if err != nil {
			return err
		}
	} else {
		msgs, err := app.Messages(ctx)
		if err != nil {
			return err
		}
		path, err = export.ExportToFile(msgs, exporter, opts)
		if err != nil {
			return err
		}
	}

	app.Logger.Info("history_exported", "path", path, "format", exporter.MimeType())
	if !args.Quiet {
		fmt.Fprintln(app.Out, styles.SuccessLine("Exported to "+path))
	}
	return nil
}

// =============================================================================
// HISTORY
// =============================================================================

// HandleHistory shows the saved conversation, in the pager when enabled
// and attached to a terminal.
func HandleHistory(ctx context.Context, app *App, args Args) error {
	msgs, err := app.Messages(ctx)
	if err != nil {
		return err
	}
	if !args.Plain && app.Config.UI.HistoryPager && IsTTY() && IsStdoutTTY() {
		return history.Run(msgs)
	}
	printHistory(app.Out, msgs)
	return nil
}

// =============================================================================
// RESET
// =============================================================================

// HandleReset deletes the saved conversation after confirmation.
func HandleReset(ctx context.Context, app *App, args Args) error {
	count, err := app.Store.Count(ctx)
	if err != nil {
		return err
	}
	if count == 0 && app.Session.Corrupt() == nil {
		fmt.Fprintln(app.Out, infoStyle.Render("Nothing to reset."))
		return nil
	}

	ok, err := RequireConfirmation(app.In, app.ErrOut,
		fmt.Sprintf("delete %d saved messages", count),
		ConfirmationOptions{Yes: args.Yes, Interactive: IsTTY()})
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(app.Out, infoStyle.Render("Cancelled."))
		return nil
	}

	if err := app.Session.Reset(ctx); err != nil {
		return err
	}
	fmt.Fprintln(app.Out, styles.SuccessLine("Conversation cleared"))
	return nil
}

// resetUnreadableDatabase handles reset when the database file cannot be
// opened at all. The file is moved aside rather than deleted.
func resetUnreadableDatabase(ctx context.Context, args Args, in io.Reader, out, errOut io.Writer) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	path := cfg.Storage.DatabasePath

	fmt.Fprintln(errOut, styles.WarningLine("The conversation database "+path+" is unreadable."))
	ok, err := RequireConfirmation(in, errOut,
		"move it aside and start a new conversation",
		ConfirmationOptions{Yes: args.Yes, Interactive: IsTTY()})
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(out, infoStyle.Render("Cancelled."))
		return nil
	}

	dest, err := storage.MoveAside(path, time.Now())
	if err != nil {
		return err
	}
	app, err := OpenApp(ctx, args)
	if err != nil {
		return err
	}
	defer app.Close()

	app.Logger.Warn("corrupt_database_moved", "path", path, "moved_to", dest)
	fmt.Fprintln(out, styles.SuccessLine("Conversation cleared"))
	fmt.Fprintln(out, infoStyle.Render("The unreadable file was kept at "+dest))
	return nil
}

// =============================================================================
// SERVE
// =============================================================================

// HandleServe serves the conversation over HTTP until ctx is cancelled.
func HandleServe(ctx context.Context, app *App, args Args) error {
	if err := app.Connect(ctx, credential.NewTerminalPrompter()); err != nil {
		return err
	}

	addr := args.Addr
	if addr == "" {
		addr = app.Config.Server.Addr
	}
	srv := server.New(addr, app.Session, app.Logger, Version)
	if !args.Quiet {
		fmt.Fprintln(app.Out, styles.InfoLine("Serving "+app.ProviderLabel()+" on http://"+srv.Addr()))
	}
	return srv.ListenAndServe(ctx)
}

// =============================================================================
// CONFIG
// =============================================================================

// HandleConfig handles "config [show|init|path|get KEY]".
func HandleConfig(w io.Writer, args Args) error {
	path := args.ConfigPath
	if path == "" {
		p, err := config.ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	switch args.Subcommand {
	case "", "show":
		cfg, err := loadConfig(args)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "# %s\n", path)
		fmt.Fprint(w, cfg.String())
		return nil

	case "path":
		fmt.Fprintln(w, path)
		return nil

	case "init":
		if _, err := os.Stat(path); err == nil && !args.Force {
			return &UsageError{Reason: path + " already exists", Hint: "rigchat config init --force"}
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err := config.Save(config.Default(), path); err != nil {
			return err
		}
		fmt.Fprintln(w, styles.SuccessLine("Wrote "+path))
		return nil

	case "get":
		if args.ConfigKey == "" {
			return &UsageError{Reason: "missing key", Hint: "rigchat config get provider.model"}
		}
		cfg, err := loadConfig(args)
		if err != nil {
			return err
		}
		v, err := cfg.Get(args.ConfigKey)
		if err != nil {
			return &UsageError{Reason: err.Error(), Hint: "rigchat config get provider.model"}
		}
		fmt.Fprintln(w, config.FormatValue(v))
		return nil

	default:
		return &UsageError{
			Reason: fmt.Sprintf("unknown config subcommand %q", args.Subcommand),
			Hint:   "rigchat config [show|init|path|get KEY]",
		}
	}
}
