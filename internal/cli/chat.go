// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat command handler for rigchat.
//
// Command: chat (default)
//
// Interactive Commands (during chat):
//   /help, /h           Show available commands
//   /history            Show conversation history
//   /export [FILE]      Export the conversation as JSON
//   /reset, /clear      Delete the conversation and start over
//   /quit, /q           Exit chat
//   Ctrl+C              Cancel current generation (exit at the prompt)
//   Ctrl+D              Exit chat

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/credential"
	"github.com/jeranaias/rigchat/internal/export"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/session"
	"github.com/jeranaias/rigchat/internal/ui/history"
	"github.com/jeranaias/rigchat/internal/ui/styles"
	"github.com/jeranaias/rigchat/internal/util"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// LineReader reads one line of input. *liner.State satisfies it.
type LineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// ChatCLI provides line editing and persistent input history.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a ChatCLI whose history lives next to the config.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}
	c := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "input_history"),
	}
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
	return c
}

// Prompt implements LineReader.
func (c *ChatCLI) Prompt(prompt string) (string, error) {
	return c.line.Prompt(prompt)
}

// AppendHistory implements LineReader.
func (c *ChatCLI) AppendHistory(item string) {
	c.line.AppendHistory(item)
}

// Close saves input history with 0600 permissions and restores the terminal.
func (c *ChatCLI) Close() {
	if err := os.MkdirAll(filepath.Dir(c.historyFile), 0700); err == nil {
		if f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			c.line.WriteHistory(f)
			f.Close()
		}
	}
	c.line.Close()
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// HandleChat runs the interactive chat loop.
func HandleChat(ctx context.Context, app *App, args Args) error {
	if err := app.Connect(ctx, credential.NewTerminalPrompter()); err != nil {
		return err
	}

	input := NewChatCLI()
	defer input.Close()

	markdown := app.Config.UI.Markdown && IsStdoutTTY()
	r := newREPL(app, input, markdown)
	r.quiet = args.Quiet
	r.pager = app.Config.UI.HistoryPager && IsTTY() && IsStdoutTTY()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			if r.cancelTurn() {
				fmt.Fprintln(app.ErrOut, "\n"+styles.WarningLine("Cancelled"))
			}
		}
	}()

	return r.run(ctx)
}

// =============================================================================
// REPL
// =============================================================================

type repl struct {
	app      *App
	in       LineReader
	out      io.Writer
	errOut   io.Writer
	markdown bool
	render   func(string) string
	quiet    bool
	pager    bool

	mu     sync.Mutex
	cancel context.CancelFunc
}

func newREPL(app *App, in LineReader, markdown bool) *repl {
	r := &repl{
		app:      app,
		in:       in,
		out:      app.Out,
		errOut:   app.ErrOut,
		markdown: markdown,
		render:   plainRenderer,
	}
	if markdown {
		r.render = newMarkdownRenderer(GetTerminalWidth() - 4)
	}
	return r
}

// run reads lines until /quit, Ctrl+D or Ctrl+C at the prompt.
func (r *repl) run(ctx context.Context) error {
	if !r.quiet {
		r.printWelcome()
	}

	for {
		line, err := r.in.Prompt(promptStyle.Render("you> "))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(r.out)
				fmt.Fprintln(r.out, infoStyle.Render("Goodbye!"))
				return nil
			}
			return err
		}

		input := strings.TrimSpace(norm.NFC.String(line))
		if input == "" {
			continue
		}
		r.in.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			if !r.handleSlashCommand(ctx, input) {
				fmt.Fprintln(r.out, infoStyle.Render("Goodbye!"))
				return nil
			}
			continue
		}
		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			fmt.Fprintln(r.out, infoStyle.Render("Goodbye!"))
			return nil
		}

		r.submit(ctx, input)
		if ctx.Err() != nil {
			return nil
		}
	}
}

// submit runs one turn and prints the reply or the failure.
func (r *repl) submit(ctx context.Context, input string) {
	turnCtx, cancel := context.WithCancel(ctx)
	r.setCancel(cancel)
	defer func() {
		r.setCancel(nil)
		cancel()
	}()

	fmt.Fprintln(r.out)
	fmt.Fprint(r.out, styles.RoleLabel(model.RoleAssistant)+"\n")

	streamed := false
	onDelta := func(delta string) {
		if r.markdown {
			return
		}
		streamed = true
		fmt.Fprint(r.out, delta)
	}

	reply, err := r.app.Session.SubmitUserTurn(turnCtx, input, onDelta)
	if err != nil {
		if streamed {
			fmt.Fprintln(r.out)
		}
		r.showTurnError(err, streamed)
		return
	}

	if r.markdown {
		fmt.Fprint(r.out, r.render(reply.Content))
	} else {
		fmt.Fprintln(r.out)
	}
	fmt.Fprintln(r.out)
}

// showTurnError explains a failed turn. A reply that could not be saved
// is printed (unless it already streamed) and is not kept anywhere.
func (r *repl) showTurnError(err error, streamed bool) {
	fmt.Fprintln(r.errOut, styles.ErrorLine(DescribeError(err)))
	if reply, ok := session.UnsavedReply(err); ok {
		if !streamed {
			fmt.Fprint(r.out, r.render(reply))
		}
		fmt.Fprintln(r.errOut, styles.WarningLine("This reply is shown once and is not in the saved history."))
	}
	r.app.Logger.Warn("turn_failed", "err", err)
}

func (r *repl) setCancel(cancel context.CancelFunc) {
	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()
}

// cancelTurn cancels the running turn and reports whether there was one.
func (r *repl) cancelTurn() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel == nil {
		return false
	}
	r.cancel()
	r.cancel = nil
	return true
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand processes slash commands. It returns false to exit.
func (r *repl) handleSlashCommand(ctx context.Context, input string) bool {
	parts := strings.Fields(input)
	command := strings.ToLower(parts[0])
	args := parts[1:]

	switch command {
	case "/help", "/h", "/?", "/":
		r.printHelp()

	case "/reset", "/clear", "/c":
		if err := r.app.Session.Reset(ctx); err != nil {
			DisplayError(r.errOut, err)
			return true
		}
		fmt.Fprintln(r.out, styles.SuccessLine("Conversation cleared"))

	case "/export":
		opts := export.Options{OutputDir: r.app.Config.Storage.ExportDir}
		if len(args) > 0 {
			opts.Path = args[0]
		}
		doc, err := r.app.Session.ExportHistory(ctx)
		if err != nil {
			DisplayError(r.errOut, err)
			return true
		}
		path, err := export.WriteDocument(doc, ".json", opts)
		if err != nil {
			DisplayError(r.errOut, err)
			return true
		}
		fmt.Fprintln(r.out, styles.SuccessLine("Exported to "+path))

	case "/history":
		msgs := r.app.Session.Transcript()
		if r.pager {
			if err := history.Run(msgs); err != nil {
				DisplayError(r.errOut, err)
			}
			return true
		}
		printHistory(r.out, msgs)

	case "/quit", "/q", "/exit":
		return false

	default:
		fmt.Fprintln(r.errOut, styles.ErrorLine("Unknown command: "+command+" (type /help for commands)"))
	}
	return true
}

// =============================================================================
// DISPLAY FUNCTIONS
// =============================================================================

func (r *repl) printWelcome() {
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, welcomeStyle.Render("rigchat"))
	fmt.Fprintln(r.out, styles.Rule.Render(strings.Repeat("─", 30)))
	fmt.Fprintf(r.out, "%s %s\n", infoStyle.Render("Model:"), commandStyle.Render(r.app.ProviderLabel()))

	if n := len(r.app.Session.Transcript()); n > 0 {
		fmt.Fprintf(r.out, "%s %d messages restored\n", infoStyle.Render("History:"), n)
	}
	if err := r.app.Session.Corrupt(); err != nil {
		fmt.Fprintln(r.out, styles.WarningLine("The saved conversation is corrupt. Use /reset to start over."))
	}

	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, infoStyle.Render("Type your message and press Enter. Commands: /help, /quit"))
	fmt.Fprintln(r.out)
}

func (r *repl) printHelp() {
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, styles.Title.Render("Available Commands"))
	fmt.Fprintln(r.out)

	commands := []struct {
		cmd  string
		desc string
	}{
		{"/help, /h", "Show this help"},
		{"/history", "Show the conversation so far"},
		{"/export [FILE]", "Export the conversation as JSON"},
		{"/reset, /clear", "Delete the conversation and start over"},
		{"/quit, /q", "Exit chat"},
	}
	for _, c := range commands {
		fmt.Fprintf(r.out, "  %s  %s\n",
			commandStyle.Render(util.PadRight(c.cmd, 16)),
			infoStyle.Render(c.desc))
	}

	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, infoStyle.Render("Tip: Ctrl+C cancels the current reply, Ctrl+D exits"))
	fmt.Fprintln(r.out)
}

// printHistory prints one truncated line per message.
func printHistory(w io.Writer, msgs []model.Message) {
	if len(msgs) == 0 {
		fmt.Fprintln(w, infoStyle.Render("[No messages yet]"))
		return
	}

	width := GetTerminalWidth() - 24
	fmt.Fprintln(w)
	for i, msg := range msgs {
		label := styles.RoleLabel(msg.Role)
		fmt.Fprintf(w, "  %3d. %s%s %s\n",
			i+1,
			label,
			strings.Repeat(" ", max(0, 10-lipgloss.Width(label))),
			util.Truncate(util.SingleLine(msg.Content), width))
	}
	fmt.Fprintln(w)
}
