// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package credential

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// PromptResult carries what the user entered.
type PromptResult struct {
	Value string
	Err   error
}

// Prompter asks the user for a secret. The result arrives on the returned
// channel, which receives exactly one value.
type Prompter interface {
	Prompt(ctx context.Context, label string) <-chan PromptResult
}

// TerminalPrompter reads a key from the terminal without echo. When stdin
// is not a terminal it reads one line instead.
type TerminalPrompter struct {
	in  *os.File
	out io.Writer
}

// NewTerminalPrompter prompts on stderr and reads from stdin.
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{in: os.Stdin, out: os.Stderr}
}

// Prompt implements Prompter.
func (p *TerminalPrompter) Prompt(ctx context.Context, label string) <-chan PromptResult {
	ch := make(chan PromptResult, 1)
	go func() {
		fmt.Fprintf(p.out, "%s: ", label)
		fd := int(p.in.Fd())
		if term.IsTerminal(fd) {
			b, err := term.ReadPassword(fd)
			fmt.Fprintln(p.out)
			ch <- PromptResult{Value: string(b), Err: err}
			return
		}
		line, err := bufio.NewReader(p.in).ReadString('\n')
		if err == io.EOF && line != "" {
			err = nil
		}
		ch <- PromptResult{Value: strings.TrimRight(line, "\r\n"), Err: err}
	}()
	return ch
}

// FuncPrompter adapts a function to Prompter.
type FuncPrompter func(ctx context.Context, label string) (string, error)

// Prompt implements Prompter.
func (f FuncPrompter) Prompt(ctx context.Context, label string) <-chan PromptResult {
	ch := make(chan PromptResult, 1)
	go func() {
		v, err := f(ctx, label)
		ch <- PromptResult{Value: v, Err: err}
	}()
	return ch
}
