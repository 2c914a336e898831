// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/rigchat/internal/ui/styles"
)

// ConfirmationOptions controls a destructive-action prompt.
type ConfirmationOptions struct {
	// Yes skips the prompt (--yes).
	Yes bool
	// Interactive is false when stdin cannot answer a prompt.
	Interactive bool
}

// RequireConfirmation asks before a destructive action. Without --yes a
// non-interactive stdin is an error rather than a silent yes.
func RequireConfirmation(in io.Reader, out io.Writer, action string, opts ConfirmationOptions) (bool, error) {
	if opts.Yes {
		return true, nil
	}
	if !opts.Interactive {
		return false, &UsageError{
			Reason: "stdin is not a terminal; cannot confirm " + action,
			Hint:   "pass --yes to confirm",
		}
	}

	fmt.Fprintf(out, "%s [y/N]: ", styles.Warning.Render("This will "+action+"."))
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
