// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error presentation and exit codes for rigchat.
//
// Commands always return errors. main decides how to display them and
// which exit code to use.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/rigchat/internal/completion"
	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/credential"
	"github.com/jeranaias/rigchat/internal/session"
	"github.com/jeranaias/rigchat/internal/storage"
	"github.com/jeranaias/rigchat/internal/ui/styles"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates configuration file or settings error
	ExitConfigError = 3
	// ExitAuthError indicates a missing or rejected API key
	ExitAuthError = 4
	// ExitNetworkError indicates the completion service failed
	ExitNetworkError = 5
	// ExitStorageError indicates the conversation database failed
	ExitStorageError = 6
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// UsageError reports invalid command-line input.
type UsageError struct {
	Reason string
	Hint   string
}

func (e *UsageError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s\nUsage: %s", e.Reason, e.Hint)
	}
	return e.Reason
}

// GetExitCode determines the exit code for an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		return ExitUsageError
	}
	var cfgErrs config.ValidateErrors
	if errors.As(err, &cfgErrs) {
		return ExitConfigError
	}

	switch {
	case errors.Is(err, credential.ErrNotFound),
		errors.Is(err, completion.ErrAuthFailed),
		errors.Is(err, completion.ErrNotConfigured):
		return ExitAuthError
	case errors.Is(err, session.ErrCompletionFailure):
		return ExitNetworkError
	case errors.Is(err, session.ErrPersistenceFailure),
		errors.Is(err, storage.ErrIOFailure),
		errors.Is(err, storage.ErrCorruptData):
		return ExitStorageError
	}
	return ExitGeneralError
}

// =============================================================================
// DISPLAY
// =============================================================================

// DescribeError returns the user-facing text for an error, chosen by kind.
func DescribeError(err error) string {
	switch session.KindOf(err) {
	case session.EmptyInput:
		return "Nothing to send. Type a message first."
	case session.Busy:
		return "Another reply is still being generated. Try again when it finishes."
	case session.CompletionFailure:
		return "The model did not answer: " + describeCompletion(err) + ". Your message was kept; send another to retry."
	case session.PersistenceFailure:
		if errors.Is(err, storage.ErrCorruptData) {
			return "The saved conversation is corrupt. Run /reset (or `rigchat reset`) to start over."
		}
		if _, ok := session.UnsavedReply(err); ok {
			return "The reply could not be saved to the conversation history."
		}
		return "Your message could not be saved, so it was not sent."
	}

	switch storage.KindOf(err) {
	case storage.CorruptData:
		return "The saved conversation is corrupt. Run `rigchat reset` to start over."
	case storage.IOFailure:
		return "The conversation database is unavailable: " + err.Error()
	}

	if errors.Is(err, credential.ErrNotFound) {
		return "No API key found. Add one to the secrets file, set the environment variable, or enter it when asked."
	}
	return err.Error()
}

func describeCompletion(err error) string {
	switch {
	case errors.Is(err, completion.ErrAuthFailed):
		return "the API key was rejected"
	case errors.Is(err, completion.ErrRateLimited):
		return "rate limited by the provider"
	case errors.Is(err, completion.ErrEmptyReply):
		return "the reply was empty"
	case errors.Is(err, context.DeadlineExceeded):
		return "the request timed out"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, completion.ErrNotConfigured):
		return "no API key is configured"
	}
	var te *session.TurnError
	if errors.As(err, &te) && te.Err != nil {
		return te.Err.Error()
	}
	return err.Error()
}

// DisplayError writes a styled error line.
func DisplayError(w io.Writer, err error) {
	fmt.Fprintln(w, styles.ErrorLine(DescribeError(err)))
}
