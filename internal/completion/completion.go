// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package completion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotConfigured indicates the API key is not set.
	ErrNotConfigured = errors.New("API key not configured")

	// ErrAuthFailed indicates authentication failed (invalid or expired API key).
	ErrAuthFailed = errors.New("authentication failed")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")

	// ErrEmptyReply indicates the stream ended without any text.
	ErrEmptyReply = errors.New("empty reply")

	// ErrEmptyContext indicates Complete was called with no messages.
	ErrEmptyContext = errors.New("no messages to complete")
)

// =============================================================================
// CLIENT INTERFACE
// =============================================================================

// DeltaFunc receives reply text as it streams in. It may be nil.
type DeltaFunc func(delta string)

// Client produces an assistant reply for an ordered conversation.
type Client interface {
	Complete(ctx context.Context, msgs []model.Message, onDelta DeltaFunc) (string, error)
}

// Provider is a Client whose key and model can be inspected and rotated.
type Provider interface {
	Client
	Name() string
	Model() string
	SetAPIKey(key string)
}

// Options holds the settings shared by every provider.
type Options struct {
	Model        string
	BaseURL      string
	MaxTokens    int
	SystemPrompt string
	Timeout      time.Duration
}

// OptionsFromConfig extracts provider options from cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Model:        cfg.Provider.Model,
		BaseURL:      cfg.Provider.BaseURL,
		MaxTokens:    cfg.Provider.MaxTokens,
		SystemPrompt: cfg.Provider.SystemPrompt,
		Timeout:      cfg.Timeout(),
	}
}

// New creates the provider named in cfg using key.
func New(cfg *config.Config, key string) (Provider, error) {
	opts := OptionsFromConfig(cfg)
	switch cfg.Provider.Name {
	case config.ProviderOpenAI:
		return NewOpenAIClient(key, opts), nil
	case config.ProviderAnthropic:
		return NewAnthropicClient(key, opts), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider.Name)
	}
}

// withTimeout bounds a call when timeout is positive.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
