// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package completion

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/jeranaias/rigchat/internal/model"
)

// DefaultAnthropicModel is used when no model is configured.
const DefaultAnthropicModel = anthropic.ModelClaude3_5HaikuLatest

// AnthropicClient streams replies from the Anthropic Messages API.
type AnthropicClient struct {
	mu     sync.RWMutex
	apiKey string
	client anthropic.Client
	opts   Options
}

// NewAnthropicClient creates a client. The SDK's own retries are disabled.
func NewAnthropicClient(apiKey string, opts Options) *AnthropicClient {
	if opts.Model == "" {
		opts.Model = string(DefaultAnthropicModel)
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1024
	}
	c := &AnthropicClient{opts: opts}
	c.SetAPIKey(apiKey)
	return c
}

// Name returns the provider name.
func (c *AnthropicClient) Name() string { return "anthropic" }

// Model returns the configured model.
func (c *AnthropicClient) Model() string { return c.opts.Model }

// SetAPIKey rebuilds the SDK client with a new key.
func (c *AnthropicClient) SetAPIKey(key string) {
	key = strings.TrimSpace(key)
	reqOpts := []option.RequestOption{
		option.WithAPIKey(key),
		option.WithMaxRetries(0),
	}
	if c.opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(c.opts.BaseURL))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.apiKey = key
	c.client = anthropic.NewClient(reqOpts...)
}

func (c *AnthropicClient) snapshot() (string, anthropic.Client) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiKey, c.client
}

// Complete implements Client.
func (c *AnthropicClient) Complete(ctx context.Context, msgs []model.Message, onDelta DeltaFunc) (string, error) {
	key, client := c.snapshot()
	if key == "" {
		return "", ErrNotConfigured
	}
	if len(msgs) == 0 {
		return "", ErrEmptyContext
	}

	ctx, cancel := withTimeout(ctx, c.opts.Timeout)
	defer cancel()

	stream := client.Messages.NewStreaming(ctx, c.buildParams(msgs))
	defer stream.Close()

	message := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		if err := message.Accumulate(event); err != nil {
			return "", fmt.Errorf("accumulate stream: %w", err)
		}

		switch ev := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			if delta, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" && onDelta != nil {
				onDelta(delta.Text)
			}
		}
	}
	if err := stream.Err(); err != nil {
		return "", fmt.Errorf("anthropic stream: %w", err)
	}

	var reply strings.Builder
	for _, block := range message.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			reply.WriteString(tb.Text)
		}
	}
	if reply.Len() == 0 {
		return "", ErrEmptyReply
	}
	return reply.String(), nil
}

func (c *AnthropicClient) buildParams(msgs []model.Message) anthropic.MessageNewParams {
	conv := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		block := anthropic.NewTextBlock(m.Content)
		if m.IsAssistant() {
			conv = append(conv, anthropic.NewAssistantMessage(block))
		} else {
			conv = append(conv, anthropic.NewUserMessage(block))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.opts.Model),
		MaxTokens: int64(c.opts.MaxTokens),
		Messages:  conv,
	}
	if c.opts.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: c.opts.SystemPrompt}}
	}
	return params
}
