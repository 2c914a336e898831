// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/rigchat/internal/model"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultOpenAIURL is the OpenAI API root.
	DefaultOpenAIURL = "https://api.openai.com/v1"

	// DefaultOpenAIModel is used when no model is configured.
	DefaultOpenAIModel = "gpt-3.5-turbo"

	// maxErrorBody bounds how much of an error response is read.
	maxErrorBody = 64 * 1024
)

// =============================================================================
// WIRE TYPES
// =============================================================================

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
	Stream    bool          `json:"stream"`
}

// streamChunk is one chat.completion.chunk event.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *apiErrorBody `json:"error,omitempty"`
}

type apiErrorBody struct {
	Code    interface{} `json:"code"`
	Type    string      `json:"type"`
	Message string      `json:"message"`
}

type apiErrorResponse struct {
	Error apiErrorBody `json:"error"`
}

// APIError is a non-2xx response from an OpenAI-compatible endpoint.
type APIError struct {
	Status  int
	Code    string
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error [%s] (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("API error (HTTP %d): %s", e.Status, e.Message)
}

// Is maps auth and rate limit statuses to their sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrAuthFailed:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	case ErrRateLimited:
		return e.Status == http.StatusTooManyRequests
	}
	return false
}

// HTTPStatusCode returns the response status.
func (e *APIError) HTTPStatusCode() int { return e.Status }

// =============================================================================
// CLIENT
// =============================================================================

// OpenAIClient streams chat completions from an OpenAI-compatible API.
type OpenAIClient struct {
	mu         sync.RWMutex
	apiKey     string
	opts       Options
	httpClient *http.Client
}

// NewOpenAIClient creates a client. Empty option fields take defaults.
func NewOpenAIClient(apiKey string, opts Options) *OpenAIClient {
	if opts.Model == "" {
		opts.Model = DefaultOpenAIModel
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultOpenAIURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &OpenAIClient{
		apiKey: strings.TrimSpace(apiKey),
		opts:   opts,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

// WithHTTPClient replaces the HTTP client.
func (c *OpenAIClient) WithHTTPClient(hc *http.Client) *OpenAIClient {
	c.httpClient = hc
	return c
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string { return "openai" }

// Model returns the configured model.
func (c *OpenAIClient) Model() string { return c.opts.Model }

// SetAPIKey replaces the key used for subsequent requests.
func (c *OpenAIClient) SetAPIKey(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apiKey = strings.TrimSpace(key)
}

func (c *OpenAIClient) key() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiKey
}

// Complete implements Client.
func (c *OpenAIClient) Complete(ctx context.Context, msgs []model.Message, onDelta DeltaFunc) (string, error) {
	key := c.key()
	if key == "" {
		return "", ErrNotConfigured
	}
	if len(msgs) == 0 {
		return "", ErrEmptyContext
	}

	ctx, cancel := withTimeout(ctx, c.opts.Timeout)
	defer cancel()

	body, err := json.Marshal(c.buildRequest(msgs))
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("User-Agent", "rigchat")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", parseErrorResponse(resp.StatusCode, data)
	}

	return processStream(ctx, resp.Body, onDelta)
}

func (c *OpenAIClient) buildRequest(msgs []model.Message) chatRequest {
	wire := make([]chatMessage, 0, len(msgs)+1)
	if c.opts.SystemPrompt != "" {
		wire = append(wire, chatMessage{Role: "system", Content: c.opts.SystemPrompt})
	}
	for _, m := range msgs {
		wire = append(wire, chatMessage{Role: m.Role.String(), Content: m.Content})
	}
	return chatRequest{
		Model:     c.opts.Model,
		Messages:  wire,
		MaxTokens: c.opts.MaxTokens,
		Stream:    true,
	}
}

// processStream reads chunks until [DONE], a finish reason, or EOF.
func processStream(ctx context.Context, body io.Reader, onDelta DeltaFunc) (string, error) {
	reader := NewSSEReader(body)
	var reply strings.Builder

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		_, data, err := reader.ReadEvent()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			return "", fmt.Errorf("read stream: %w", err)
		}

		if bytes.Equal(data, []byte("[DONE]")) {
			break
		}

		var chunk streamChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			// Skip malformed chunks
			continue
		}
		if chunk.Error != nil {
			return "", &APIError{Status: http.StatusOK, Code: codeString(chunk.Error.Code), Message: chunk.Error.Message}
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			reply.WriteString(delta)
			if onDelta != nil {
				onDelta(delta)
			}
		}
		if chunk.Choices[0].FinishReason != nil && *chunk.Choices[0].FinishReason != "" {
			break
		}
	}

	if reply.Len() == 0 {
		return "", ErrEmptyReply
	}
	return reply.String(), nil
}

func parseErrorResponse(status int, body []byte) error {
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		code := codeString(apiErr.Error.Code)
		if code == "" {
			code = apiErr.Error.Type
		}
		return &APIError{Status: status, Code: code, Message: apiErr.Error.Message}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{Status: status, Message: msg}
}

func codeString(code interface{}) string {
	switch v := code.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
