// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package completion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/model"
)

func conversation() []model.Message {
	return []model.Message{
		model.NewUserMessage("Hi"),
		model.NewAssistantMessage("Hello!"),
		model.NewUserMessage("What is Go?"),
	}
}

func sseChunk(content string) string {
	return fmt.Sprintf("data: {\"choices\":[{\"delta\":{\"content\":%q},\"finish_reason\":null}]}\n\n", content)
}

// =============================================================================
// SSE READER
// =============================================================================

func TestSSEReader(t *testing.T) {
	stream := ": keepalive\n" +
		"event: message\n" +
		"data: first\n" +
		"data:second\n" +
		"\n" +
		"id: 7\n" +
		"data: tail"
	r := NewSSEReader(strings.NewReader(stream))

	ev, data, err := r.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, "message", ev)
	assert.Equal(t, "first\nsecond", string(data))

	_, data, err = r.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, "tail", string(data))

	_, _, err = r.ReadEvent()
	assert.ErrorIs(t, err, io.EOF)
}

// =============================================================================
// OPENAI CLIENT
// =============================================================================

func TestOpenAIClient_Streams(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, sseChunk("Go is "))
		fmt.Fprint(w, "data: not-json\n\n")
		fmt.Fprint(w, sseChunk("a language."))
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	client := NewOpenAIClient("sk-test", Options{BaseURL: srv.URL + "/v1/", SystemPrompt: "Be brief.", MaxTokens: 50})
	var deltas []string
	reply, err := client.Complete(context.Background(), conversation(), func(d string) { deltas = append(deltas, d) })
	require.NoError(t, err)

	assert.Equal(t, "Go is a language.", reply)
	assert.Equal(t, []string{"Go is ", "a language."}, deltas)

	assert.Equal(t, DefaultOpenAIModel, got.Model)
	assert.True(t, got.Stream)
	assert.Equal(t, 50, got.MaxTokens)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, chatMessage{Role: "system", Content: "Be brief."}, got.Messages[0])
	assert.Equal(t, chatMessage{Role: "assistant", Content: "Hello!"}, got.Messages[2])
	assert.Equal(t, chatMessage{Role: "user", Content: "What is Go?"}, got.Messages[3])
}

func TestOpenAIClient_FinishReasonEndsStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sseChunk("done"))
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n")
		fmt.Fprint(w, sseChunk("ignored"))
	}))
	defer srv.Close()

	reply, err := NewOpenAIClient("k", Options{BaseURL: srv.URL}).Complete(context.Background(), conversation(), nil)
	require.NoError(t, err)
	assert.Equal(t, "done", reply)
}

func TestOpenAIClient_WithHTTPClientOverTLS(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sseChunk("secure"))
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	client := NewOpenAIClient("k", Options{BaseURL: srv.URL}).WithHTTPClient(srv.Client())
	reply, err := client.Complete(context.Background(), conversation(), nil)
	require.NoError(t, err)
	assert.Equal(t, "secure", reply)
}

func TestOpenAIClient_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
		code     string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"bad key","code":"invalid_api_key"}}`, ErrAuthFailed, "invalid_api_key"},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down","type":"requests"}}`, ErrRateLimited, "requests"},
		{"server error", http.StatusBadGateway, `upstream down`, nil, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				fmt.Fprint(w, tc.body)
			}))
			defer srv.Close()

			_, err := NewOpenAIClient("k", Options{BaseURL: srv.URL}).Complete(context.Background(), conversation(), nil)
			require.Error(t, err)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tc.status, apiErr.HTTPStatusCode())
			assert.Equal(t, tc.code, apiErr.Code)
			if tc.sentinel != nil {
				assert.ErrorIs(t, err, tc.sentinel)
			}
		})
	}
}

func TestOpenAIClient_EmptyReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	_, err := NewOpenAIClient("k", Options{BaseURL: srv.URL}).Complete(context.Background(), conversation(), nil)
	assert.ErrorIs(t, err, ErrEmptyReply)
}

func TestOpenAIClient_ErrorInStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sseChunk("partial"))
		fmt.Fprint(w, "data: {\"error\":{\"message\":\"overloaded\",\"code\":503}}\n\n")
	}))
	defer srv.Close()

	_, err := NewOpenAIClient("k", Options{BaseURL: srv.URL}).Complete(context.Background(), conversation(), nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "503", apiErr.Code)
	assert.Equal(t, "overloaded", apiErr.Message)
}

func TestOpenAIClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := NewOpenAIClient("k", Options{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := client.Complete(context.Background(), conversation(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
}

func TestOpenAIClient_NotConfigured(t *testing.T) {
	client := NewOpenAIClient("  ", Options{})
	_, err := client.Complete(context.Background(), conversation(), nil)
	assert.ErrorIs(t, err, ErrNotConfigured)

	client.SetAPIKey("sk-new")
	_, err = client.Complete(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrEmptyContext)
}

// =============================================================================
// ANTHROPIC CLIENT
// =============================================================================

const anthropicStream = `event: message_start
data: {"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","content":[],"model":"claude-3-5-haiku-latest","stop_reason":null,"stop_sequence":null,"usage":{"input_tokens":5,"output_tokens":1}}}

event: content_block_start
data: {"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}

event: content_block_delta
data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hello"}}

event: content_block_delta
data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":" there"}}

event: content_block_stop
data: {"type":"content_block_stop","index":0}

event: message_delta
data: {"type":"message_delta","delta":{"stop_reason":"end_turn","stop_sequence":null},"usage":{"output_tokens":2}}

event: message_stop
data: {"type":"message_stop"}

`

func TestAnthropicClient_Streams(t *testing.T) {
	var body map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant", r.Header.Get("X-Api-Key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, anthropicStream)
	}))
	defer srv.Close()

	client := NewAnthropicClient("sk-ant", Options{BaseURL: srv.URL, SystemPrompt: "Be brief."})
	var deltas []string
	reply, err := client.Complete(context.Background(), conversation(), func(d string) { deltas = append(deltas, d) })
	require.NoError(t, err)

	assert.Equal(t, "Hello there", reply)
	assert.Equal(t, []string{"Hello", " there"}, deltas)
	assert.Equal(t, string(DefaultAnthropicModel), body["model"])
	assert.Equal(t, true, body["stream"])
	msgs, ok := body["messages"].([]interface{})
	require.True(t, ok)
	assert.Len(t, msgs, 3)
	assert.NotNil(t, body["system"])
}

func TestAnthropicClient_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`)
	}))
	defer srv.Close()

	_, err := NewAnthropicClient("bad", Options{BaseURL: srv.URL}).Complete(context.Background(), conversation(), nil)
	require.Error(t, err)
}

func TestAnthropicClient_NotConfigured(t *testing.T) {
	_, err := NewAnthropicClient("", Options{}).Complete(context.Background(), conversation(), nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

// =============================================================================
// FACTORY
// =============================================================================

func TestNew(t *testing.T) {
	cfg := config.Default()
	p, err := New(cfg, "k")
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())
	assert.Equal(t, "gpt-3.5-turbo", p.Model())

	cfg.Provider.Name = config.ProviderAnthropic
	cfg.Provider.Model = "claude-sonnet-4-0"
	p, err = New(cfg, "k")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Name())
	assert.Equal(t, "claude-sonnet-4-0", p.Model())

	cfg.Provider.Name = "other"
	_, err = New(cfg, "k")
	assert.Error(t, err)
}
