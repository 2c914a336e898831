// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigchat/internal/completion"
	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/logging"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/session"
	"github.com/jeranaias/rigchat/internal/storage"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// fakeClient streams a fixed reply, or fails with err.
type fakeClient struct {
	reply string
	err   error
	seen  [][]model.Message
}

func (c *fakeClient) Complete(_ context.Context, msgs []model.Message, onDelta completion.DeltaFunc) (string, error) {
	c.seen = append(c.seen, msgs)
	if c.err != nil {
		return "", c.err
	}
	if onDelta != nil {
		onDelta(c.reply)
	}
	return c.reply, nil
}

// replyFailStore refuses to store assistant messages.
type replyFailStore struct {
	*storage.Store
}

func (s replyFailStore) Append(ctx context.Context, msg model.Message) error {
	if msg.Role == model.RoleAssistant {
		return &storage.StoreError{Kind: storage.IOFailure, Op: "append", Err: errors.New("disk full")}
	}
	return s.Store.Append(ctx, msg)
}

// scriptReader replays lines and then reports EOF.
type scriptReader struct {
	lines   []string
	history []string
}

func (r *scriptReader) Prompt(string) (string, error) {
	if len(r.lines) == 0 {
		return "", io.EOF
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, nil
}

func (r *scriptReader) AppendHistory(item string) {
	r.history = append(r.history, item)
}

type testApp struct {
	*App
	out    *bytes.Buffer
	errOut *bytes.Buffer
	dir    string
}

// newTestApp builds an App over a temporary database with client already
// connected. wrap, when non-nil, decorates the store handed to the session.
func newTestApp(t *testing.T, client completion.Client, wrap func(*storage.Store) session.Store) *testApp {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Storage.DatabasePath = filepath.Join(dir, "chat.db")
	cfg.Storage.ExportDir = dir
	cfg.Secrets.File = ""
	cfg.UI.Markdown = false

	store, err := storage.Open(cfg.Storage.DatabasePath)
	require.NoError(t, err)

	var out, errOut bytes.Buffer
	app := &App{
		Config:  cfg,
		Logger:  logging.Discard(),
		Store:   store,
		In:      strings.NewReader(""),
		Out:     &out,
		ErrOut:  &errOut,
		closers: []io.Closer{store},
	}
	app.client.set(client)

	var sessStore session.Store = store
	if wrap != nil {
		sessStore = wrap(store)
	}
	app.Session = session.NewController(sessStore, &app.client, session.Options{})
	require.NoError(t, app.Session.Load(context.Background()))

	t.Cleanup(func() { app.Close() })
	return &testApp{App: app, out: &out, errOut: &errOut, dir: dir}
}

func runScript(t *testing.T, ta *testApp, lines ...string) *scriptReader {
	t.Helper()
	in := &scriptReader{lines: lines}
	r := newREPL(ta.App, in, false)
	r.quiet = true
	require.NoError(t, r.run(context.Background()))
	return in
}

// =============================================================================
// TURN TESTS
// =============================================================================

func TestREPL_TurnPrintsReplyOnce(t *testing.T) {
	client := &fakeClient{reply: "hello there"}
	ta := newTestApp(t, client, nil)

	in := runScript(t, ta, "  hi  ", "", "/quit")

	assert.Equal(t, 1, strings.Count(ta.out.String(), "hello there"))
	assert.Contains(t, ta.out.String(), "Assistant")
	assert.Contains(t, ta.out.String(), "Goodbye!")
	assert.Equal(t, []string{"hi", "/quit"}, in.history)

	msgs, err := ta.Store.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Equal(t, "hello there", msgs[1].Content)
}

func TestREPL_NormalizesInput(t *testing.T) {
	client := &fakeClient{reply: "ok"}
	ta := newTestApp(t, client, nil)

	runScript(t, ta, "cafe\u0301")

	msgs := ta.Session.Transcript()
	require.NotEmpty(t, msgs)
	assert.Equal(t, "caf\u00e9", msgs[0].Content)
}

func TestREPL_CompletionFailureKeepsMessage(t *testing.T) {
	client := &fakeClient{err: &completion.APIError{Status: 429, Message: "slow down"}}
	ta := newTestApp(t, client, nil)

	runScript(t, ta, "hi")

	assert.Contains(t, ta.errOut.String(), "rate limited by the provider")
	msgs, err := ta.Store.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
}

func TestREPL_UnsavedReplyShownOnce(t *testing.T) {
	client := &fakeClient{reply: "fleeting answer"}
	ta := newTestApp(t, client, func(s *storage.Store) session.Store {
		return replyFailStore{Store: s}
	})

	runScript(t, ta, "hi")

	assert.Equal(t, 1, strings.Count(ta.out.String(), "fleeting answer"))
	assert.Contains(t, ta.errOut.String(), "reply could not be saved")
	assert.Contains(t, ta.errOut.String(), "shown once")

	msgs := ta.Session.Transcript()
	require.Len(t, msgs, 1)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
}

func TestREPL_ExitWords(t *testing.T) {
	ta := newTestApp(t, &fakeClient{reply: "x"}, nil)

	runScript(t, ta, "EXIT", "never sent")

	assert.Contains(t, ta.out.String(), "Goodbye!")
	assert.Empty(t, ta.Session.Transcript())
}

// =============================================================================
// SLASH COMMAND TESTS
// =============================================================================

func TestREPL_SlashCommands(t *testing.T) {
	client := &fakeClient{reply: "pong"}
	ta := newTestApp(t, client, nil)
	exportPath := filepath.Join(ta.dir, "out.json")

	runScript(t, ta, "ping", "/history", "/export "+exportPath, "/bogus", "/reset", "/history")

	out := ta.out.String()
	assert.Contains(t, out, "  1. ")
	assert.Contains(t, out, "Exported to "+exportPath)
	assert.Contains(t, out, "Conversation cleared")
	assert.Contains(t, out, "[No messages yet]")
	assert.Contains(t, ta.errOut.String(), "Unknown command: /bogus")

	data, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"pong"`)

	count, err := ta.Store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestREPL_Help(t *testing.T) {
	ta := newTestApp(t, &fakeClient{}, nil)

	runScript(t, ta, "/help")

	assert.Contains(t, ta.out.String(), "Available Commands")
	assert.Contains(t, ta.out.String(), "/export [FILE]")
}

func TestREPL_CancelTurnWhenIdle(t *testing.T) {
	ta := newTestApp(t, &fakeClient{}, nil)
	r := newREPL(ta.App, &scriptReader{}, false)

	assert.False(t, r.cancelTurn())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.setCancel(cancel)
	assert.True(t, r.cancelTurn())
	assert.Error(t, ctx.Err())
	assert.False(t, r.cancelTurn())
}

func TestPrintHistory(t *testing.T) {
	var buf bytes.Buffer
	printHistory(&buf, nil)
	assert.Contains(t, buf.String(), "[No messages yet]")

	buf.Reset()
	printHistory(&buf, []model.Message{
		model.NewUserMessage("first\nline"),
		model.NewAssistantMessage("second"),
	})
	assert.Contains(t, buf.String(), "  1. You")
	assert.Contains(t, buf.String(), "  2. Assistant")
	assert.NotContains(t, buf.String(), "first\nline")
}

func TestSwitchableClient_NotConfigured(t *testing.T) {
	var c switchableClient
	_, err := c.Complete(context.Background(), nil, nil)
	assert.ErrorIs(t, err, completion.ErrNotConfigured)

	c.set(&fakeClient{reply: "ok"})
	got, err := c.Complete(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}
