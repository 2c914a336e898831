// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jeranaias/rigchat/internal/completion"
	"github.com/jeranaias/rigchat/internal/logging"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/storage"
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Store is the durable message log. *storage.Store implements it.
type Store interface {
	Append(ctx context.Context, msg model.Message) error
	ReadAll(ctx context.Context) ([]model.Message, error)
	Clear(ctx context.Context) error
	ExportDocument(ctx context.Context) ([]byte, error)
}

// =============================================================================
// STATE AND OPTIONS
// =============================================================================

// State is the phase of the turn in progress.
type State int

const (
	Idle State = iota
	UserAppended
	AwaitingCompletion
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case UserAppended:
		return "UserAppended"
	case AwaitingCompletion:
		return "AwaitingCompletion"
	default:
		return "Unknown"
	}
}

// BusyPolicy decides what happens to a turn submitted while another runs.
type BusyPolicy int

const (
	// Queue waits for the running turn to finish.
	Queue BusyPolicy = iota
	// Reject fails immediately with ErrBusy.
	Reject
)

// ParseBusyPolicy converts a config value ("queue" or "reject").
func ParseBusyPolicy(s string) (BusyPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "queue":
		return Queue, nil
	case "reject":
		return Reject, nil
	default:
		return Queue, fmt.Errorf("unknown busy policy %q", s)
	}
}

// Options configures a Controller.
type Options struct {
	BusyPolicy BusyPolicy
	Logger     *slog.Logger
	// NewTurnID overrides turn identifier generation.
	NewTurnID func() string
}

// Reply is a completed assistant turn.
type Reply struct {
	TurnID  string
	Content string
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller coordinates the transcript, the store and the completion client.
type Controller struct {
	store  Store
	client completion.Client
	policy BusyPolicy
	logger *slog.Logger
	newID  func() string

	// turn is a one-slot semaphore held for the whole of a turn, a reset or a load.
	turn chan struct{}

	mu         sync.RWMutex
	transcript *model.Transcript
	state      State
	corruptErr error
}

// NewController creates a controller with an empty transcript. Call Load
// to restore a previous conversation.
func NewController(store Store, client completion.Client, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	newID := opts.NewTurnID
	if newID == nil {
		newID = uuid.NewString
	}
	return &Controller{
		store:      store,
		client:     client,
		policy:     opts.BusyPolicy,
		logger:     logger,
		newID:      newID,
		turn:       make(chan struct{}, 1),
		transcript: model.NewTranscript(nil),
	}
}

// acquire takes the turn slot, waiting when wait is true.
func (c *Controller) acquire(ctx context.Context, wait bool) error {
	if !wait {
		select {
		case c.turn <- struct{}{}:
			return nil
		default:
			return &TurnError{Kind: Busy}
		}
	}
	select {
	case c.turn <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) release() {
	<-c.turn
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// =============================================================================
// LOAD
// =============================================================================

// Load replaces the in-memory transcript with the persisted log. When the
// log is corrupt the transcript is left empty, the controller refuses turns
// until Reset succeeds, and the storage error is returned.
func (c *Controller) Load(ctx context.Context) error {
	if err := c.acquire(ctx, true); err != nil {
		return err
	}
	defer c.release()

	msgs, err := c.store.ReadAll(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		if errors.Is(err, storage.ErrCorruptData) {
			c.transcript.Reset()
			c.corruptErr = err
			c.logger.Error("history_corrupt", "err", err)
		}
		return err
	}
	c.transcript = model.NewTranscript(msgs)
	c.corruptErr = nil
	c.logger.Info("history_loaded", "messages", len(msgs))
	return nil
}

// =============================================================================
// TURNS
// =============================================================================

// SubmitUserTurn runs one turn: persist the user message, ask the model
// with the whole transcript, persist the reply. onDelta receives streamed
// text and may be nil. Every failure is a *TurnError.
func (c *Controller) SubmitUserTurn(ctx context.Context, text string, onDelta completion.DeltaFunc) (Reply, error) {
	if strings.TrimSpace(text) == "" {
		return Reply{}, &TurnError{Kind: EmptyInput}
	}

	if err := c.acquire(ctx, c.policy == Queue); err != nil {
		var te *TurnError
		if errors.As(err, &te) {
			return Reply{}, te
		}
		return Reply{}, &TurnError{Kind: Busy, Err: err}
	}
	defer c.release()

	turnID := c.newID()
	ctx = logging.WithTurnID(ctx, turnID)
	log := logging.FromContext(ctx, c.logger)

	c.mu.Lock()
	if c.corruptErr != nil {
		err := c.corruptErr
		c.mu.Unlock()
		return Reply{}, &TurnError{Kind: PersistenceFailure, TurnID: turnID, Err: err}
	}
	before := c.transcript.Len()
	user := model.NewUserMessage(text)
	c.transcript.Append(user)
	c.state = UserAppended
	c.mu.Unlock()

	if err := c.store.Append(ctx, user); err != nil {
		c.rollback(before, err)
		log.Error("turn_aborted", "stage", "persist_user", "err", err)
		return Reply{}, &TurnError{Kind: PersistenceFailure, TurnID: turnID, Err: err}
	}

	c.mu.Lock()
	c.state = AwaitingCompletion
	history := c.transcript.Messages()
	c.mu.Unlock()

	log.Debug("turn_awaiting_completion", "messages", len(history))
	content, err := c.client.Complete(ctx, history, onDelta)
	if err == nil && content == "" {
		err = completion.ErrEmptyReply
	}
	if err != nil {
		c.setState(Idle)
		log.Warn("turn_aborted", "stage", "completion", "err", err)
		return Reply{}, &TurnError{Kind: CompletionFailure, TurnID: turnID, Err: err}
	}

	assistant := model.NewAssistantMessage(content)
	c.mu.Lock()
	c.transcript.Append(assistant)
	c.mu.Unlock()

	if err := c.store.Append(ctx, assistant); err != nil {
		c.rollback(before+1, err)
		log.Error("turn_aborted", "stage", "persist_reply", "err", err)
		return Reply{}, &TurnError{Kind: PersistenceFailure, TurnID: turnID, Reply: content, Err: err}
	}

	c.setState(Idle)
	log.Info("turn_completed", "messages", before+2)
	return Reply{TurnID: turnID, Content: content}, nil
}

// rollback truncates the transcript to n messages after a failed write.
func (c *Controller) rollback(n int, cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transcript.Truncate(n)
	c.state = Idle
	if errors.Is(cause, storage.ErrCorruptData) {
		c.corruptErr = cause
	}
}

// =============================================================================
// RESET AND EXPORT
// =============================================================================

// Reset clears the store and then the transcript. If the store cannot be
// cleared neither changes. Reset waits for a running turn.
func (c *Controller) Reset(ctx context.Context) error {
	if err := c.acquire(ctx, true); err != nil {
		return err
	}
	defer c.release()

	if err := c.store.Clear(ctx); err != nil {
		c.logger.Error("reset_failed", "err", err)
		return err
	}

	c.mu.Lock()
	c.transcript.Reset()
	c.corruptErr = nil
	c.state = Idle
	c.mu.Unlock()

	c.logger.Info("history_reset")
	return nil
}

// ExportHistory returns the persisted log as a JSON document. It reads the
// store directly, not the in-memory transcript.
func (c *Controller) ExportHistory(ctx context.Context) ([]byte, error) {
	return c.store.ExportDocument(ctx)
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Transcript returns a copy of the in-memory transcript.
func (c *Controller) Transcript() []model.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.transcript.Messages()
}

// State returns the phase of the turn in progress.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Corrupt returns the storage error that blocks turns, or nil.
func (c *Controller) Corrupt() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.corruptErr
}
