// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// Transcript is the ordered in-memory sequence of messages for the active
// conversation. Insertion order is conversation order.
//
// Transcript is not safe for concurrent use; the session controller owns it
// and serializes access.
type Transcript struct {
	messages []Message
}

// NewTranscript creates a transcript seeded with msgs.
func NewTranscript(msgs []Message) *Transcript {
	t := &Transcript{}
	t.messages = append(t.messages, msgs...)
	return t
}

// Append adds one message at the end.
func (t *Transcript) Append(msg Message) {
	t.messages = append(t.messages, msg)
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	return len(t.messages)
}

// Truncate drops every message at index n and beyond. It is how a failed
// append is rolled back.
func (t *Transcript) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	if n >= len(t.messages) {
		return
	}
	// Clear dropped entries so their content can be collected
	for i := n; i < len(t.messages); i++ {
		t.messages[i] = Message{}
	}
	t.messages = t.messages[:n]
}

// Reset empties the transcript.
func (t *Transcript) Reset() {
	t.messages = nil
}

// Messages returns a copy of the messages in order.
func (t *Transcript) Messages() []Message {
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Last returns the most recent message, if any.
func (t *Transcript) Last() (Message, bool) {
	if len(t.messages) == 0 {
		return Message{}, false
	}
	return t.messages[len(t.messages)-1], true
}
