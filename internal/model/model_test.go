// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

// =============================================================================
// ROLE TESTS
// =============================================================================

func TestParseRole(t *testing.T) {
	tests := []struct {
		input   string
		want    Role
		wantErr bool
	}{
		{"user", RoleUser, false},
		{"assistant", RoleAssistant, false},
		{"system", "", true},
		{"", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseRole(tc.input)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ParseRole(%q) error = %v, wantErr %v", tc.input, err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("ParseRole(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestRole_DisplayName(t *testing.T) {
	if RoleUser.DisplayName() != "You" {
		t.Errorf("user display name = %q", RoleUser.DisplayName())
	}
	if RoleAssistant.DisplayName() != "Assistant" {
		t.Errorf("assistant display name = %q", RoleAssistant.DisplayName())
	}
}

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewMessage_StampsUTC(t *testing.T) {
	before := time.Now().UTC()
	msg := NewUserMessage("hi")

	if !msg.IsUser() || msg.IsAssistant() {
		t.Errorf("unexpected role %q", msg.Role)
	}
	if msg.Timestamp.Location() != time.UTC {
		t.Errorf("timestamp not UTC: %v", msg.Timestamp.Location())
	}
	if msg.Timestamp.Before(before) {
		t.Errorf("timestamp %v before %v", msg.Timestamp, before)
	}
}

func TestMessage_JSONFieldNames(t *testing.T) {
	data, err := json.Marshal(NewAssistantMessage("hello"))
	if err != nil {
		t.Fatal(err)
	}
	for _, field := range []string{`"role":"assistant"`, `"content":"hello"`, `"timestamp":`} {
		if !strings.Contains(string(data), field) {
			t.Errorf("JSON %s missing %s", data, field)
		}
	}
}

// =============================================================================
// TRANSCRIPT TESTS
// =============================================================================

func TestTranscript_AppendAndTruncate(t *testing.T) {
	tr := NewTranscript(nil)
	tr.Append(NewUserMessage("one"))
	tr.Append(NewAssistantMessage("two"))
	tr.Append(NewUserMessage("three"))

	if tr.Len() != 3 {
		t.Fatalf("Len = %d, want 3", tr.Len())
	}

	tr.Truncate(2)
	if tr.Len() != 2 {
		t.Fatalf("Len after Truncate = %d, want 2", tr.Len())
	}
	last, ok := tr.Last()
	if !ok || last.Content != "two" {
		t.Errorf("Last = %+v, %v", last, ok)
	}

	// Truncating past the end is a no-op
	tr.Truncate(10)
	if tr.Len() != 2 {
		t.Errorf("Len = %d, want 2", tr.Len())
	}
}

func TestTranscript_MessagesIsCopy(t *testing.T) {
	tr := NewTranscript([]Message{NewUserMessage("original")})
	msgs := tr.Messages()
	msgs[0].Content = "changed"

	if got := tr.Messages()[0].Content; got != "original" {
		t.Errorf("transcript mutated through copy: %q", got)
	}
}

func TestTranscript_Reset(t *testing.T) {
	tr := NewTranscript([]Message{NewUserMessage("a"), NewAssistantMessage("b")})
	tr.Reset()
	if tr.Len() != 0 {
		t.Errorf("Len after Reset = %d", tr.Len())
	}
	if _, ok := tr.Last(); ok {
		t.Error("Last should report empty transcript")
	}
}
