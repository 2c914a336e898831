// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jeranaias/rigchat/internal/model"
)

func TestRoleLabel(t *testing.T) {
	assert.Contains(t, RoleLabel(model.RoleUser), "You")
	assert.Contains(t, RoleLabel(model.RoleAssistant), "Assistant")
	assert.Contains(t, RoleLabel(model.Role("tool")), "tool")
}

func TestStatusLines_CarryIndicators(t *testing.T) {
	assert.Contains(t, ErrorLine("boom"), "[X] boom")
	assert.Contains(t, WarningLine("careful"), "[!] careful")
	assert.Contains(t, SuccessLine("saved"), "[OK] saved")
	assert.Contains(t, InfoLine("note"), "[i] note")
}
