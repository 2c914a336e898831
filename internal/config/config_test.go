// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"RIGCHAT_PROVIDER", "RIGCHAT_MODEL", "RIGCHAT_BASE_URL",
		"RIGCHAT_DB", "RIGCHAT_LOG_LEVEL", "RIGCHAT_SERVER_ADDR",
	} {
		t.Setenv(key, "")
	}
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ProviderOpenAI, cfg.Provider.Name)
	assert.Equal(t, "gpt-3.5-turbo", cfg.Provider.Model)
	assert.Equal(t, BusyQueue, cfg.Session.BusyPolicy)
	assert.Equal(t, "chat_history.db", filepath.Base(cfg.Storage.DatabasePath))
	assert.Equal(t, "127.0.0.1:8765", cfg.Server.Addr)
}

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Provider, cfg.Provider)
}

func TestLoadFromPath_PartialFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[provider]
name = "anthropic"
timeout_secs = 30

[session]
busy_policy = "REJECT"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderAnthropic, cfg.Provider.Name)
	assert.Equal(t, DefaultModelFor(ProviderAnthropic), cfg.Provider.Model)
	assert.Equal(t, 30, cfg.Provider.TimeoutSecs)
	assert.Equal(t, BusyReject, cfg.Session.BusyPolicy)
	assert.Equal(t, 1024, cfg.Provider.MaxTokens)

	info, err := os.Stat(path)
	require.NoError(t, err)
	if info.Mode().Perm() != 0600 {
		t.Logf("permissions not tightened on this platform: %o", info.Mode().Perm())
	}
}

func TestLoadFromPath_ProviderOnlyGetsProviderDefaultModel(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	path := filepath.Join(dir, "name_only.toml")
	require.NoError(t, os.WriteFile(path, []byte("[provider]\nname = \"anthropic\"\n"), 0600))
	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderAnthropic, cfg.Provider.Name)
	assert.Equal(t, "claude-3-5-haiku-latest", cfg.Provider.Model)

	path = filepath.Join(dir, "explicit.toml")
	require.NoError(t, os.WriteFile(path, []byte("[provider]\nname = \"anthropic\"\nmodel = \"claude-sonnet-4-5\"\n"), 0600))
	cfg, err = LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4-5", cfg.Provider.Model)

	path = filepath.Join(dir, "model_only.toml")
	require.NoError(t, os.WriteFile(path, []byte("[provider]\nmodel = \"gpt-4o\"\n"), 0600))
	cfg, err = LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, cfg.Provider.Name)
	assert.Equal(t, "gpt-4o", cfg.Provider.Model)
}

func TestLoadFromPath_InvalidValues(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[provider]
name = "ollama"
base_url = "ftp://example"

[session]
busy_policy = "drop"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	_, err := LoadFromPath(path)
	require.Error(t, err)

	var verrs ValidateErrors
	require.True(t, errors.As(err, &verrs))
	fields := make([]string, 0, len(verrs))
	for _, v := range verrs {
		fields = append(fields, v.Field)
	}
	assert.ElementsMatch(t, []string{"provider.name", "provider.base_url", "session.busy_policy"}, fields)
}

func TestLoadFromPath_BadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[provider\nname="), 0600))

	_, err := LoadFromPath(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode TOML")
}

func TestApplyEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("RIGCHAT_PROVIDER", "anthropic")
	t.Setenv("RIGCHAT_DB", "/tmp/other.db")
	t.Setenv("RIGCHAT_LOG_LEVEL", "DEBUG")
	t.Setenv("RIGCHAT_SERVER_ADDR", "127.0.0.1:9999")

	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, ProviderAnthropic, cfg.Provider.Name)
	assert.Equal(t, DefaultModelFor(ProviderAnthropic), cfg.Provider.Model)
	assert.Equal(t, "/tmp/other.db", cfg.Storage.DatabasePath)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "127.0.0.1:9999", cfg.Server.Addr)
}

func TestApplyEnvOverrides_ExplicitModelWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("RIGCHAT_PROVIDER", "anthropic")
	t.Setenv("RIGCHAT_MODEL", "claude-sonnet-4-0")

	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4-0", cfg.Provider.Model)
}

func TestSave_RoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.Provider.SystemPrompt = "Be brief."
	cfg.UI.HistoryPager = true
	require.NoError(t, Save(cfg, path))

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# rigchat configuration file")
}

func TestGet(t *testing.T) {
	cfg := Default()

	v, err := cfg.Get("provider.base_url")
	require.NoError(t, err)
	assert.Equal(t, "", v)

	v, err = cfg.Get("session.busy_policy")
	require.NoError(t, err)
	assert.Equal(t, "queue", v)
	assert.Equal(t, `"queue"`, FormatValue(v))

	v, err = cfg.Get("ui.markdown")
	require.NoError(t, err)
	assert.Equal(t, "true", FormatValue(v))

	_, err = cfg.Get("provider.nope")
	assert.Error(t, err)
	_, err = cfg.Get("provider.model.extra")
	assert.Error(t, err)
	_, err = cfg.Get("")
	assert.Error(t, err)
}

func TestValidationErrorFormat(t *testing.T) {
	errs := ValidateErrors{
		{Field: "a", Message: "bad"},
		{Field: "b", Message: "worse"},
	}
	assert.Equal(t, "a: bad; b: worse", errs.Error())
	assert.Equal(t, "no validation errors", ValidateErrors{}.Error())
}
