// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for rigchat.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - ProviderConfig: Completion endpoint selection and tuning
//   - SecretsConfig: Where the credential resolver looks for the API key
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (RIGCHAT_*)
//   - ~/.rigchat/config.toml
//   - Built-in defaults
//
// API keys are deliberately absent from Config.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	timeout := cfg.Timeout()
package config
