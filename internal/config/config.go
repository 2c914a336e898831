// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/jeranaias/rigchat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete rigchat configuration.
// API keys are never part of Config; see the credential package.
type Config struct {
	Provider ProviderConfig `toml:"provider" json:"provider"`
	Storage  StorageConfig  `toml:"storage" json:"storage"`
	Secrets  SecretsConfig  `toml:"secrets" json:"secrets"`
	Session  SessionConfig  `toml:"session" json:"session"`
	Server   ServerConfig   `toml:"server" json:"server"`
	Log      LogConfig      `toml:"log" json:"log"`
	UI       UIConfig       `toml:"ui" json:"ui"`
}

// ProviderConfig selects and tunes the completion endpoint.
type ProviderConfig struct {
	// Name is "openai" (any OpenAI-compatible endpoint) or "anthropic".
	Name string `toml:"name" json:"name"`
	// Model is the model identifier sent with each request.
	Model string `toml:"model" json:"model"`
	// BaseURL overrides the provider's API root.
	BaseURL string `toml:"base_url" json:"base_url"`
	// TimeoutSecs bounds a single completion call.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// MaxTokens caps the reply length.
	MaxTokens int `toml:"max_tokens" json:"max_tokens"`
	// SystemPrompt is sent ahead of the transcript and never stored.
	SystemPrompt string `toml:"system_prompt" json:"system_prompt"`
}

// StorageConfig locates the conversation database and exports.
type StorageConfig struct {
	DatabasePath string `toml:"database_path" json:"database_path"`
	ExportDir    string `toml:"export_dir" json:"export_dir"`
}

// SecretsConfig describes where the API key may be found.
type SecretsConfig struct {
	// File is the local secrets TOML file (highest precedence).
	File string `toml:"file" json:"file"`
	// SSMParameter, when set, is read from AWS SSM Parameter Store after File.
	SSMParameter string `toml:"ssm_parameter" json:"ssm_parameter"`
	SSMRegion    string `toml:"ssm_region" json:"ssm_region"`
	// DotenvPath is consulted after the process environment.
	DotenvPath string `toml:"dotenv_path" json:"dotenv_path"`
}

// SessionConfig controls turn processing.
type SessionConfig struct {
	// BusyPolicy is "queue" (wait for the running turn) or "reject".
	BusyPolicy string `toml:"busy_policy" json:"busy_policy"`
}

// ServerConfig configures the local HTTP surface.
type ServerConfig struct {
	Addr string `toml:"addr" json:"addr"`
}

// LogConfig configures the log file.
type LogConfig struct {
	Level string `toml:"level" json:"level"`
	Path  string `toml:"path" json:"path"`
}

// UIConfig contains terminal presentation settings.
type UIConfig struct {
	// Markdown re-renders replies with glamour when stdout is a terminal.
	Markdown bool `toml:"markdown" json:"markdown"`
	// HistoryPager shows /history in a scrollable pager instead of printing it.
	HistoryPager bool `toml:"history_pager" json:"history_pager"`
}

// Provider names.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Busy policies.
const (
	BusyQueue  = "queue"
	BusyReject = "reject"
)

// =============================================================================
// DEFAULTS
// =============================================================================

// DefaultModelFor returns the default model for a provider.
func DefaultModelFor(provider string) string {
	if provider == ProviderAnthropic {
		return "claude-3-5-haiku-latest"
	}
	return "gpt-3.5-turbo"
}

// Default returns a Config populated with built-in defaults.
// Paths fall back to relative names when the home directory is unknown.
func Default() *Config {
	dir, err := ConfigDir()
	if err != nil {
		dir = ".rigchat"
	}
	return &Config{
		Provider: ProviderConfig{
			Name:        ProviderOpenAI,
			Model:       DefaultModelFor(ProviderOpenAI),
			TimeoutSecs: 120,
			MaxTokens:   1024,
		},
		Storage: StorageConfig{
			DatabasePath: filepath.Join(dir, "chat_history.db"),
			ExportDir:    ".",
		},
		Secrets: SecretsConfig{
			File:       filepath.Join(dir, "secrets.toml"),
			DotenvPath: ".env",
		},
		Session: SessionConfig{BusyPolicy: BusyQueue},
		Server:  ServerConfig{Addr: "127.0.0.1:8765"},
		Log: LogConfig{
			Level: "info",
			Path:  filepath.Join(dir, "rigchat.log"),
		},
		UI: UIConfig{Markdown: true, HistoryPager: false},
	}
}

// Timeout returns the completion timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Provider.TimeoutSecs) * time.Second
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the rigchat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".rigchat"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ensureSecurePermissions tightens a config file to 0600.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from ~/.rigchat/config.toml, falling back to
// defaults when the file does not exist. Environment overrides are applied
// last, then the result is validated.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		cfg := Default()
		return finish(cfg)
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific TOML file. A missing file
// yields the defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if _, statErr := os.Stat(path); statErr == nil {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	} else if !errors.Is(statErr, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config %s: %w", path, statErr)
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg. Keys absent from the file keep
// their current values.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		fmt.Fprintf(os.Stderr, "Warning: unknown config keys in %s: %v\n", path, undecoded)
	}
	// A provider named without a model gets that provider's default model.
	if md.IsDefined("provider", "name") && !md.IsDefined("provider", "model") {
		cfg.Provider.Model = ""
	}
	return nil
}

// SetDefaults fills zero values that a partial file or override may leave.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Provider.Name == "" {
		c.Provider.Name = defaults.Provider.Name
	}
	c.Provider.Name = strings.ToLower(c.Provider.Name)
	if c.Provider.Model == "" {
		c.Provider.Model = DefaultModelFor(c.Provider.Name)
	}
	if c.Provider.TimeoutSecs == 0 {
		c.Provider.TimeoutSecs = defaults.Provider.TimeoutSecs
	}
	if c.Provider.MaxTokens == 0 {
		c.Provider.MaxTokens = defaults.Provider.MaxTokens
	}
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = defaults.Storage.DatabasePath
	}
	if c.Storage.ExportDir == "" {
		c.Storage.ExportDir = defaults.Storage.ExportDir
	}
	if c.Secrets.File == "" {
		c.Secrets.File = defaults.Secrets.File
	}
	if c.Session.BusyPolicy == "" {
		c.Session.BusyPolicy = defaults.Session.BusyPolicy
	}
	c.Session.BusyPolicy = strings.ToLower(c.Session.BusyPolicy)
	if c.Server.Addr == "" {
		c.Server.Addr = defaults.Server.Addr
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	c.Log.Level = strings.ToLower(c.Log.Level)
	if c.Log.Path == "" {
		c.Log.Path = defaults.Log.Path
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes the configuration as TOML to path with 0600 permissions.
// The write is atomic.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# rigchat configuration file")
	fmt.Fprintln(&buf, "# API keys do not belong here; put them in the secrets file or the environment.")
	fmt.Fprintln(&buf, "")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns ValidateErrors when
// anything is wrong.
func (c *Config) Validate() error {
	var errs ValidateErrors

	switch c.Provider.Name {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		errs = append(errs, ValidationError{
			Field:   "provider.name",
			Message: fmt.Sprintf("invalid provider '%s', must be one of: openai, anthropic", c.Provider.Name),
		})
	}

	if c.Provider.BaseURL != "" {
		u, err := url.Parse(c.Provider.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "provider.base_url",
				Message: fmt.Sprintf("invalid URL '%s', must be an http(s) URL", c.Provider.BaseURL),
			})
		}
	}

	if c.Provider.TimeoutSecs < 1 || c.Provider.TimeoutSecs > 3600 {
		errs = append(errs, ValidationError{
			Field:   "provider.timeout_secs",
			Message: fmt.Sprintf("timeout %d out of range (1-3600)", c.Provider.TimeoutSecs),
		})
	}

	if c.Provider.MaxTokens < 1 {
		errs = append(errs, ValidationError{
			Field:   "provider.max_tokens",
			Message: "must be positive",
		})
	}

	if c.Session.BusyPolicy != BusyQueue && c.Session.BusyPolicy != BusyReject {
		errs = append(errs, ValidationError{
			Field:   "session.busy_policy",
			Message: fmt.Sprintf("invalid policy '%s', must be one of: queue, reject", c.Session.BusyPolicy),
		})
	}

	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		errs = append(errs, ValidationError{
			Field:   "server.addr",
			Message: fmt.Sprintf("invalid address '%s': %v", c.Server.Addr, err),
		})
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - RIGCHAT_PROVIDER: overrides provider.name
//   - RIGCHAT_MODEL: overrides provider.model
//   - RIGCHAT_BASE_URL: overrides provider.base_url
//   - RIGCHAT_DB: overrides storage.database_path
//   - RIGCHAT_LOG_LEVEL: overrides log.level
//   - RIGCHAT_SERVER_ADDR: overrides server.addr
func (c *Config) ApplyEnvOverrides() {
	if provider := os.Getenv("RIGCHAT_PROVIDER"); provider != "" {
		if !strings.EqualFold(provider, c.Provider.Name) && c.Provider.Model == DefaultModelFor(c.Provider.Name) {
			c.Provider.Model = ""
		}
		c.Provider.Name = provider
	}
	if model := os.Getenv("RIGCHAT_MODEL"); model != "" {
		c.Provider.Model = model
	}
	if baseURL := os.Getenv("RIGCHAT_BASE_URL"); baseURL != "" {
		c.Provider.BaseURL = baseURL
	}
	if db := os.Getenv("RIGCHAT_DB"); db != "" {
		c.Storage.DatabasePath = db
	}
	if level := os.Getenv("RIGCHAT_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if addr := os.Getenv("RIGCHAT_SERVER_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
}

// =============================================================================
// GET HELPER (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "provider.model").
func (c *Config) Get(key string) (interface{}, error) {
	parts := strings.Split(key, ".")
	if key == "" || len(parts) == 0 {
		return nil, errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return nil, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field.Interface(), nil
		}
		if field.Kind() != reflect.Struct {
			return nil, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return nil, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})
	var result strings.Builder
	for _, part := range parts {
		result.WriteString(strings.ToUpper(part[:1]))
		result.WriteString(strings.ToLower(part[1:]))
	}
	return result.String()
}

// FormatValue renders a Get result for display.
func FormatValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return strconv.Quote(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// String renders the configuration as TOML.
func (c *Config) String() string {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Sprintf("<config: %v>", err)
	}
	return buf.String()
}
