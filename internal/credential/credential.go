// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/logging"
)

// ErrNotFound means no source holds a key. It is a normal outcome.
var ErrNotFound = errors.New("credential not found")

// =============================================================================
// CREDENTIAL
// =============================================================================

// Credential is a resolved API key and the name of the source it came from.
type Credential struct {
	Value  string
	Source string
}

// Masked returns the key with everything but its edges hidden.
func (c Credential) Masked() string {
	if len(c.Value) <= 10 {
		return strings.Repeat("*", len(c.Value))
	}
	return c.Value[:3] + "..." + c.Value[len(c.Value)-4:]
}

// =============================================================================
// SOURCES AND RESOLVER
// =============================================================================

// Source is one place a key may be stored.
// Lookup returns ErrNotFound when the source has no key.
type Source interface {
	Name() string
	Lookup(ctx context.Context) (string, error)
}

// Resolver checks its sources in order. It holds no state between calls,
// so resolving twice with the same inputs gives the same answer.
type Resolver struct {
	sources []Source
	logger  *slog.Logger
}

// NewResolver creates a resolver over sources, highest precedence first.
func NewResolver(logger *slog.Logger, sources ...Source) *Resolver {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Resolver{sources: sources, logger: logger}
}

// Sources returns the source names in precedence order.
func (r *Resolver) Sources() []string {
	names := make([]string, 0, len(r.sources))
	for _, s := range r.sources {
		names = append(names, s.Name())
	}
	return names
}

// Resolve returns the first non-empty key. A source that fails for any
// reason other than ErrNotFound is logged and skipped.
func (r *Resolver) Resolve(ctx context.Context) (Credential, error) {
	for _, src := range r.sources {
		value, err := src.Lookup(ctx)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				r.logger.Warn("credential_source_failed", "source", src.Name(), "err", err)
			}
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		r.logger.Debug("credential_resolved", "source", src.Name())
		return Credential{Value: value, Source: src.Name()}, nil
	}
	return Credential{}, ErrNotFound
}

// =============================================================================
// PROVIDER WIRING
// =============================================================================

// KeyNames returns the secrets-file key and environment variable for a provider.
func KeyNames(provider string) (fileKey, envVar string) {
	if provider == config.ProviderAnthropic {
		return "anthropic_api_key", "ANTHROPIC_API_KEY"
	}
	return "openai_api_key", "OPENAI_API_KEY"
}

// ForProvider builds the standard resolver: secrets file, SSM parameter
// (when configured), then environment.
func ForProvider(ctx context.Context, cfg *config.Config, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = logging.Discard()
	}
	fileKey, envVar := KeyNames(cfg.Provider.Name)

	sources := []Source{NewFileSource(cfg.Secrets.File, fileKey)}
	if cfg.Secrets.SSMParameter != "" {
		ssmSrc, err := NewSSMSourceFromConfig(ctx, cfg.Secrets.SSMParameter, cfg.Secrets.SSMRegion)
		if err != nil {
			logger.Warn("ssm_source_unavailable", "parameter", cfg.Secrets.SSMParameter, "err", err)
		} else {
			sources = append(sources, ssmSrc)
		}
	}
	sources = append(sources, NewEnvSource(envVar, cfg.Secrets.DotenvPath))

	return NewResolver(logger, sources...)
}

// =============================================================================
// INTERACTIVE FALLBACK
// =============================================================================

// Obtain resolves a key and, when no source has one, waits for the
// prompter. It returns ErrNotFound if the user enters nothing.
func Obtain(ctx context.Context, r *Resolver, p Prompter) (Credential, error) {
	cred, err := r.Resolve(ctx)
	if err == nil {
		return cred, nil
	}
	if !errors.Is(err, ErrNotFound) || p == nil {
		return Credential{}, err
	}

	select {
	case <-ctx.Done():
		return Credential{}, ctx.Err()
	case res := <-p.Prompt(ctx, "API key"):
		if res.Err != nil {
			return Credential{}, fmt.Errorf("read key: %w", res.Err)
		}
		value := strings.TrimSpace(res.Value)
		if value == "" {
			return Credential{}, fmt.Errorf("no key entered: %w", ErrNotFound)
		}
		return Credential{Value: value, Source: "prompt"}, nil
	}
}
