// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// app.go - Wiring shared by every command.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/jeranaias/rigchat/internal/completion"
	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/credential"
	"github.com/jeranaias/rigchat/internal/logging"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/session"
	"github.com/jeranaias/rigchat/internal/storage"
)

// App holds the configuration, log, store and session for one command.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Store   *storage.Store
	Session *session.Controller

	// Provider is set by Connect.
	Provider completion.Provider

	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer

	client  switchableClient
	closers []io.Closer
}

// OpenApp loads configuration, opens the log and the conversation store,
// and restores the saved conversation. Completion is unavailable until
// Connect succeeds.
func OpenApp(ctx context.Context, args Args) (*App, error) {
	cfg, err := loadConfig(args)
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if args.Verbose {
		level = "debug"
	}
	logger, logCloser, err := logging.New(cfg.Log.Path, level)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}

	app := &App{
		Config:  cfg,
		Logger:  logger,
		In:      os.Stdin,
		Out:     os.Stdout,
		ErrOut:  os.Stderr,
		closers: []io.Closer{logCloser},
	}

	store, err := storage.Open(cfg.Storage.DatabasePath)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Store = store
	app.closers = append([]io.Closer{store}, app.closers...)

	policy, err := session.ParseBusyPolicy(cfg.Session.BusyPolicy)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Session = session.NewController(store, &app.client, session.Options{
		BusyPolicy: policy,
		Logger:     logger,
	})
	if err := app.Session.Load(ctx); err != nil && !errors.Is(err, storage.ErrCorruptData) {
		app.Close()
		return nil, err
	}

	logger.Info("app_opened",
		"provider", cfg.Provider.Name,
		"model", cfg.Provider.Model,
		"db", cfg.Storage.DatabasePath,
		"messages", len(app.Session.Transcript()),
	)
	return app, nil
}

func loadConfig(args Args) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if args.ConfigPath != "" {
		cfg, err = config.LoadFromPath(args.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	changed := false
	if args.Provider != "" && args.Provider != cfg.Provider.Name {
		cfg.Provider.Name = args.Provider
		cfg.Provider.Model = ""
		changed = true
	}
	if args.Model != "" {
		cfg.Provider.Model = args.Model
		changed = true
	}
	if changed {
		cfg.SetDefaults()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid flags: %w", err)
		}
	}
	return cfg, nil
}

// Connect resolves the API key, prompting when no source has one, and
// enables completion. When a secrets file is configured it is watched and
// a changed key is applied to the running provider.
func (a *App) Connect(ctx context.Context, prompter credential.Prompter) error {
	resolver := credential.ForProvider(ctx, a.Config, a.Logger)
	cred, err := credential.Obtain(ctx, resolver, prompter)
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			fileKey, envVar := credential.KeyNames(a.Config.Provider.Name)
			return fmt.Errorf("no API key: add %s to %s or set %s: %w",
				fileKey, a.Config.Secrets.File, envVar, err)
		}
		return err
	}
	a.Logger.Info("credential_resolved", "source", cred.Source, "key", cred.Masked())

	provider, err := completion.New(a.Config, cred.Value)
	if err != nil {
		return err
	}
	a.Provider = provider
	a.client.set(provider)

	if a.Config.Secrets.File != "" {
		go a.watchSecrets(ctx, resolver, cred.Value)
	}
	return nil
}

func (a *App) watchSecrets(ctx context.Context, resolver *credential.Resolver, current string) {
	err := credential.Watch(ctx, a.Config.Secrets.File, func() {
		cred, err := resolver.Resolve(ctx)
		if err != nil || cred.Value == current {
			return
		}
		current = cred.Value
		a.Provider.SetAPIKey(cred.Value)
		a.Logger.Info("credential_rotated", "source", cred.Source, "key", cred.Masked())
	})
	if err != nil && ctx.Err() == nil {
		a.Logger.Debug("secrets_watch_stopped", "path", a.Config.Secrets.File, "err", err)
	}
}

// Close releases the store and the log file.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Messages reads the conversation from the store.
func (a *App) Messages(ctx context.Context) ([]model.Message, error) {
	return a.Store.ReadAll(ctx)
}

// ProviderLabel describes the configured provider and model.
func (a *App) ProviderLabel() string {
	return strings.TrimSpace(a.Config.Provider.Name + " " + a.Config.Provider.Model)
}

// switchableClient forwards turns to the provider once Connect has set it.
type switchableClient struct {
	mu       sync.RWMutex
	provider completion.Client
}

func (c *switchableClient) set(p completion.Client) {
	c.mu.Lock()
	c.provider = p
	c.mu.Unlock()
}

// Complete implements completion.Client.
func (c *switchableClient) Complete(ctx context.Context, msgs []model.Message, onDelta completion.DeltaFunc) (string, error) {
	c.mu.RLock()
	p := c.provider
	c.mu.RUnlock()
	if p == nil {
		return "", completion.ErrNotConfigured
	}
	return p.Complete(ctx, msgs, onDelta)
}
