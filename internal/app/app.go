// Package app wires configuration, logging, the local store, the sync engine
// and the actions for one CLI invocation.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"taskmirror/internal/actions"
	"taskmirror/internal/backend"
	"taskmirror/internal/config"
	"taskmirror/internal/logging"
	"taskmirror/internal/service"
	"taskmirror/internal/store"
	"taskmirror/internal/syncer"
)

// Options overrides the production collaborators.
type Options struct {
	// Sources resolves the remote adapter. Defaults to backend.New.
	Sources syncer.SourceFactory

	// Sharer is used by share before falling back to the clipboard.
	Sharer actions.Sharer

	// Clipboard defaults to the system clipboard.
	Clipboard actions.Clipboard

	// LogStderr receives logs when no log file is configured. Defaults to os.Stderr.
	LogStderr io.Writer
}

// App is the wired application.
type App struct {
	Config  *config.Config
	Log     logging.Logger
	Store   *store.Store
	Engine  *syncer.Engine
	Actions *actions.Actions
	Sources syncer.SourceFactory

	logCloser io.Closer
}

// New opens the store, loads it into a new engine and returns the wired app.
// obs receives every notice and publication.
func New(ctx context.Context, cfg *config.Config, obs syncer.Observer, opts Options) (*App, error) {
	log, logCloser := logging.New(logging.Options{Debug: cfg.Debug, File: cfg.LogFile, Stderr: opts.LogStderr})

	if cfg.DBPath != store.MemoryDSN {
		if err := cfg.EnsureDir(); err != nil {
			_ = logCloser.Close()
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	st, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		_ = logCloser.Close()
		return nil, err
	}

	sources := opts.Sources
	if sources == nil {
		sources = func(ctx context.Context, settings service.Settings) (service.Service, error) {
			return backend.New(ctx, cfg, settings)
		}
	}

	engine := syncer.New(st, sources,
		syncer.WithObserver(obs),
		syncer.WithLogger(log.With("component", "syncer")),
		syncer.WithTimeout(cfg.SyncTimeout),
		syncer.WithPageSize(cfg.PageSize),
	)
	if err := engine.Load(ctx); err != nil {
		_ = st.Close()
		_ = logCloser.Close()
		return nil, err
	}

	actOpts := []actions.Option{actions.WithLogger(log.With("component", "actions"))}
	if opts.Sharer != nil {
		actOpts = append(actOpts, actions.WithSharer(opts.Sharer))
	}
	if opts.Clipboard != nil {
		actOpts = append(actOpts, actions.WithClipboard(opts.Clipboard))
	}

	log.Debug(ctx, "app ready", "db", cfg.DBPath, "tasks", len(engine.Tasks()))
	return &App{
		Config:    cfg,
		Log:       log,
		Store:     st,
		Engine:    engine,
		Actions:   actions.New(st, engine, obs, actOpts...),
		Sources:   sources,
		logCloser: logCloser,
	}, nil
}

// Close releases the store and the log file.
func (a *App) Close() error {
	return errors.Join(a.Store.Close(), a.logCloser.Close())
}
