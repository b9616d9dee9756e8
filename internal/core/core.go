package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const shutdownTimeout = 30 * time.Second

// App drives the lifecycle of the modules named in a configuration: load
// (configure, provision, validate) in rank order, start, and stop in
// reverse.
type App struct {
	ctx     *AppContext
	modules []loaded
	logger  *slog.Logger
}

type loaded struct {
	id      ModuleID
	mod     Module
	started bool
}

// NewApp creates an App whose modules are provisioned against ctx.
func NewApp(ctx *AppContext) *App {
	return &App{
		ctx:    ctx,
		logger: ctx.Logger.With("component", "core"),
	}
}

// Context returns the AppContext the modules were loaded with.
func (a *App) Context() *AppContext {
	return a.ctx
}

// LoadModules loads ids in order. On failure every module loaded so far is
// released and the App is left empty.
func (a *App) LoadModules(ids []string) error {
	for _, id := range ids {
		mod, err := a.ctx.LoadModule(id)
		if err != nil {
			_ = a.release(context.Background(), len(a.modules), false)
			a.modules = nil
			return fmt.Errorf("loading module %s: %w", id, err)
		}
		a.modules = append(a.modules, loaded{id: ModuleID(id), mod: mod})
		a.logger.Debug("module loaded", "module", id)
	}
	return nil
}

// Module returns the loaded module with the given ID.
func (a *App) Module(id string) (Module, bool) {
	for _, m := range a.modules {
		if string(m.id) == id {
			return m.mod, true
		}
	}
	return nil, false
}

// Modules returns the loaded modules in load order.
func (a *App) Modules() []Module {
	out := make([]Module, len(a.modules))
	for i, m := range a.modules {
		out[i] = m.mod
	}
	return out
}

// Start starts every Starter in load order. If one fails, the modules
// started before it are stopped again.
func (a *App) Start() error {
	for i := range a.modules {
		m := &a.modules[i]
		s, ok := m.mod.(Starter)
		if !ok {
			continue
		}
		if err := s.Start(); err != nil {
			a.logger.Error("module start failed", "module", string(m.id), "error", err)
			_ = a.release(context.Background(), i, true)
			return fmt.Errorf("starting module %s: %w", m.id, err)
		}
		m.started = true
		a.logger.Debug("module started", "module", string(m.id))
	}
	return nil
}

// Stop releases every loaded module in reverse order, started or not, so
// handles opened during Provision are closed. Stop errors are logged and
// returned joined.
func (a *App) Stop(ctx context.Context) error {
	return a.release(ctx, len(a.modules), false)
}

// release stops the first n modules newest first, skipping modules that
// never started when startedOnly is set.
func (a *App) release(parent context.Context, n int, startedOnly bool) error {
	ctx, cancel := context.WithTimeout(parent, shutdownTimeout)
	defer cancel()

	var errs []error
	for i := n - 1; i >= 0; i-- {
		m := &a.modules[i]
		if startedOnly && !m.started {
			continue
		}
		m.started = false
		s, ok := m.mod.(Stopper)
		if !ok {
			continue
		}
		if err := s.Stop(ctx); err != nil {
			a.logger.Error("module stop failed", "module", string(m.id), "error", err)
			errs = append(errs, fmt.Errorf("stopping module %s: %w", m.id, err))
		}
	}
	return errors.Join(errs...)
}
