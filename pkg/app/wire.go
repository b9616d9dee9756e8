package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/flemzord/mategen/internal/config"
	"github.com/flemzord/mategen/internal/conversation"
	"github.com/flemzord/mategen/internal/core"
	"github.com/flemzord/mategen/internal/orchestrator"
	"github.com/flemzord/mategen/internal/provider"
	"github.com/flemzord/mategen/internal/security"
	"github.com/flemzord/mategen/internal/store"
	"github.com/flemzord/mategen/internal/telemetry"
	"github.com/flemzord/mategen/internal/tool"
)

// wiring carries what wireAssistant needs from the session.
type wiring struct {
	app      *core.App
	appCtx   *core.AppContext
	cfg      config.AssistantConfig
	human    orchestrator.HumanDecision
	observer orchestrator.Observer
	audit    *security.AuditLogger
	redactor *security.Redactor
	metrics  *telemetry.Metrics
	logger   *slog.Logger
}

// wireAssistant discovers the provider, the toolsets and the store among
// the loaded modules and builds the assistant on top of them. Must be
// called after LoadModules and before Start.
func wireAssistant(ctx context.Context, w wiring) (*Assistant, error) {
	var (
		prov     provider.Provider
		toolsets []tool.Toolset
	)
	for _, mod := range w.app.Modules() {
		if p, ok := mod.(provider.Provider); ok {
			prov = p
			w.logger.Info("app: discovered provider", "module", string(mod.ModuleInfo().ID))
		}
		if ts, ok := mod.(tool.Toolset); ok {
			toolsets = append(toolsets, ts)
		}
	}
	if prov == nil {
		return nil, errors.New("app: a provider module is required")
	}

	model := w.cfg.Model
	if model == "" {
		model = prov.ModelName()
	}

	registry := tool.NewRegistry(&tool.ModelSchemaGenerator{
		Provider: prov,
		Model:    model,
		Logger:   w.logger,
	})
	for _, ts := range toolsets {
		for _, t := range ts.Tools() {
			// A tool whose schema cannot be built stays uncallable; the
			// others remain available.
			if err := registry.Register(ctx, t, nil); err != nil {
				w.logger.Warn("app: tool not registered", "tool", t.Name(), "error", err)
				continue
			}
			w.logger.Debug("app: tool registered", "tool", t.Name())
		}
	}
	policy, err := tool.ParsePolicy(w.cfg.ToolPolicy)
	if err != nil {
		return nil, err
	}
	if err := registry.SetPolicy(policy); err != nil {
		return nil, err
	}

	var invoker *tool.Invoker
	if registry.Len() > 0 {
		workdir := w.cfg.Workdir
		if workdir == "" {
			workdir = w.appCtx.Workspace
		}
		invoker = tool.NewInvoker(tool.InvokerConfig{
			Registry: registry,
			Workdir:  workdir,
			Logger:   w.logger.With("component", "tool"),
			Audit:    w.audit,
			Redactor: w.redactor,
		})
	}

	orch, err := orchestrator.New(orchestrator.Config{
		Provider:  prov,
		Model:     model,
		Invoker:   invoker,
		Human:     w.human,
		Developer: w.cfg.DeveloperMode,
		Enhanced:  w.cfg.EnhancedMode,
		Retry:     w.cfg.Retry,
		MaxDepth:  w.cfg.MaxDebugDepth,
		Observer:  w.observer,
		Metrics:   w.metrics,
		Logger:    w.logger.With("component", "orchestrator"),
	})
	if err != nil {
		return nil, err
	}

	system, err := w.cfg.SystemMessages()
	if err != nil {
		return nil, err
	}

	project, err := openProject(ctx, w.appCtx, w.cfg)
	if err != nil {
		return nil, err
	}

	return NewAssistant(AssistantConfig{
		Orchestrator: orch,
		Registry:     registry,
		System:       system,
		Budget:       budgetFor(w.cfg.Budget, model),
		Counter:      counterFor(w.cfg.Encoding),
		Project:      project,
		Audit:        w.audit,
		Metrics:      w.metrics,
		Logger:       w.logger.With("component", "assistant"),
	})
}

// openProject binds the configured project and part in the store module.
func openProject(ctx context.Context, appCtx *core.AppContext, cfg config.AssistantConfig) (*store.Project, error) {
	if cfg.Project == "" {
		return nil, nil
	}
	svc, ok := appCtx.GetService(store.ServiceName)
	if !ok {
		return nil, fmt.Errorf("app: project %q needs a store module", cfg.Project)
	}
	st, ok := svc.(store.Store)
	if !ok {
		return nil, fmt.Errorf("app: service %q is %T, not a store", store.ServiceName, svc)
	}
	return store.Open(ctx, st, cfg.Project, cfg.Part)
}

// budgetFor resolves the configured budget: zero derives it from the model
// name and -1 disables eviction.
func budgetFor(configured int, model string) int {
	switch {
	case configured == 0:
		return conversation.BudgetForModel(model)
	case configured < 0:
		return 0
	default:
		return configured
	}
}

func counterFor(encoding string) conversation.TokenCounter {
	if encoding == config.EncodingChars {
		return conversation.NewCharCounter(0)
	}
	return conversation.NewCounter(encoding)
}
