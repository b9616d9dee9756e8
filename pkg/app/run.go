// Package app wires configuration, modules and the assistant together for
// the mategen binary.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/flemzord/mategen/internal/config"
	"github.com/flemzord/mategen/internal/core"
	"github.com/flemzord/mategen/internal/gateway"
	"github.com/flemzord/mategen/internal/orchestrator"
	"github.com/flemzord/mategen/internal/security"
	"github.com/flemzord/mategen/internal/telemetry"
)

// Params configures a Session.
type Params struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, config.ResolvePath is called automatically.
	ConfigPath string

	// DataDir overrides the default persistent data directory.
	DataDir string

	// Workspace overrides the default working directory.
	Workspace string

	// LogLevel sets the minimum log level. Defaults to slog.LevelInfo.
	LogLevel slog.Level

	// LogOutput receives log lines. Defaults to os.Stderr.
	LogOutput io.Writer

	// Human answers review checkpoints. Nil runs unattended.
	Human orchestrator.HumanDecision

	// Observer receives orchestrator narration.
	Observer orchestrator.Observer

	// Overrides are applied to the loaded assistant configuration before
	// validation.
	Overrides func(*config.AssistantConfig)
}

// Session is a started application: modules running and an assistant
// ready to answer.
type Session struct {
	Config    *config.Config
	Assistant *Assistant
	Logger    *slog.Logger

	app     *core.App
	audit   *security.AuditLogger
	closers []io.Closer
}

// Open loads configuration, starts every configured module and builds the
// assistant. Close must be called to stop the modules.
func Open(ctx context.Context, p Params) (*Session, error) {
	cfgPath := p.ConfigPath
	if cfgPath == "" {
		resolved, err := config.ResolvePath()
		if err != nil {
			return nil, err
		}
		cfgPath = resolved
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if p.Overrides != nil {
		p.Overrides(&cfg.Assistant)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	cfg.Assistant.Defaults()

	s := &Session{Config: cfg}
	if err := s.start(ctx, p, cfgPath); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Session) start(ctx context.Context, p Params, cfgPath string) error {
	cfg := s.Config

	// Security foundation: credentials and log redaction.
	credStore := security.NewCredentialStore()
	redactor := security.NewRedactor()

	out := p.LogOutput
	if out == nil {
		out = os.Stderr
	}
	inner := slog.NewTextHandler(out, &slog.HandlerOptions{Level: p.LogLevel})
	logger := slog.New(security.NewRedactingHandler(inner, redactor))
	s.Logger = logger
	logger.Debug("configuration loaded", "path", cfgPath, "modules", len(cfg.Modules))

	auditLogger, err := s.openAudit(cfg.Audit, redactor)
	if err != nil {
		return err
	}
	s.audit = auditLogger

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := telemetry.NewMetrics(reg)
	if err != nil {
		return err
	}

	dataDir := p.DataDir
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}
	workspace := p.Workspace
	if workspace == "" {
		workspace = DefaultWorkspace()
	}

	appCtx := core.NewAppContext(logger, dataDir, workspace)
	appCtx = appCtx.WithModuleConfigs(cfg.Modules)

	appCtx.RegisterService(security.CredentialsServiceName, credStore)
	appCtx.RegisterService(security.AuditServiceName, auditLogger)
	appCtx.RegisterService(telemetry.RegistryServiceName, reg)

	s.app = core.NewApp(appCtx)
	if err := s.app.LoadModules(config.Resolve(cfg)); err != nil {
		return err
	}

	// Modules registered their secrets while provisioning.
	redactor.SyncCredentials(credStore)
	logger.Debug("credentials registered", "names", credStore.Names())

	assistant, err := wireAssistant(ctx, wiring{
		app:      s.app,
		appCtx:   appCtx,
		cfg:      cfg.Assistant,
		human:    p.Human,
		observer: p.Observer,
		audit:    auditLogger,
		redactor: redactor,
		metrics:  metrics,
		logger:   logger,
	})
	if err != nil {
		return err
	}
	s.Assistant = assistant

	// The gateway discovers the assistant when it starts.
	appCtx.RegisterService(gateway.AssistantServiceName, assistant)

	return s.app.Start()
}

func (s *Session) openAudit(cfg config.AuditConfig, redactor *security.Redactor) (*security.AuditLogger, error) {
	if cfg.Path == "" {
		return security.NewAuditLogger(security.AuditLoggerConfig{Redactor: redactor}), nil
	}
	l, err := security.OpenAuditFile(cfg.Path, redactor)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	s.closers = append(s.closers, l)
	return l, nil
}

// Close stops every module and releases the session's files.
func (s *Session) Close() {
	if s.app != nil {
		// Module stop errors are already logged by core.
		_ = s.app.Stop(context.Background())
	}
	if n := s.audit.WriteErrors(); n > 0 && s.Logger != nil {
		s.Logger.Warn("audit events were lost", "count", n)
	}
	for _, c := range s.closers {
		if err := c.Close(); err != nil && s.Logger != nil {
			s.Logger.Warn("closing session resource", "error", err)
		}
	}
	s.closers = nil
}

// Wait blocks until ctx is done or an interrupt or termination signal is
// received.
func (s *Session) Wait(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		s.Logger.Info("shutdown signal received", "signal", sig.String())
		return nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil
		}
		return ctx.Err()
	}
}

// DefaultDataDir returns the default persistent data directory.
// Uses $XDG_DATA_HOME/mategen if set, otherwise ~/.local/share/mategen.
func DefaultDataDir() string {
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok && dir != "" {
		return filepath.Join(dir, "mategen")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "mategen")
}

// DefaultWorkspace returns the current working directory.
func DefaultWorkspace() string {
	dir, _ := os.Getwd()
	return dir
}
