// Package gateway provides an HTTP server for monitoring and administering a
// running assistant. It binds to loopback by default and follows the module
// system pattern.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/mategen/internal/core"
	"github.com/flemzord/mategen/internal/security"
	"github.com/flemzord/mategen/internal/telemetry"
)

func init() {
	core.RegisterModule(&Gateway{})
}

// Compile-time interface guards.
var (
	_ core.Configurable = (*Gateway)(nil)
	_ core.Provisioner  = (*Gateway)(nil)
	_ core.Validator    = (*Gateway)(nil)
	_ core.Starter      = (*Gateway)(nil)
	_ core.Stopper      = (*Gateway)(nil)
)

// Gateway is the HTTP gateway module. It exposes health, metrics, status
// and admin endpoints. It is a leaf module: nothing imports it.
type Gateway struct {
	config    Config
	appCtx    *core.AppContext
	logger    *slog.Logger
	server    *http.Server
	addr      net.Addr
	startedAt time.Time

	// Resolved lazily at Start() via service registry.
	assistant Assistant
	gatherer  prometheus.Gatherer
	audit     *security.AuditLogger
}

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "gateway.http",
		New: func() core.Module { return &Gateway{} },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return err
	}
	g.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (g *Gateway) Provision(ctx *core.AppContext) error {
	g.config.defaults()
	g.appCtx = ctx
	g.logger = ctx.Logger

	auth := &g.config.Auth
	if auth.BearerToken == "" && auth.BearerTokenEnv != "" {
		auth.BearerToken = os.Getenv(auth.BearerTokenEnv)
		if auth.BearerToken == "" {
			g.logger.Warn("gateway token variable is empty, admin bearer auth disabled", "env", auth.BearerTokenEnv)
		}
	}
	if svc, ok := ctx.GetService(security.CredentialsServiceName); ok {
		if creds, ok := svc.(*security.CredentialStore); ok {
			creds.Set("GATEWAY_BEARER_TOKEN", auth.BearerToken)
			creds.Set("GATEWAY_BASIC_PASS", auth.BasicPass)
		}
	}
	return nil
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	if _, err := net.ResolveTCPAddr("tcp", g.config.Bind); err != nil {
		return errors.New("gateway: invalid bind address: " + g.config.Bind)
	}
	return nil
}

// Start implements core.Starter. It resolves dependencies from the service
// registry (lazy binding) and starts the HTTP server.
func (g *Gateway) Start() error {
	g.resolve()
	g.startedAt = time.Now()

	g.server = &http.Server{
		Addr:         g.config.Bind,
		Handler:      g.buildRouter(),
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return errors.New("gateway: listen failed: " + err.Error())
	}
	g.addr = ln.Addr()

	go func() {
		g.logger.Info("gateway listening", "addr", g.addr.String())
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// resolve binds the optional services. Missing services degrade the
// endpoints that need them.
func (g *Gateway) resolve() {
	if g.appCtx == nil {
		return
	}
	if svc, ok := g.appCtx.GetService(AssistantServiceName); ok {
		g.assistant, _ = svc.(Assistant)
	}
	if svc, ok := g.appCtx.GetService(telemetry.RegistryServiceName); ok {
		g.gatherer, _ = svc.(prometheus.Gatherer)
	}
	if svc, ok := g.appCtx.GetService(security.AuditServiceName); ok {
		g.audit, _ = svc.(*security.AuditLogger)
	}
}

// Addr returns the listening address once started.
func (g *Gateway) Addr() net.Addr {
	return g.addr
}

// Stop implements core.Stopper. Graceful shutdown with configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}
