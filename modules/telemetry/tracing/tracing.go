// Package tracing implements the telemetry.tracing module, which exports
// orchestrator spans over OTLP/HTTP.
package tracing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/mategen/internal/core"
	"github.com/flemzord/mategen/internal/telemetry"
)

// TracerProviderServiceName is the service key of the installed
// trace.TracerProvider.
const TracerProviderServiceName = "telemetry.tracer_provider"

func init() {
	core.RegisterModule(&Module{})
}

// Compile-time interface guards.
var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

// Config holds the exporter configuration.
type Config struct {
	// Endpoint is the collector host:port. Defaults to localhost:4318.
	Endpoint string            `yaml:"endpoint"`
	URLPath  string            `yaml:"url_path"`
	Insecure bool              `yaml:"insecure"`
	Headers  map[string]string `yaml:"headers"`

	ServiceName string `yaml:"service_name"`

	// SampleRatio is the fraction of root traces kept. Defaults to 1.
	SampleRatio *float64 `yaml:"sample_ratio"`

	Timeout time.Duration `yaml:"timeout"`
}

func (c *Config) defaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.ServiceName == "" {
		c.ServiceName = "mategen"
	}
	if c.SampleRatio == nil {
		ratio := 1.0
		c.SampleRatio = &ratio
	}
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
}

func (c *Config) validate() error {
	var errs []error
	if r := *c.SampleRatio; r < 0 || r > 1 {
		errs = append(errs, fmt.Errorf("telemetry.tracing: sample_ratio %v out of [0, 1]", r))
	}
	if c.Timeout < 0 {
		errs = append(errs, errors.New("telemetry.tracing: timeout must be non-negative"))
	}
	return errors.Join(errs...)
}

// Module installs an SDK tracer provider with a batching OTLP/HTTP
// exporter as the global provider.
type Module struct {
	config   Config
	logger   *slog.Logger
	provider *sdktrace.TracerProvider
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "telemetry.tracing",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("telemetry.tracing: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	return m.config.validate()
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger
	if err := m.config.validate(); err != nil {
		return err
	}

	exp, err := otlptracehttp.New(context.Background(), m.exporterOptions()...)
	if err != nil {
		return fmt.Errorf("telemetry.tracing: exporter: %w", err)
	}

	m.provider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", m.config.ServiceName),
		)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(*m.config.SampleRatio))),
	)
	otel.SetTracerProvider(m.provider)
	ctx.RegisterService(TracerProviderServiceName, trace.TracerProvider(m.provider))

	m.logger.Info("tracing enabled", "endpoint", m.config.Endpoint, "service", m.config.ServiceName)
	return nil
}

func (m *Module) exporterOptions() []otlptracehttp.Option {
	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(m.config.Endpoint),
		otlptracehttp.WithTimeout(m.config.Timeout),
	}
	if m.config.URLPath != "" {
		opts = append(opts, otlptracehttp.WithURLPath(m.config.URLPath))
	}
	if m.config.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(m.config.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(m.config.Headers))
	}
	return opts
}

// Tracer returns the mategen tracer of the installed provider.
func (m *Module) Tracer() trace.Tracer {
	if m.provider == nil {
		return telemetry.Tracer()
	}
	return m.provider.Tracer(telemetry.InstrumentationName)
}

// Stop implements core.Stopper. Pending spans are flushed.
func (m *Module) Stop(ctx context.Context) error {
	if m.provider == nil {
		return nil
	}
	if err := m.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("telemetry.tracing: shutdown: %w", err)
	}
	return nil
}
