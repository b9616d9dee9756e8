package gateway

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/mategen/internal/core"
	"github.com/flemzord/mategen/internal/security"
	"github.com/flemzord/mategen/internal/security/securitytest"
	"github.com/flemzord/mategen/internal/telemetry"
)

func parseNode(t *testing.T, src string) *yaml.Node {
	t.Helper()
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(src), &doc); err != nil {
		t.Fatalf("parse yaml: %v", err)
	}
	return doc.Content[0]
}

func TestModuleInfo(t *testing.T) {
	t.Parallel()

	info := (&Gateway{}).ModuleInfo()
	if info.ID != "gateway.http" {
		t.Errorf("ID = %s", info.ID)
	}
	if _, ok := info.New().(*Gateway); !ok {
		t.Errorf("New() returned %T", info.New())
	}
}

func TestConfigure(t *testing.T) {
	t.Parallel()

	off := false
	tests := []struct {
		name string
		src  string
		want Config
	}{
		{
			name: "defaults",
			src:  "{}",
			want: Config{
				Bind: "127.0.0.1:8080", ReadTimeout: 10 * time.Second,
				WriteTimeout: 30 * time.Second, ShutdownTimeout: 5 * time.Second,
			},
		},
		{
			name: "overrides",
			src: `
bind: 0.0.0.0:9400
read_timeout: 3s
write_timeout: 2m
shutdown_timeout: 12s
metrics: false
auth:
  basic_user: analyst
  basic_pass: s3cret-pass
  bearer_token_env: MATEGEN_ADMIN_TOKEN
`,
			want: Config{
				Bind: "0.0.0.0:9400", ReadTimeout: 3 * time.Second,
				WriteTimeout: 2 * time.Minute, ShutdownTimeout: 12 * time.Second,
				Metrics: &off,
				Auth: AuthConfig{
					BasicUser: "analyst", BasicPass: "s3cret-pass",
					BearerTokenEnv: "MATEGEN_ADMIN_TOKEN",
				},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := &Gateway{}
			if err := g.Configure(parseNode(t, tt.src)); err != nil {
				t.Fatalf("Configure: %v", err)
			}
			got := g.config
			if got.metricsEnabled() != tt.want.metricsEnabled() {
				t.Errorf("metricsEnabled() = %v", got.metricsEnabled())
			}
			got.Metrics, tt.want.Metrics = nil, nil
			if got != tt.want {
				t.Errorf("config = %+v\nwant     %+v", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		bind    string
		wantErr bool
	}{
		{"127.0.0.1:8080", false},
		{":0", false},
		{"localhost", true},
		{"not a valid address::", true},
	}
	for _, tt := range tests {
		g := &Gateway{config: Config{Bind: tt.bind}}
		if err := g.Validate(); (err != nil) != tt.wantErr {
			t.Errorf("Validate(bind=%q) = %v, wantErr %v", tt.bind, err, tt.wantErr)
		}
	}
}

func TestStop_NotStarted(t *testing.T) {
	t.Parallel()

	if err := (&Gateway{}).Stop(context.Background()); err != nil {
		t.Errorf("Stop() = %v", err)
	}
}

// startGateway provisions and starts a gateway on an ephemeral port. It is
// stopped when the test ends.
func startGateway(t *testing.T, auth AuthConfig, services map[string]any) *Gateway {
	t.Helper()
	ctx := core.NewAppContext(slog.New(slog.DiscardHandler), t.TempDir(), t.TempDir())
	for name, svc := range services {
		ctx.RegisterService(name, svc)
	}

	g := &Gateway{config: Config{
		Bind:            "127.0.0.1:0",
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    5 * time.Second,
		ShutdownTimeout: 2 * time.Second,
		Auth:            auth,
	}}
	if err := g.Provision(ctx); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if err := g.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = g.Stop(context.Background()) })
	return g
}

// call sends a request to the running gateway and returns the status code
// and body. A non-empty token is sent as a bearer credential.
func call(t *testing.T, g *Gateway, method, path, token string) (int, string) {
	t.Helper()
	req, err := http.NewRequestWithContext(t.Context(), method, "http://"+g.Addr().String()+path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestGateway_Health(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		services map[string]any
		want     int
	}{
		{"assistant ready", map[string]any{AssistantServiceName: newFakeAssistant()}, http.StatusOK},
		{"no assistant", nil, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := startGateway(t, AuthConfig{}, tt.services)
			code, body := call(t, g, http.MethodGet, "/healthz", "")
			if code != tt.want {
				t.Fatalf("status = %d, want %d", code, tt.want)
			}
			if code != http.StatusOK {
				return
			}
			var health HealthResponse
			if err := json.Unmarshal([]byte(body), &health); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if health.Status != "ok" || health.Model != "gpt-4" {
				t.Errorf("health = %+v", health)
			}
		})
	}
}

func TestGateway_Metrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := telemetry.NewMetrics(reg)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	m.ToolCall("sql_inter", false)

	t.Run("registry present", func(t *testing.T) {
		t.Parallel()
		g := startGateway(t, AuthConfig{}, map[string]any{telemetry.RegistryServiceName: reg})
		code, body := call(t, g, http.MethodGet, "/metrics", "")
		if code != http.StatusOK {
			t.Fatalf("status = %d", code)
		}
		if !strings.Contains(body, `mategen_tool_calls_total{outcome="ok",tool="sql_inter"} 1`) {
			t.Errorf("tool counter missing:\n%s", body)
		}
	})
	t.Run("no registry", func(t *testing.T) {
		t.Parallel()
		g := startGateway(t, AuthConfig{}, nil)
		if code, _ := call(t, g, http.MethodGet, "/metrics", ""); code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", code)
		}
	})
}

func TestGateway_AdminRoutesNeedAuthConfig(t *testing.T) {
	t.Parallel()

	g := startGateway(t, AuthConfig{}, map[string]any{AssistantServiceName: newFakeAssistant()})
	for _, path := range []string{"/status", "/api/history", "/api/tools", "/api/modules"} {
		code, _ := call(t, g, http.MethodGet, path, "")
		if code != http.StatusNotFound && code != http.StatusMethodNotAllowed {
			t.Errorf("GET %s = %d, want the route unmounted", path, code)
		}
	}
}

func TestGateway_AdminSession(t *testing.T) {
	t.Parallel()

	rec := securitytest.NewAuditRecorder()
	a := newFakeAssistant()
	g := startGateway(t, AuthConfig{BearerToken: "admin-tok-42"}, map[string]any{
		AssistantServiceName:      a,
		security.AuditServiceName: rec.Logger(),
	})

	steps := []struct {
		method, path, token string
		want                int
	}{
		{http.MethodGet, "/status", "", http.StatusUnauthorized},
		{http.MethodGet, "/status", "admin-tok-42", http.StatusOK},
		{http.MethodDelete, "/api/history", "admin-tok-42", http.StatusNoContent},
	}
	for _, s := range steps {
		if code, _ := call(t, g, s.method, s.path, s.token); code != s.want {
			t.Errorf("%s %s (token %q) = %d, want %d", s.method, s.path, s.token, code, s.want)
		}
	}
	if n := a.resetCount(); n != 1 {
		t.Errorf("history resets = %d, want 1", n)
	}

	want := []security.EventType{
		security.EventAuthFailure, security.EventAuthSuccess,
		security.EventAuthSuccess, security.EventHistoryReset,
	}
	got := rec.Types()
	if len(got) != len(want) {
		t.Fatalf("audit = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("audit[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
