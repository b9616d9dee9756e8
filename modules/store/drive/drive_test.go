package drive

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/mategen/internal/core"
	"github.com/flemzord/mategen/internal/security"
	"github.com/flemzord/mategen/internal/store"
	"github.com/flemzord/mategen/internal/store/storetest"
)

func newTestStore(t *testing.T) (*Store, *fakeGoogle) {
	t.Helper()
	fake, srv := newFakeGoogle(t)
	st, err := New(context.Background(), Options{
		HTTPClient:    srv.Client(),
		DriveEndpoint: srv.URL + "/drive/v3/",
		DocsEndpoint:  srv.URL + "/docs/",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return st, fake
}

func TestStoreConformance(t *testing.T) {
	t.Parallel()

	storetest.Run(t, func(t *testing.T) store.Store {
		st, _ := newTestStore(t)
		return st
	})
}

func TestNew_RequiresAuth(t *testing.T) {
	t.Parallel()

	if _, err := New(context.Background(), Options{}); err == nil {
		t.Fatal("New() without credentials should fail")
	}
}

func TestCreateOrGetContainer_ReusesFolder(t *testing.T) {
	t.Parallel()

	st, fake := newTestStore(t)
	ctx := context.Background()
	for range 3 {
		if _, err := st.CreateOrGetContainer(ctx, "O'Brien analysis"); err != nil {
			t.Fatalf("CreateOrGetContainer() error = %v", err)
		}
	}
	if n := fake.count("POST /drive/v3/files"); n != 1 {
		t.Errorf("folders created = %d, want 1", n)
	}
}

func TestRootFolderParentsProjects(t *testing.T) {
	t.Parallel()

	fake, srv := newFakeGoogle(t)
	ctx := context.Background()
	st, err := New(ctx, Options{
		HTTPClient:    srv.Client(),
		DriveEndpoint: srv.URL + "/drive/v3/",
		DocsEndpoint:  srv.URL + "/docs/",
		RootFolderID:  "root-folder",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	c, err := st.CreateOrGetContainer(ctx, "churn")
	if err != nil {
		t.Fatalf("CreateOrGetContainer() error = %v", err)
	}
	fake.mu.Lock()
	parents := fake.files[c.ID].Parents
	fake.mu.Unlock()
	if len(parents) != 1 || parents[0] != "root-folder" {
		t.Errorf("parents = %v, want [root-folder]", parents)
	}
}

func TestClearEmptyDocumentIsNoop(t *testing.T) {
	t.Parallel()

	st, fake := newTestStore(t)
	ctx := context.Background()
	c, _ := st.CreateOrGetContainer(ctx, "churn")
	d, _ := st.CreateOrGetDocument(ctx, c, "part1")

	if err := st.Clear(ctx, d); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if n := fake.count("POST /docs/v1/documents/{op}"); n != 0 {
		t.Errorf("batch updates = %d, want none for an empty document", n)
	}
}

func TestAppendNonASCII(t *testing.T) {
	t.Parallel()

	st, _ := newTestStore(t)
	ctx := context.Background()
	c, _ := st.CreateOrGetContainer(ctx, "churn")
	d, _ := st.CreateOrGetDocument(ctx, c, "part1")

	for _, text := range []string{"数据分析 🚀", "café"} {
		if err := st.Append(ctx, d, text); err != nil {
			t.Fatalf("Append(%q) error = %v", text, err)
		}
	}
	got, err := st.Read(ctx, d)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if want := "\"数据分析 🚀\"\n\n\"café\"\n\n"; got != want {
		t.Errorf("Read() = %q, want %q", got, want)
	}
}

func TestDeleteAllRemovesEveryChild(t *testing.T) {
	t.Parallel()

	st, fake := newTestStore(t)
	ctx := context.Background()
	c, _ := st.CreateOrGetContainer(ctx, "churn")
	_, _ = st.CreateOrGetDocument(ctx, c, "part1")

	fake.mu.Lock()
	fake.files["img"] = &fakeFile{ID: "img", Name: "plot.png", MimeType: "image/png", Parents: []string{c.ID}}
	fake.mu.Unlock()

	if err := st.DeleteAll(ctx, c); err != nil {
		t.Fatalf("DeleteAll() error = %v", err)
	}
	fake.mu.Lock()
	defer fake.mu.Unlock()
	for _, f := range fake.files {
		for _, p := range f.Parents {
			if p == c.ID {
				t.Errorf("file %s survived DeleteAll", f.Name)
			}
		}
	}
}

func TestListMissingFolder(t *testing.T) {
	t.Parallel()

	st, _ := newTestStore(t)
	_, err := st.List(context.Background(), store.Container{ID: "nope", Name: "nope"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("List() error = %v, want ErrNotFound", err)
	}
}

func TestQuote(t *testing.T) {
	t.Parallel()

	tests := []struct{ in, want string }{
		{"plain", "plain"},
		{"O'Brien", `O\'Brien`},
		{`back\slash`, `back\\slash`},
	}
	for _, tt := range tests {
		if got := quote(tt.in); got != tt.want {
			t.Errorf("quote(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func writeCredentials(t *testing.T, dir string, body string) string {
	t.Helper()
	path := filepath.Join(dir, "token.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadTokenSource(t *testing.T) {
	t.Parallel()

	expiry := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	path := writeCredentials(t, t.TempDir(), `{
		"token": "ya29.access",
		"refresh_token": "1//refresh",
		"client_id": "client.apps.googleusercontent.com",
		"client_secret": "secret",
		"expiry": "`+expiry+`"
	}`)

	creds := security.NewCredentialStore()
	ts, err := LoadTokenSource(context.Background(), path, creds)
	if err != nil {
		t.Fatalf("LoadTokenSource() error = %v", err)
	}
	for name, want := range map[string]string{"DRIVE_REFRESH_TOKEN": "1//refresh", "DRIVE_CLIENT_SECRET": "secret"} {
		if got, _ := creds.Get(name); got != want {
			t.Errorf("credential %s = %q, want %q", name, got, want)
		}
	}
	tok, err := ts.Token()
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if tok.AccessToken != "ya29.access" {
		t.Errorf("AccessToken = %q", tok.AccessToken)
	}
}

func TestLoadTokenSource_Invalid(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(dir, "absent.json")},
		{"not json", writeCredentials(t, t.TempDir(), "nope")},
		{"no refresh token", writeCredentials(t, t.TempDir(), `{"client_id":"x"}`)},
	}
	for _, tt := range tests {
		if _, err := LoadTokenSource(context.Background(), tt.path, nil); err == nil {
			t.Errorf("%s: LoadTokenSource() should fail", tt.name)
		}
	}
}

func TestModuleLifecycle(t *testing.T) {
	t.Parallel()

	_, srv := newFakeGoogle(t)
	dir := t.TempDir()
	expiry := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	creds := writeCredentials(t, dir, `{"token":"ya29.a","refresh_token":"r","client_id":"c","expiry":"`+expiry+`"}`)

	var node yaml.Node
	cfg := "credentials_file: " + creds + "\n" +
		"drive_endpoint: " + srv.URL + "/drive/v3/\n" +
		"docs_endpoint: " + srv.URL + "/docs/\n" +
		"timeout: 5s\n"
	if err := yaml.Unmarshal([]byte(cfg), &node); err != nil {
		t.Fatal(err)
	}

	m := &Module{}
	if err := m.Configure(node.Content[0]); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	appCtx := core.NewAppContext(slog.New(slog.DiscardHandler), dir, dir)
	if err := m.Provision(appCtx); err != nil {
		t.Fatalf("Provision() error = %v", err)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	svc, ok := appCtx.GetService(store.ServiceName)
	if !ok {
		t.Fatal("store service not registered")
	}
	st := svc.(store.Store)
	storetest.ProjectRoundTrip(t, st)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	c := Config{Timeout: -time.Second}
	if err := c.validate(); err == nil {
		t.Error("validate() should reject a missing credentials file and negative timeout")
	}
}
