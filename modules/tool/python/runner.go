package python

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/flemzord/mategen/internal/security"
	"github.com/flemzord/mategen/internal/tool"
)

//go:embed driver.py
var driverSource []byte

const (
	stateDir   = ".mategen"
	driverFile = "driver.py"
	cellFile   = "cell.py"
	varsFile   = "vars.json"

	// noOutput is returned when the code ran and printed nothing.
	noOutput = "Code executed successfully."
)

// ErrTimeout is returned when an execution exceeds its deadline.
var ErrTimeout = errors.New("python: execution timed out")

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	Interpreter string
	Workdir     string
	Timeout     time.Duration
	MaxOutput   int

	// Env is the subprocess environment. Nil uses a sanitized copy of the
	// current process environment.
	Env []string

	// Sandbox, when set, runs the interpreter through docker.
	Sandbox *security.SandboxExecutor
}

// Runner executes Python cells in a workdir. Variables survive between
// cells through a JSON file in the workdir and the shared tool.Vars.
type Runner struct {
	cfg RunnerConfig
	mu  sync.Mutex
}

// NewRunner creates a Runner.
func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.Interpreter == "" {
		cfg.Interpreter = defaultInterpreter
	}
	if cfg.Env == nil {
		cfg.Env = security.SanitizedEnv(nil)
	}
	return &Runner{cfg: cfg}
}

// Run executes code. The workdir of env wins over the configured one. The
// variables of env.Vars are visible to the code, and every JSON-encodable
// global it leaves behind is written back to env.Vars.
func (r *Runner) Run(ctx context.Context, code string, env tool.Env) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	dir := env.Workdir
	if dir == "" {
		dir = r.cfg.Workdir
	}
	if dir == "" {
		return "", errors.New("python: no workdir configured")
	}
	if err := r.prepare(dir, code, env.Vars); err != nil {
		return "", err
	}

	timeout := r.cfg.Timeout
	if r.cfg.Sandbox != nil && timeout <= 0 {
		timeout = r.cfg.Sandbox.Timeout()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd, err := r.command(ctx, dir)
	if err != nil {
		return "", err
	}
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	runErr := cmd.Run()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "", fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	text := r.truncate(strings.TrimRight(out.String(), "\n"))
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return "", fmt.Errorf("python error:\n%s", text)
		}
		return "", fmt.Errorf("python: run interpreter: %w", runErr)
	}

	if err := r.collect(dir, env.Vars); err != nil && env.Logger != nil {
		env.Logger.Warn("python variables not collected", "error", err)
	}
	if text == "" {
		return noOutput, nil
	}
	return text, nil
}

func (r *Runner) command(ctx context.Context, dir string) (*exec.Cmd, error) {
	script := filepath.Join(stateDir, driverFile)
	if r.cfg.Sandbox != nil {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, err
		}
		return r.cfg.Sandbox.Command(ctx, []string{r.cfg.Interpreter, script}, abs, nil)
	}
	//nolint:gosec // the interpreter comes from configuration.
	cmd := exec.CommandContext(ctx, r.cfg.Interpreter, script)
	cmd.Dir = dir
	cmd.Env = r.cfg.Env
	return cmd, nil
}

// prepare writes the driver, the cell and the current variables.
func (r *Runner) prepare(dir, code string, vars *tool.Vars) error {
	state := filepath.Join(dir, stateDir)
	if err := os.MkdirAll(state, 0o700); err != nil {
		return fmt.Errorf("python: create state dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(state, driverFile), driverSource, 0o600); err != nil {
		return fmt.Errorf("python: write driver: %w", err)
	}
	if err := os.WriteFile(filepath.Join(state, cellFile), []byte(code), 0o600); err != nil {
		return fmt.Errorf("python: write cell: %w", err)
	}
	if vars == nil {
		return nil
	}

	encoded := make(map[string]json.RawMessage)
	path := filepath.Join(state, varsFile)
	if b, err := os.ReadFile(path); err == nil {
		_ = json.Unmarshal(b, &encoded)
	}
	for name, v := range vars.Snapshot() {
		b, err := json.Marshal(v)
		if err != nil {
			continue
		}
		encoded[name] = b
	}
	b, err := json.Marshal(encoded)
	if err != nil {
		return fmt.Errorf("python: encode variables: %w", err)
	}
	return os.WriteFile(path, b, 0o600)
}

// collect copies the variables left by the cell into vars.
func (r *Runner) collect(dir string, vars *tool.Vars) error {
	if vars == nil {
		return nil
	}
	b, err := os.ReadFile(filepath.Join(dir, stateDir, varsFile))
	if err != nil {
		return err
	}
	var decoded map[string]any
	if err := json.Unmarshal(b, &decoded); err != nil {
		return err
	}
	for name, v := range decoded {
		vars.Set(name, v)
	}
	return nil
}

func (r *Runner) truncate(s string) string {
	if r.cfg.MaxOutput <= 0 || len(s) <= r.cfg.MaxOutput {
		return s
	}
	return s[:r.cfg.MaxOutput] + "\n...(output truncated)"
}
