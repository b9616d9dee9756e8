package security

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Sandbox errors.
var (
	// ErrSandboxUnavailable is returned when sandboxing is requested but
	// the docker CLI cannot be found. Execution fails closed.
	ErrSandboxUnavailable = errors.New("sandbox: docker is not available")

	// ErrRestrictedPath is returned when the workdir to mount resolves
	// under /proc, /sys or /dev.
	ErrRestrictedPath = errors.New("sandbox: restricted mount path")
)

// SandboxConfig configures containerised code execution.
type SandboxConfig struct {
	// Enabled runs code inside a container instead of on the host.
	Enabled bool `yaml:"enabled"`

	// Image is the container image. Defaults to python:3.12-slim.
	Image string `yaml:"image"`

	Limits ResourceLimits `yaml:"limits"`
}

// ResourceLimits defines resource constraints for sandboxed execution.
type ResourceLimits struct {
	// CPUShares is the relative CPU weight (Docker --cpu-shares).
	CPUShares int `yaml:"cpu_shares"`

	// MemoryMB is the memory limit in megabytes (Docker --memory).
	MemoryMB int `yaml:"memory_mb"`

	// DiskMB is the size of the /tmp tmpfs in megabytes.
	DiskMB int `yaml:"disk_mb"`

	// Timeout is the maximum execution duration.
	Timeout time.Duration `yaml:"timeout"`
}

// resourceLimitsDefaults returns sane defaults for sandbox limits.
func resourceLimitsDefaults() ResourceLimits {
	return ResourceLimits{
		CPUShares: 512,
		MemoryMB:  512,
		DiskMB:    100,
		Timeout:   60 * time.Second,
	}
}

// SandboxExecutor builds commands that run inside a locked-down Docker
// container with a single writable workspace mount.
type SandboxExecutor struct {
	limits ResourceLimits
	image  string
}

// NewSandboxExecutor creates a sandbox executor. Zero-value limits are
// replaced with defaults.
func NewSandboxExecutor(cfg SandboxConfig) *SandboxExecutor {
	limits := cfg.Limits
	defaults := resourceLimitsDefaults()
	if limits.CPUShares <= 0 {
		limits.CPUShares = defaults.CPUShares
	}
	if limits.MemoryMB <= 0 {
		limits.MemoryMB = defaults.MemoryMB
	}
	if limits.DiskMB <= 0 {
		limits.DiskMB = defaults.DiskMB
	}
	if limits.Timeout <= 0 {
		limits.Timeout = defaults.Timeout
	}
	image := cfg.Image
	if image == "" {
		image = "python:3.12-slim"
	}
	return &SandboxExecutor{limits: limits, image: image}
}

// Timeout returns the execution deadline applied by callers.
func (s *SandboxExecutor) Timeout() time.Duration { return s.limits.Timeout }

// Args returns the docker arguments that run argv in the container with
// workdir mounted read-write at /workspace.
func (s *SandboxExecutor) Args(argv []string, workdir string, env []string) ([]string, error) {
	if len(argv) == 0 {
		return nil, errors.New("sandbox: empty command")
	}
	cleaned := filepath.Clean(workdir)
	if workdir == "" || strings.Contains(cleaned, ":") {
		return nil, fmt.Errorf("sandbox: invalid workdir %q", workdir)
	}
	if err := checkMount(cleaned); err != nil {
		return nil, err
	}

	args := []string{
		"run", "--rm", "-i",
		"--read-only",
		"--network=none",
		"--cap-drop", "ALL",
		"--security-opt", "no-new-privileges:true",
		"--user", strconv.Itoa(os.Getuid()) + ":" + strconv.Itoa(os.Getgid()),
		"--pids-limit", "256",
		"--cpu-shares", strconv.Itoa(s.limits.CPUShares),
		"--memory", strconv.Itoa(s.limits.MemoryMB) + "m",
		"--tmpfs", "/tmp:rw,noexec,nosuid,size=" + strconv.Itoa(s.limits.DiskMB) + "m",
		"-v", cleaned + ":/workspace:rw",
		"-w", "/workspace",
	}
	for _, e := range env {
		args = append(args, "-e", e)
	}
	args = append(args, s.image)
	return append(args, argv...), nil
}

// Command returns a docker command running argv in the sandbox.
func (s *SandboxExecutor) Command(ctx context.Context, argv []string, workdir string, env []string) (*exec.Cmd, error) {
	if !IsDockerAvailable() {
		return nil, ErrSandboxUnavailable
	}
	args, err := s.Args(argv, workdir, env)
	if err != nil {
		return nil, err
	}
	//nolint:gosec // args are constructed programmatically from validated input.
	return exec.CommandContext(ctx, "docker", args...), nil
}

// IsDockerAvailable checks if the docker CLI is available on PATH.
func IsDockerAvailable() bool {
	_, err := exec.LookPath("docker")
	return err == nil
}

// checkMount rejects workdirs that resolve, through symlinks, into the
// kernel's pseudo filesystems.
func checkMount(dir string) error {
	resolved := dir
	if abs, err := filepath.Abs(resolved); err == nil {
		resolved = abs
	}
	if real, err := filepath.EvalSymlinks(resolved); err == nil {
		resolved = real
	}
	resolved = strings.ToLower(resolved) + "/"
	for _, prefix := range []string{"/proc/", "/sys/", "/dev/"} {
		if strings.HasPrefix(resolved, prefix) {
			return fmt.Errorf("%w: %s", ErrRestrictedPath, dir)
		}
	}
	return nil
}
