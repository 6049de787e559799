// Package pyexec implements the Python sandbox tool: a static deny-list
// screens the code, then it runs as a subprocess with a hard timeout.
package pyexec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/Cyclone1070/lolo/internal/config"
	provider "github.com/Cyclone1070/lolo/internal/provider/models"
	"github.com/Cyclone1070/lolo/internal/tool"
)

// ToolName identifies the Python executor in the registry.
const ToolName = "execute_python"

// deniedPatterns blocks filesystem, network, process and introspection
// escapes. Matching is substring, case-insensitive, same as the
// screening this replaces.
var deniedPatterns = []string{
	"os.system", "subprocess", "exec(", "eval(", "__import__", "open(",
	"compile(", "globals()", "locals()", "vars(", "__builtins__",
	"getattr(", "setattr(", "delattr(", "object.__subclasses__",
	"importlib", "pkgutil", "inspect", "ctypes",
	"socket", "urllib", "requests", "http.client", "ftplib", "telnetlib", "ssl",
	"pickle", "marshal", "shelve", "dbm", "sqlite3",
}

// Request carries the model's arguments.
type Request struct {
	Code    string `mapstructure:"code"`
	Timeout *int   `mapstructure:"timeout"`
}

// Validate implements tool.Validator.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Code) == "" {
		return fmt.Errorf("code must not be empty")
	}
	return nil
}

// PythonTool runs Python snippets in a subprocess.
type PythonTool struct {
	config *config.Config
	logger *slog.Logger
}

// New creates the Python executor wrapped in the standard adapter.
func New(cfg *config.Config, logger *slog.Logger) tool.Tool {
	t := &PythonTool{config: cfg, logger: logger}
	return tool.NewAdapter(
		ToolName,
		"Execute Python code for calculations, data processing, and analysis. Returns stdout, stderr, and exit code. Use print() for output; standard library only.",
		&provider.ParameterSchema{
			Type: "object",
			Properties: map[string]provider.PropertySchema{
				"code": {
					Type:        "string",
					Description: "Python code to execute. Use print() for output.",
				},
				"timeout": {
					Type:        []string{"integer", "null"},
					Description: "Timeout in seconds. Default: 30, Max: 300",
				},
			},
			Required: []string{"code", "timeout"},
		},
		t.run,
	)
}

// Screen reports whether the code trips the deny-list, and which pattern.
func Screen(code string) (string, bool) {
	lower := strings.ToLower(code)
	for _, pattern := range deniedPatterns {
		if strings.Contains(lower, pattern) {
			return pattern, true
		}
	}
	return "", false
}

func (t *PythonTool) run(ctx context.Context, req Request) (string, error) {
	if pattern, blocked := Screen(req.Code); blocked {
		return fmt.Sprintf("Error: code validation failed\n\nReason: '%s' is not allowed in the Python executor.", pattern), nil
	}

	timeout := t.effectiveTimeout(req.Timeout)

	file, err := os.CreateTemp("", "lolo-*.py")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(file.Name())
	if _, err := file.WriteString(req.Code); err != nil {
		file.Close()
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	file.Close()

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "python3", file.Name())
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	duration := time.Since(start)

	t.logger.Info("python executed", "duration_ms", duration.Milliseconds(), "exit_code", exitCode(runErr))

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return fmt.Sprintf("Error: Python execution timed out after %s", timeout), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Exit code: %d\nDuration: %.2fs\n\n", exitCode(runErr), duration.Seconds())
	if stdout.Len() > 0 {
		b.WriteString("STDOUT:\n" + stdout.String() + "\n")
	}
	if stderr.Len() > 0 {
		b.WriteString("STDERR:\n" + stderr.String() + "\n")
	}
	if stdout.Len() == 0 && stderr.Len() == 0 {
		b.WriteString("(No output — use print() to produce output)\n")
	}
	return b.String(), nil
}

func (t *PythonTool) effectiveTimeout(requested *int) time.Duration {
	seconds := t.config.Tools.PythonTimeoutSeconds
	if requested != nil && *requested > 0 {
		seconds = *requested
	}
	if seconds > t.config.Tools.MaxPythonTimeoutSeconds {
		seconds = t.config.Tools.MaxPythonTimeoutSeconds
	}
	return time.Duration(seconds) * time.Second
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
