// Package terminal implements the command-execution tool. Risk gating is
// NOT done here: the orchestrator classifies and confirms commands before
// this tool ever runs. This package only executes.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/Cyclone1070/lolo/internal/config"
	provider "github.com/Cyclone1070/lolo/internal/provider/models"
	"github.com/Cyclone1070/lolo/internal/tool"
)

// ToolName identifies the command-execution tool in the registry. The
// orchestrator special-cases this name for risk gating and ask mode.
const ToolName = "execute_command"

// ErrTimeout marks a command that was killed after exceeding its timeout.
var ErrTimeout = errors.New("command timed out")

// ErrInterrupted marks a command terminated by a user interrupt.
var ErrInterrupted = errors.New("command interrupted")

// Request carries the model's arguments. The schema is strict: every
// field is present, optional ones as null.
type Request struct {
	Command    string  `mapstructure:"command"`
	WorkingDir *string `mapstructure:"working_dir"`
	Timeout    *int    `mapstructure:"timeout"`
}

// Validate implements tool.Validator.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Command) == "" {
		return fmt.Errorf("command must not be empty")
	}
	return nil
}

// CommandTool executes shell commands on the local machine.
type CommandTool struct {
	config *config.Config
	logger *slog.Logger
}

// New creates the command-execution tool wrapped in the standard adapter.
func New(cfg *config.Config, logger *slog.Logger) tool.Tool {
	t := &CommandTool{config: cfg, logger: logger}
	return tool.NewAdapter(
		ToolName,
		"Execute a shell command. Supports file ops (cat, ls, sed, grep, echo). Returns stdout, stderr, exit code. MUST be non-interactive (use --noconfirm; sed/echo not vim/nano; cat not less/more).",
		&provider.ParameterSchema{
			Type: "object",
			Properties: map[string]provider.PropertySchema{
				"command": {
					Type:        "string",
					Description: "Command to run. Chainable with && or ||. Non-interactive only. Ex: 'ls -la', 'cat file.txt', 'sudo pacman -Syu --noconfirm'",
				},
				"working_dir": {
					Type:        []string{"string", "null"},
					Description: "Working dir. Default: current dir",
				},
				"timeout": {
					Type:        []string{"integer", "null"},
					Description: "Timeout (sec). Default: 30, Max: 300",
				},
			},
			Required: []string{"command", "working_dir", "timeout"},
		},
		t.run,
	)
}

func (t *CommandTool) run(ctx context.Context, req Request) (string, error) {
	timeout := t.effectiveTimeout(req.Timeout)

	workingDir, err := t.resolveWorkingDir(req.WorkingDir)
	if err != nil {
		return err.Error(), nil
	}

	start := time.Now()
	result := t.execute(ctx, req.Command, workingDir, timeout)
	duration := time.Since(start)

	t.logger.Info("command executed",
		"command", req.Command,
		"working_dir", workingDir,
		"exit_code", result.exitCode,
		"duration_ms", duration.Milliseconds(),
		"outcome", result.outcome(),
	)

	return t.format(req.Command, workingDir, timeout, duration, result), nil
}

func (t *CommandTool) effectiveTimeout(requested *int) time.Duration {
	seconds := t.config.Tools.DefaultCommandTimeoutSeconds
	if requested != nil && *requested > 0 {
		seconds = *requested
	}
	if seconds > t.config.Tools.MaxCommandTimeoutSeconds {
		seconds = t.config.Tools.MaxCommandTimeoutSeconds
	}
	return time.Duration(seconds) * time.Second
}

func (t *CommandTool) resolveWorkingDir(requested *string) (string, error) {
	if requested == nil || *requested == "" {
		if cwd := os.Getenv("ORIGINAL_CWD"); cwd != "" {
			return cwd, nil
		}
		return os.Getwd()
	}

	dir := config.ExpandHome(*requested)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("working directory does not exist: %s", dir)
	}
	return filepath.Clean(dir), nil
}

// execResult captures everything the formatter needs.
type execResult struct {
	stdout    string
	stderr    string
	truncated bool
	exitCode  int
	err       error
}

func (r execResult) outcome() string {
	switch {
	case errors.Is(r.err, ErrTimeout):
		return "timeout"
	case errors.Is(r.err, ErrInterrupted):
		return "interrupted"
	case r.err != nil:
		return "error"
	default:
		return "completed"
	}
}

// execute runs the command in its own process group so that a timeout or
// interrupt terminates every descendant, not just the immediate shell.
func (t *CommandTool) execute(ctx context.Context, command, workingDir string, timeout time.Duration) execResult {
	cmd := exec.Command("/bin/sh", "-c", command)
	cmd.Dir = workingDir
	cmd.Env = os.Environ()
	cmd.Stdin = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout := newCappedBuffer(t.config.Tools.MaxCommandOutputChars)
	stderr := newCappedBuffer(t.config.Tools.MaxCommandOutputChars)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return execResult{exitCode: -1, err: fmt.Errorf("failed to start command: %w", err)}
	}
	pgid := cmd.Process.Pid

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var execErr error
	select {
	case err := <-done:
		execErr = err
	case <-ctx.Done():
		killProcessGroup(pgid)
		<-done
		execErr = ErrInterrupted
	case <-time.After(timeout):
		killProcessGroup(pgid)
		<-done
		execErr = ErrTimeout
	}

	result := execResult{
		stdout:    stdout.String(),
		stderr:    stderr.String(),
		truncated: stdout.Truncated() || stderr.Truncated(),
	}

	switch {
	case errors.Is(execErr, ErrTimeout):
		result.exitCode = -1
		result.err = ErrTimeout
	case errors.Is(execErr, ErrInterrupted):
		result.exitCode = -2
		result.err = ErrInterrupted
	default:
		result.exitCode = exitCode(execErr)
	}
	return result
}

// killProcessGroup sends SIGTERM to the whole group, then SIGKILL after a
// short grace period if anything survived.
func killProcessGroup(pgid int) {
	_ = syscall.Kill(-pgid, syscall.SIGTERM)
	time.Sleep(500 * time.Millisecond)
	_ = syscall.Kill(-pgid, syscall.SIGKILL)
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

// format renders the result the way the model expects to read it: header,
// stdout, stderr, truncation notes and an exit-code hint.
func (t *CommandTool) format(command, workingDir string, timeout, duration time.Duration, r execResult) string {
	switch {
	case errors.Is(r.err, ErrTimeout):
		return fmt.Sprintf("Error: command timed out\n\nCommand: %s\nTimeout: %s\n\nSuggestion: increase the timeout or run the command in the background.", command, timeout)
	case errors.Is(r.err, ErrInterrupted):
		return fmt.Sprintf("Command interrupted by user\n\nCommand: %s\nDuration: %.2fs\n\nThe command was terminated.", command, duration.Seconds())
	case r.err != nil && r.exitCode == -1 && r.stdout == "" && r.stderr == "":
		return fmt.Sprintf("Error: command execution failed\n\nCommand: %s\nError: %v", command, r.err)
	}

	var b strings.Builder
	if r.exitCode == 0 {
		b.WriteString("Command executed successfully\n\n")
	} else {
		b.WriteString("Command completed with errors\n\n")
	}
	fmt.Fprintf(&b, "Command: %s\n", command)
	fmt.Fprintf(&b, "Working directory: %s\n", workingDir)
	fmt.Fprintf(&b, "Exit code: %d\n", r.exitCode)
	fmt.Fprintf(&b, "Duration: %.2fs\n", duration.Seconds())
	b.WriteString(strings.Repeat("-", 40) + "\n\n")

	if r.stdout != "" {
		b.WriteString("STDOUT:\n" + r.stdout + "\n\n")
	}
	if r.stderr != "" {
		b.WriteString("STDERR:\n" + r.stderr + "\n\n")
	}
	if r.stdout == "" && r.stderr == "" {
		b.WriteString("(No output)\n\n")
	}
	if r.truncated {
		fmt.Fprintf(&b, "[Output truncated at %d characters]\n", t.config.Tools.MaxCommandOutputChars)
	}
	if r.exitCode != 0 {
		fmt.Fprintf(&b, "Note: command exited with code %d, which typically indicates an error.\n", r.exitCode)
	}
	return b.String()
}
