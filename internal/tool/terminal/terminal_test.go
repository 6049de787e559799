package terminal

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cyclone1070/lolo/internal/config"
	"github.com/Cyclone1070/lolo/internal/tool"
)

func newCommandTool(t *testing.T, mutate func(*config.Config)) tool.Tool {
	t.Helper()
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(cfg, logger)
}

func execute(t *testing.T, ct tool.Tool, args map[string]any) string {
	t.Helper()
	out, err := ct.Execute(context.Background(), args)
	require.NoError(t, err)
	return out
}

func TestExecuteSimpleCommand(t *testing.T) {
	ct := newCommandTool(t, nil)

	out := execute(t, ct, map[string]any{
		"command":     "echo hello",
		"working_dir": nil,
		"timeout":     nil,
	})

	assert.Contains(t, out, "Command executed successfully")
	assert.Contains(t, out, "Exit code: 0")
	assert.Contains(t, out, "STDOUT:\nhello")
}

func TestExecuteCapturesStderrAndExitCode(t *testing.T) {
	ct := newCommandTool(t, nil)

	out := execute(t, ct, map[string]any{
		"command":     "echo oops >&2; exit 3",
		"working_dir": nil,
		"timeout":     nil,
	})

	assert.Contains(t, out, "Command completed with errors")
	assert.Contains(t, out, "Exit code: 3")
	assert.Contains(t, out, "STDERR:\noops")
	assert.Contains(t, out, "exited with code 3")
}

func TestExecuteNoOutput(t *testing.T) {
	ct := newCommandTool(t, nil)

	out := execute(t, ct, map[string]any{
		"command":     "true",
		"working_dir": nil,
		"timeout":     nil,
	})

	assert.Contains(t, out, "(No output)")
}

func TestExecuteWorkingDir(t *testing.T) {
	dir := t.TempDir()
	ct := newCommandTool(t, nil)

	out := execute(t, ct, map[string]any{
		"command":     "pwd",
		"working_dir": dir,
		"timeout":     nil,
	})

	assert.Contains(t, out, dir)
}

func TestExecuteMissingWorkingDir(t *testing.T) {
	ct := newCommandTool(t, nil)

	out := execute(t, ct, map[string]any{
		"command":     "pwd",
		"working_dir": "/definitely/not/here",
		"timeout":     nil,
	})

	assert.Contains(t, out, "working directory does not exist")
}

func TestExecuteEmptyCommandRejected(t *testing.T) {
	ct := newCommandTool(t, nil)

	_, err := ct.Execute(context.Background(), map[string]any{
		"command":     "   ",
		"working_dir": nil,
		"timeout":     nil,
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "command must not be empty")
}

func TestExecuteTimeout(t *testing.T) {
	ct := newCommandTool(t, nil)

	start := time.Now()
	out := execute(t, ct, map[string]any{
		"command":     "sleep 10",
		"working_dir": nil,
		"timeout":     1,
	})

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Contains(t, out, "command timed out")
	assert.Contains(t, out, "sleep 10")
}

func TestExecuteOutputTruncation(t *testing.T) {
	ct := newCommandTool(t, func(cfg *config.Config) {
		cfg.Tools.MaxCommandOutputChars = 100
	})

	out := execute(t, ct, map[string]any{
		"command":     "yes x | head -200",
		"working_dir": nil,
		"timeout":     nil,
	})

	assert.Contains(t, out, "[Output truncated at 100 characters]")
	// The captured stream itself never exceeds the cap.
	stdoutStart := strings.Index(out, "STDOUT:")
	require.GreaterOrEqual(t, stdoutStart, 0)
	assert.Less(t, len(out[stdoutStart:]), 400)
}

func TestEffectiveTimeoutIsCapped(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Tools.DefaultCommandTimeoutSeconds = 30
	cfg.Tools.MaxCommandTimeoutSeconds = 300
	ct := &CommandTool{config: cfg}

	big := 9999
	small := 5
	assert.Equal(t, 300*time.Second, ct.effectiveTimeout(&big))
	assert.Equal(t, 5*time.Second, ct.effectiveTimeout(&small))
	assert.Equal(t, 30*time.Second, ct.effectiveTimeout(nil))
}

func TestDefinitionIsStrict(t *testing.T) {
	ct := newCommandTool(t, nil)
	def := ct.Definition()

	assert.Equal(t, ToolName, def.Name)
	assert.True(t, def.Strict)
	require.NotNil(t, def.Parameters)
	assert.ElementsMatch(t, []string{"command", "working_dir", "timeout"}, def.Parameters.Required)
}

func TestCappedBuffer(t *testing.T) {
	buf := newCappedBuffer(10)

	n, err := buf.Write([]byte("0123456789abcdef"))
	require.NoError(t, err)
	// Writers must see the full length or they treat the sink as broken.
	assert.Equal(t, 16, n)
	assert.Equal(t, "0123456789", buf.String())
	assert.True(t, buf.Truncated())

	short := newCappedBuffer(10)
	_, err = short.Write([]byte("abc"))
	require.NoError(t, err)
	assert.False(t, short.Truncated())
}
