package tools

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commandTool() *ExecuteCommandTool {
	return NewExecuteCommandTool(30 * time.Second)
}

func TestExecuteCommandSuccess(t *testing.T) {
	result := commandTool().Execute(t.Context(), map[string]interface{}{
		"command": "echo hello",
	})
	require.True(t, result.Success, result.Error)
	assert.Contains(t, result.Output, "hello")
}

func TestExecuteCommandExitCode(t *testing.T) {
	result := commandTool().Execute(t.Context(), map[string]interface{}{
		"command": "echo partial && echo oops >&2 && exit 3",
	})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "exit code 3")
	assert.Contains(t, result.Error, "oops")
	// Stdout survives as partial output for the model.
	assert.Contains(t, result.Output, "partial")
}

func TestExecuteCommandTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on sleep")
	}
	result := commandTool().Execute(t.Context(), map[string]interface{}{
		"command":         "sleep 10",
		"timeout_seconds": 1,
	})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "timed out after 1s")
}

func TestExecuteCommandBlocked(t *testing.T) {
	result := commandTool().Execute(t.Context(), map[string]interface{}{
		"command": "rm -rf /",
	})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "recursive deletion")
	// Blocked commands never run, so there is no output to carry.
	assert.Empty(t, result.Output)
}

func TestExecuteCommandCancelled(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on sleep")
	}
	ctx, cancel := context.WithCancel(t.Context())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()
	result := commandTool().Execute(ctx, map[string]interface{}{
		"command": "sleep 10",
	})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "cancelled")
}

func TestExecuteCommandMissingArgument(t *testing.T) {
	result := commandTool().Execute(t.Context(), map[string]interface{}{})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "command argument is required")
}

func TestSanitizeTerminalOutput(t *testing.T) {
	// Color codes survive.
	assert.Equal(t, "\x1b[32mok\x1b[0m", sanitizeTerminalOutput("\x1b[32mok\x1b[0m"))

	// Cursor movement and screen clearing are stripped.
	assert.Equal(t, "ab", sanitizeTerminalOutput("a\x1b[2J\x1b[1;1Hb"))

	// OSC title sequences are stripped.
	assert.Equal(t, "done", sanitizeTerminalOutput("\x1b]0;title\x07done"))

	// SGR with out-of-range parameters is treated as suspect and removed.
	assert.Equal(t, "x", sanitizeTerminalOutput("\x1b[999mx"))
}
