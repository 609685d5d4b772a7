package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/clai-dev/clai/permission"
	"github.com/clai-dev/clai/security"
)

const (
	maxCommandOutput = 1 * 1024 * 1024
	killGracePeriod  = 5 * time.Second
)

// ExecuteCommandTool runs a shell command with a timeout. On timeout the
// process gets a termination signal, then a kill after a grace window.
type ExecuteCommandTool struct {
	timeout time.Duration
}

type executeCommandRequest struct {
	Command        string `mapstructure:"command"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

func NewExecuteCommandTool(timeout time.Duration) *ExecuteCommandTool {
	return &ExecuteCommandTool{timeout: timeout}
}

func (t *ExecuteCommandTool) Name() string { return NameExecuteCommand }

func (t *ExecuteCommandTool) Description() string {
	return "Execute a shell command and return its output. Destructive commands " +
		"(rm -rf /, mkfs, writes to block devices, fork bombs, ...) are blocked. " +
		"Default timeout: " + t.timeout.String() + "."
}

func (t *ExecuteCommandTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"command": map[string]interface{}{
				"type":        "string",
				"description": "The shell command to execute via /bin/sh -c",
			},
			"timeout_seconds": map[string]interface{}{
				"type":        "integer",
				"description": "Override timeout in seconds (optional, max 600)",
			},
		},
		"required": []string{"command"},
	}
}

func (t *ExecuteCommandTool) Risk() permission.Risk { return permission.RiskExecute }

func (t *ExecuteCommandTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	var req executeCommandRequest
	if err := decodeArgs(args, &req); err != nil {
		return ErrorResultf("invalid arguments: %v", err)
	}
	if req.Command == "" {
		return ErrorResult("command argument is required")
	}

	if v := security.CheckCommand(req.Command); !v.Allowed {
		return ErrorResult(denyMessage(v))
	}

	timeout := t.timeout
	if req.TimeoutSeconds > 0 {
		if req.TimeoutSeconds > 600 {
			req.TimeoutSeconds = 600
		}
		timeout = time.Duration(req.TimeoutSeconds) * time.Second
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	shell, shellFlag := "/bin/sh", "-c"
	if runtime.GOOS == "windows" {
		shell, shellFlag = "cmd", "/C"
	}

	cmd := exec.CommandContext(execCtx, shell, shellFlag, req.Command)
	// Graceful-then-forceful: terminate first, kill after the grace window.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = killGracePeriod

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	out := sanitizeTerminalOutput(stdout.String())
	errOut := sanitizeTerminalOutput(stderr.String())
	if len(out)+len(errOut) > maxCommandOutput {
		total := len(out) + len(errOut)
		if len(out) > maxCommandOutput {
			out = out[:maxCommandOutput]
			errOut = ""
		} else {
			errOut = errOut[:maxCommandOutput-len(out)]
		}
		out += fmt.Sprintf("\n[output truncated at %d bytes, total was %d bytes]",
			maxCommandOutput, total)
	}

	if err != nil {
		if execCtx.Err() == context.DeadlineExceeded {
			return ErrorResultf("command timed out after %v\nPartial output:\n%s", timeout, out)
		}
		if ctx.Err() != nil {
			return ErrorResult("command cancelled")
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			detail := errOut
			if detail == "" {
				detail = out
			}
			return &Result{
				Success: false,
				Output:  out,
				Error: fmt.Sprintf("exit code %d (%.2fs): %s",
					exitErr.ExitCode(), elapsed.Seconds(), strings.TrimSpace(detail)),
			}
		}
		return ErrorResultf("failed to run command: %v", err)
	}

	if errOut != "" {
		out = out + errOut
	}
	return NewResult(fmt.Sprintf("%s\n(%.2fs)", strings.TrimSpace(out), elapsed.Seconds()))
}

var (
	csiSeq = regexp.MustCompile(`\x1b\[([0-9;?]*)([A-Za-z])`)
	oscSeq = regexp.MustCompile(`\x1b\][^\x07\x1b]*(\x07|\x1b\\)`)
)

// sanitizeTerminalOutput removes cursor movement, erase, and scroll-region
// control sequences that would corrupt the surrounding terminal, while
// keeping basic color (SGR) codes with parameters in the standard range.
func sanitizeTerminalOutput(s string) string {
	s = oscSeq.ReplaceAllString(s, "")
	return csiSeq.ReplaceAllStringFunc(s, func(seq string) string {
		m := csiSeq.FindStringSubmatch(seq)
		if m[2] != "m" {
			return ""
		}
		for _, p := range strings.Split(m[1], ";") {
			if p == "" {
				continue
			}
			n, err := strconv.Atoi(p)
			if err != nil || n > 107 {
				return ""
			}
		}
		return seq
	})
}
