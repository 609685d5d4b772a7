// Package permission brokers tool invocations into allow/deny decisions.
// Static auto-approve and always-deny lists are consulted first, then
// session-scoped prior approvals, then an interactive prompt. State lives
// for one session and is never persisted.
package permission

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/clai-dev/clai/errors"
	shellwords "github.com/mattn/go-shellwords"
)

// Decision is the outcome of an interactive permission prompt.
type Decision string

const (
	DecisionAllowOnce    Decision = "allow-once"
	DecisionAllowSession Decision = "allow-session"
	DecisionDeny         Decision = "deny"
	DecisionDenyAlways   Decision = "deny-always"
)

// Risk grades a tool's side effects for blanket approval policy.
type Risk string

const (
	RiskRead    Risk = "read"
	RiskWrite   Risk = "write"
	RiskExecute Risk = "execute"
	RiskNetwork Risk = "network"
)

// Prompter asks the user to approve or reject a tool invocation. The
// terminal layer implements it with an interactive select.
type Prompter interface {
	Prompt(ctx context.Context, toolName, description string) (Decision, error)
}

// AutoPrompter approves every call it is asked about. It backs auto mode,
// where only the always-deny list can block a tool.
type AutoPrompter struct{}

func (AutoPrompter) Prompt(ctx context.Context, toolName, description string) (Decision, error) {
	return DecisionAllowOnce, nil
}

// Gate owns the per-session permission state. It is used from the single
// conversation goroutine only.
type Gate struct {
	autoApprove        []string
	alwaysDeny         []string
	autoApproveReads   bool
	safeCommandClasses []string
	sessionApproved    map[string]bool
	prompter           Prompter
}

// Options configures a Gate from the loaded config.
type Options struct {
	AutoApprove        []string
	AlwaysDeny         []string
	AutoApproveReads   bool
	SafeCommandClasses []string
}

// NewGate creates a Gate. prompter must not be nil unless every tool is
// covered by the static lists.
func NewGate(opts Options, prompter Prompter) *Gate {
	return &Gate{
		autoApprove:        append([]string(nil), opts.AutoApprove...),
		alwaysDeny:         append([]string(nil), opts.AlwaysDeny...),
		autoApproveReads:   opts.AutoApproveReads,
		safeCommandClasses: append([]string(nil), opts.SafeCommandClasses...),
		sessionApproved:    make(map[string]bool),
		prompter:           prompter,
	}
}

// Request decides whether one tool invocation may proceed. scope carries the
// invocation detail used for session-approval coarsening: the command string
// for execute_command, empty otherwise. Every side-effecting call must pass
// through here exactly once before execution.
func (g *Gate) Request(ctx context.Context, toolName, description string, risk Risk, scope string) (bool, error) {
	if slices.Contains(g.alwaysDeny, toolName) {
		slog.Warn("tool blocked by always-deny list", "tool", toolName)
		return false, nil
	}

	if slices.Contains(g.autoApprove, "*") || slices.Contains(g.autoApprove, toolName) {
		return true, nil
	}

	key := g.scopeKey(toolName, scope)
	if g.sessionApproved[key] {
		return true, nil
	}

	if risk == RiskRead && g.autoApproveReads {
		return true, nil
	}

	if g.prompter == nil {
		return false, errors.New("no prompter configured for tool %q", toolName)
	}
	decision, err := g.prompter.Prompt(ctx, toolName, description)
	if err != nil {
		return false, errors.Wrapf(err, "permission prompt failed")
	}

	switch decision {
	case DecisionAllowOnce:
		return true, nil
	case DecisionAllowSession:
		g.sessionApproved[key] = true
		return true, nil
	case DecisionDeny:
		return false, nil
	case DecisionDenyAlways:
		g.alwaysDeny = append(g.alwaysDeny, toolName)
		return false, nil
	default:
		return false, errors.New("invalid permission decision %q", decision)
	}
}

// scopeKey computes the key under which an allow-session approval is
// remembered. Commands whose root is a recognized safe class collapse to one
// key per class, so approving "git status" covers "git diff". File-touching
// tools key on the bare tool name.
func (g *Gate) scopeKey(toolName, scope string) string {
	if toolName != "execute_command" || scope == "" {
		return toolName
	}
	root := commandRoot(scope)
	if root != "" && slices.Contains(g.safeCommandClasses, root) {
		return fmt.Sprintf("%s:%s", toolName, root)
	}
	return toolName
}

// commandRoot extracts the base name of the first word of a command.
// "/usr/bin/git status" yields "git".
func commandRoot(command string) string {
	words, err := shellwords.Parse(command)
	if err != nil || len(words) == 0 {
		return ""
	}
	return filepath.Base(words[0])
}
