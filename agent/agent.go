// Package agent drives the conversation loop between the user, the model,
// and the tool registry. It owns turn bounding, permission brokering for
// tool calls, transcript compaction, and usage accounting. Interaction
// surfaces plug in through ProcessCallbacks.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/clai-dev/clai/config"
	"github.com/clai-dev/clai/errors"
	"github.com/clai-dev/clai/llm"
	"github.com/clai-dev/clai/permission"
	"github.com/clai-dev/clai/session"
	"github.com/clai-dev/clai/tools"
)

// Mode selects how tool approvals are obtained.
type Mode string

const (
	// ModeAuto approves every tool call that is not on the always-deny list.
	ModeAuto Mode = "auto"
	// ModePrompt asks the user before each non-approved tool call.
	ModePrompt Mode = "prompt"
)

// Stats accumulates per-session usage counters.
type Stats struct {
	Turns       int
	ToolCalls   int
	Denied      int
	Compactions int
	Usage       llm.Usage
}

// ProcessCallbacks lets an interaction surface observe the loop. Nil
// callbacks are skipped.
type ProcessCallbacks struct {
	OnAssistantMessage func(message string)
	OnToolCall         func(toolCall session.ToolCall)
	OnToolResult       func(toolCall session.ToolCall, result *tools.Result)
	OnWarning          func(warning string)
}

func (cb ProcessCallbacks) warn(format string, args ...interface{}) {
	if cb.OnWarning != nil {
		cb.OnWarning(fmt.Sprintf(format, args...))
	}
}

// Agent is the conversation controller. It is driven from a single
// goroutine; tool calls within a turn run sequentially in arrival order.
type Agent struct {
	Config   *config.Config
	Session  *session.Session
	Client   llm.Client
	Registry *tools.Registry
	Gate     *permission.Gate
	Mode     Mode

	stats Stats
}

// New assembles an agent. The session is expected to already carry its
// system message when fresh, or the full prior transcript when resumed.
func New(cfg *config.Config, sess *session.Session, client llm.Client, registry *tools.Registry, gate *permission.Gate, mode Mode) *Agent {
	return &Agent{
		Config:   cfg,
		Session:  sess,
		Client:   client,
		Registry: registry,
		Gate:     gate,
		Mode:     mode,
	}
}

// Stats returns a snapshot of the session counters.
func (a *Agent) Stats() Stats {
	return a.stats
}

// ResetStats zeroes the session counters. Counters otherwise only grow;
// this is called when the conversation is cleared.
func (a *Agent) ResetStats() {
	a.stats = Stats{}
}

// ProcessUserInput runs one user request to completion: model turns
// alternate with tool execution until the model answers without tool calls
// or the turn bound is hit. The session is saved after every model turn.
func (a *Agent) ProcessUserInput(ctx context.Context, userInput string, cb ProcessCallbacks) error {
	a.Session.AddMessage(session.Message{Role: "user", Content: userInput})

	for turn := 0; turn < a.Config.Context.MaxTurns; turn++ {
		a.maybeCompact(cb)

		completion, err := a.Client.Chat(ctx, a.Session.Messages, a.Registry.All())
		if err != nil {
			return errors.Wrapf(err, "model request failed")
		}
		a.stats.Turns++
		a.stats.Usage.Add(completion.Usage)

		a.Session.AddMessage(completion.Message)
		if completion.Message.Content != "" && cb.OnAssistantMessage != nil {
			cb.OnAssistantMessage(completion.Message.Content)
		}

		if len(completion.Message.ToolCalls) == 0 {
			a.save(cb)
			return nil
		}

		for _, tc := range completion.Message.ToolCalls {
			result := a.runToolCall(ctx, tc, cb)
			a.Session.AddMessage(session.Message{
				Role:       "tool",
				Content:    formatResult(result),
				ToolCallID: tc.ID,
			})
		}
		a.save(cb)
	}

	cb.warn("stopping after %d turns without a final answer; send a follow-up to continue", a.Config.Context.MaxTurns)
	return nil
}

// runToolCall takes one requested call through parsing, the permission
// gate, and execution. Failures at any stage become a failed result fed
// back to the model; they never abort the turn.
func (a *Agent) runToolCall(ctx context.Context, tc session.ToolCall, cb ProcessCallbacks) *tools.Result {
	if cb.OnToolCall != nil {
		cb.OnToolCall(tc)
	}
	a.stats.ToolCalls++

	tool, ok := a.Registry.Get(tc.Name)
	if !ok {
		return a.report(tc, tools.ErrorResultf("unknown tool %q", tc.Name), cb)
	}

	args := map[string]interface{}{}
	if tc.Arguments != "" {
		if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
			slog.Debug("malformed tool arguments", "tool", tc.Name, "error", err)
			return a.report(tc, tools.ErrorResultf("invalid arguments for %s: %v; resend the call with a valid JSON object", tc.Name, err), cb)
		}
	}

	scope := ""
	if tc.Name == tools.NameExecuteCommand {
		scope, _ = args["command"].(string)
	}
	allowed, err := a.Gate.Request(ctx, tc.Name, describeCall(tc.Name, args), tool.Risk(), scope)
	if err != nil {
		return a.report(tc, tools.ErrorResultf("permission check failed: %v", err), cb)
	}
	if !allowed {
		a.stats.Denied++
		return a.report(tc, tools.ErrorResult("the user declined this tool call; do not retry it, ask the user how to proceed"), cb)
	}

	return a.report(tc, a.Registry.Execute(ctx, tc.Name, args), cb)
}

func (a *Agent) report(tc session.ToolCall, result *tools.Result, cb ProcessCallbacks) *tools.Result {
	if cb.OnToolResult != nil {
		cb.OnToolResult(tc, result)
	}
	return result
}

// maybeCompact shrinks the transcript once it approaches the configured
// context budget. The system message survives; the oldest turns after it
// are dropped, keeping the most recent messages intact.
func (a *Agent) maybeCompact(cb ProcessCallbacks) {
	threshold := int(float64(a.Config.Context.MaxTokens) * a.Config.Context.CompactionThreshold)
	if estimateMessages(a.Session.Messages) < threshold {
		return
	}
	if a.Compact() {
		a.stats.Compactions++
		cb.warn("conversation compacted to fit the context window")
	}
}

// Compact drops the oldest messages, keeping the leading system message and
// the most recent Context.RetainMessages entries. It reports whether
// anything was removed.
func (a *Agent) Compact() bool {
	messages := a.Session.Messages
	retain := a.Config.Context.RetainMessages

	var head []session.Message
	rest := messages
	if len(messages) > 0 && messages[0].Role == "system" {
		head = messages[:1]
		rest = messages[1:]
	}
	if len(rest) <= retain {
		return false
	}

	kept := make([]session.Message, 0, len(head)+retain)
	kept = append(kept, head...)
	kept = append(kept, rest[len(rest)-retain:]...)
	a.Session.Truncate(kept)
	slog.Info("transcript compacted", "before", len(messages), "after", len(kept))
	return true
}

// EstimatedTokens reports the approximate context size of the current
// transcript.
func (a *Agent) EstimatedTokens() int {
	return estimateMessages(a.Session.Messages)
}

func (a *Agent) save(cb ProcessCallbacks) {
	if err := a.Session.Save(); err != nil {
		cb.warn("failed to save session: %v", err)
	}
}

// formatResult renders a tool result as the text fed back to the model.
func formatResult(result *tools.Result) string {
	if result.Success {
		return result.Output
	}
	if result.Output != "" {
		return fmt.Sprintf("Error: %s\n\nPartial output:\n%s", result.Error, result.Output)
	}
	return "Error: " + result.Error
}

// describeCall builds the one-line description shown in permission prompts
// and tool-call traces.
func describeCall(name string, args map[string]interface{}) string {
	for _, key := range []string{"command", "path", "url", "pattern"} {
		if v, ok := args[key].(string); ok && v != "" {
			return fmt.Sprintf("%s: %s", name, v)
		}
	}
	return name
}
