package agent

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/clai-dev/clai/config"
	"github.com/clai-dev/clai/llm"
	"github.com/clai-dev/clai/permission"
	"github.com/clai-dev/clai/session"
	"github.com/clai-dev/clai/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingPrompter replays decisions and records prompts, failing loudly if
// asked when no decision is scripted.
type recordingPrompter struct {
	decisions []permission.Decision
	asked     []string
}

func (p *recordingPrompter) Prompt(ctx context.Context, toolName, description string) (permission.Decision, error) {
	p.asked = append(p.asked, toolName)
	if len(p.decisions) == 0 {
		return permission.DecisionDeny, fmt.Errorf("unexpected prompt for %s", toolName)
	}
	d := p.decisions[0]
	p.decisions = p.decisions[1:]
	return d, nil
}

// collector gathers callback output for assertions.
type collector struct {
	messages []string
	warnings []string
	results  []*tools.Result
}

func (c *collector) callbacks() ProcessCallbacks {
	return ProcessCallbacks{
		OnAssistantMessage: func(m string) { c.messages = append(c.messages, m) },
		OnToolResult: func(_ session.ToolCall, r *tools.Result) { c.results = append(c.results, r) },
		OnWarning: func(w string) { c.warnings = append(c.warnings, w) },
	}
}

func newTestAgent(t *testing.T, cfg *config.Config, mock *llm.MockClient, prompter permission.Prompter) *Agent {
	t.Helper()
	t.Chdir(t.TempDir())

	sess, err := session.New("test")
	require.NoError(t, err)
	sess.AddMessage(session.Message{Role: "system", Content: "test system prompt"})

	gate := permission.NewGate(permission.Options{
		AutoApprove:        cfg.Permissions.AutoApprove,
		AlwaysDeny:         cfg.Permissions.AlwaysDeny,
		AutoApproveReads:   cfg.Permissions.AutoApproveReads,
		SafeCommandClasses: cfg.Permissions.SafeCommandClasses,
	}, prompter)

	return New(cfg, sess, mock, tools.NewRegistry(cfg), gate, ModePrompt)
}

func toolCallTurn(id, name, arguments string) *llm.Completion {
	return &llm.Completion{
		Message: session.Message{
			Role:      "assistant",
			ToolCalls: []session.ToolCall{{ID: id, Name: name, Arguments: arguments}},
		},
		FinishReason: "tool_calls",
		Usage:        llm.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}
}

func finalTurn(content string) *llm.Completion {
	return &llm.Completion{
		Message:      session.Message{Role: "assistant", Content: content},
		FinishReason: "stop",
		Usage:        llm.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}
}

func TestProcessUserInputToolLoop(t *testing.T) {
	mock := &llm.MockClient{Responses: []*llm.Completion{
		toolCallTurn("call_1", "read_file", `{"path":"hello.txt"}`),
		finalTurn("The file greets you."),
	}}
	cfg := config.Default()
	cfg.Permissions.AutoApprove = []string{"*"}
	a := newTestAgent(t, cfg, mock, &recordingPrompter{})

	require.NoError(t, os.WriteFile("hello.txt", []byte("hi there\n"), 0644))

	var c collector
	require.NoError(t, a.ProcessUserInput(t.Context(), "what does hello.txt say?", c.callbacks()))

	// system, user, assistant tool call, tool result, final assistant.
	msgs := a.Session.Messages
	require.Len(t, msgs, 5)
	assert.Equal(t, "tool", msgs[3].Role)
	assert.Equal(t, "call_1", msgs[3].ToolCallID)
	assert.Contains(t, msgs[3].Content, "hi there")

	// The second model request saw the tool result.
	require.Len(t, mock.Calls, 2)
	assert.Contains(t, mock.Calls[1][3].Content, "hi there")

	assert.Equal(t, []string{"The file greets you."}, c.messages)
	assert.Equal(t, 2, a.Stats().Turns)
	assert.Equal(t, 1, a.Stats().ToolCalls)
	assert.Equal(t, 30, a.Stats().Usage.TotalTokens)

	a.ResetStats()
	assert.Equal(t, Stats{}, a.Stats())
}

func TestProcessUserInputDeniedCall(t *testing.T) {
	mock := &llm.MockClient{Responses: []*llm.Completion{
		toolCallTurn("call_1", "write_file", `{"path":"a.txt","content":"x"}`),
		finalTurn("Understood, I won't write the file."),
	}}
	prompter := &recordingPrompter{decisions: []permission.Decision{permission.DecisionDeny}}
	a := newTestAgent(t, config.Default(), mock, prompter)

	var c collector
	require.NoError(t, a.ProcessUserInput(t.Context(), "write a.txt", c.callbacks()))

	msgs := a.Session.Messages
	require.Len(t, msgs, 5)
	assert.Contains(t, msgs[3].Content, "declined")
	assert.Equal(t, []string{"write_file"}, prompter.asked)
	assert.Equal(t, 1, a.Stats().Denied)

	// The file was never written.
	_, err := os.Stat("a.txt")
	assert.True(t, os.IsNotExist(err))
}

func TestProcessUserInputMalformedArguments(t *testing.T) {
	mock := &llm.MockClient{Responses: []*llm.Completion{
		toolCallTurn("call_1", "read_file", `{"path": broken`),
		finalTurn("Let me try again."),
	}}
	prompter := &recordingPrompter{}
	a := newTestAgent(t, config.Default(), mock, prompter)

	var c collector
	require.NoError(t, a.ProcessUserInput(t.Context(), "read something", c.callbacks()))

	msgs := a.Session.Messages
	assert.Contains(t, msgs[3].Content, "invalid arguments")
	// Parse failures never reach the permission gate.
	assert.Empty(t, prompter.asked)
}

func TestProcessUserInputUnknownTool(t *testing.T) {
	mock := &llm.MockClient{Responses: []*llm.Completion{
		toolCallTurn("call_1", "send_email", `{}`),
		finalTurn("I don't have that tool."),
	}}
	a := newTestAgent(t, config.Default(), mock, &recordingPrompter{})

	var c collector
	require.NoError(t, a.ProcessUserInput(t.Context(), "email the report", c.callbacks()))
	assert.Contains(t, a.Session.Messages[3].Content, "unknown tool")
}

func TestProcessUserInputTurnBound(t *testing.T) {
	cfg := config.Default()
	cfg.Permissions.AutoApprove = []string{"*"}
	cfg.Context.MaxTurns = 2

	mock := &llm.MockClient{Responses: []*llm.Completion{
		toolCallTurn("call_1", "glob_files", `{"pattern":"*.go"}`),
		toolCallTurn("call_2", "glob_files", `{"pattern":"*.md"}`),
		// Never consumed: the bound stops the loop first.
		finalTurn("unreachable"),
	}}
	a := newTestAgent(t, cfg, mock, &recordingPrompter{})

	var c collector
	require.NoError(t, a.ProcessUserInput(t.Context(), "loop forever", c.callbacks()))

	assert.Len(t, mock.Calls, 2)
	require.Len(t, c.warnings, 1)
	assert.Contains(t, c.warnings[0], "stopping after 2 turns")
}

func TestCompactKeepsSystemAndRecentMessages(t *testing.T) {
	cfg := config.Default()
	a := newTestAgent(t, cfg, &llm.MockClient{}, &recordingPrompter{})

	// The fixture session already holds the system message; add 29 more.
	for i := 0; i < 29; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		a.Session.AddMessage(session.Message{Role: role, Content: fmt.Sprintf("message %d", i)})
	}
	require.Len(t, a.Session.Messages, 30)

	require.True(t, a.Compact())

	msgs := a.Session.Messages
	require.Len(t, msgs, 21)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "test system prompt", msgs[0].Content)
	assert.Equal(t, "message 9", msgs[1].Content)
	assert.Equal(t, "message 28", msgs[20].Content)
}

func TestCompactNoOpWhenSmall(t *testing.T) {
	a := newTestAgent(t, config.Default(), &llm.MockClient{}, &recordingPrompter{})
	a.Session.AddMessage(session.Message{Role: "user", Content: "hi"})
	assert.False(t, a.Compact())
	assert.Len(t, a.Session.Messages, 2)
}

func TestAutoCompactionTriggers(t *testing.T) {
	cfg := config.Default()
	cfg.Permissions.AutoApprove = []string{"*"}
	cfg.Context.MaxTokens = 10 // any real transcript exceeds 80% of this
	cfg.Context.RetainMessages = 2

	mock := &llm.MockClient{Responses: []*llm.Completion{finalTurn("done")}}
	a := newTestAgent(t, cfg, mock, &recordingPrompter{})
	for i := 0; i < 6; i++ {
		a.Session.AddMessage(session.Message{Role: "user", Content: "some earlier conversation text"})
	}

	var c collector
	require.NoError(t, a.ProcessUserInput(t.Context(), "hello", c.callbacks()))

	assert.Equal(t, 1, a.Stats().Compactions)
	require.NotEmpty(t, c.warnings)
	assert.Contains(t, c.warnings[0], "compacted")
}

func TestEstimateMessagesGrowsWithContent(t *testing.T) {
	small := estimateMessages([]session.Message{{Role: "user", Content: "hi"}})
	large := estimateMessages([]session.Message{{Role: "user", Content: strings.Repeat("some longer text ", 500)}})
	assert.Greater(t, large, small)
	assert.Positive(t, small)
}
