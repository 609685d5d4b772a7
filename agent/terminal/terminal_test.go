package terminal

import (
	"context"
	"strings"
	"testing"

	"github.com/clai-dev/clai/agent"
	"github.com/clai-dev/clai/config"
	"github.com/clai-dev/clai/llm"
	"github.com/clai-dev/clai/permission"
	"github.com/clai-dev/clai/session"
	"github.com/clai-dev/clai/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTerminal(t *testing.T) *Terminal {
	t.Helper()
	t.Chdir(t.TempDir())

	cfg := config.Default()
	sess, err := session.New("terminal-test")
	require.NoError(t, err)
	sess.AddMessage(session.Message{Role: "system", Content: "sys"})

	gate := permission.NewGate(permission.Options{}, permission.AutoPrompter{})
	a := agent.New(cfg, sess, &llm.MockClient{}, tools.NewRegistry(cfg), gate, agent.ModeAuto)
	return New(a)
}

func TestHandleCommandQuit(t *testing.T) {
	term := newTestTerminal(t)
	assert.True(t, term.handleCommand("/quit"))
	assert.True(t, term.handleCommand("/exit"))
}

func TestHandleCommandsDoNotQuit(t *testing.T) {
	term := newTestTerminal(t)
	for _, cmd := range []string{"/clear", "/compact", "/stats", "/help", "/unknown"} {
		assert.False(t, term.handleCommand(cmd), "command %s should not end the session", cmd)
	}
}

func TestHandleCommandClear(t *testing.T) {
	term := newTestTerminal(t)
	term.agent.Session.AddMessage(session.Message{Role: "user", Content: "hi"})
	require.Len(t, term.agent.Session.Messages, 2)

	term.handleCommand("/clear")
	require.Len(t, term.agent.Session.Messages, 1)
	assert.Equal(t, "system", term.agent.Session.Messages[0].Role)
}

// flakyClient fails its first request with a cancellation and answers
// normally afterwards.
type flakyClient struct {
	calls int
}

func (c *flakyClient) Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool) (*llm.Completion, error) {
	c.calls++
	if c.calls == 1 {
		return nil, context.Canceled
	}
	return &llm.Completion{
		Message:      session.Message{Role: "assistant", Content: "second answer"},
		FinishReason: "stop",
	}, nil
}

func TestProcessTurnCancellationDoesNotPoisonNextTurn(t *testing.T) {
	term := newTestTerminal(t)
	client := &flakyClient{}
	term.agent.Client = client

	// The interrupted turn is absorbed: the user message stays recorded,
	// no synthetic assistant reply is added.
	require.NoError(t, term.processTurn(t.Context(), "first question"))
	msgs := term.agent.Session.Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[1].Role)

	// The next turn runs against a fresh context and completes.
	require.NoError(t, term.processTurn(t.Context(), "second question"))
	msgs = term.agent.Session.Messages
	require.Len(t, msgs, 4)
	assert.Equal(t, "second answer", msgs[3].Content)
	assert.Equal(t, 2, client.calls)
}

func TestSummarizeArgs(t *testing.T) {
	assert.Equal(t, `{"path": "a.go"}`, summarizeArgs("{\"path\":\n  \"a.go\"}"))

	long := summarizeArgs(`{"content": "` + strings.Repeat("x", 200) + `"}`)
	assert.LessOrEqual(t, len(long), 80)
	assert.Contains(t, long, "...")
}
