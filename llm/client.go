package llm

import (
	"context"

	"github.com/clai-dev/clai/session"
	"github.com/clai-dev/clai/tools"
)

// Usage is the token accounting for one completion.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Add accumulates another completion's usage into the counter.
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// Completion is one assistant turn: a message (possibly carrying tool
// calls), the finish reason, and the token usage for the round trip.
type Completion struct {
	Message      session.Message
	FinishReason string
	Usage        Usage
}

// Client is the interface for interacting with a language model service.
type Client interface {
	Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool) (*Completion, error)
}

// MockClient replays scripted completions. Used for development without an
// API key and throughout the agent tests.
type MockClient struct {
	Responses []*Completion
	Calls     [][]session.Message
	next      int
}

func (m *MockClient) Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool) (*Completion, error) {
	snapshot := make([]session.Message, len(messages))
	copy(snapshot, messages)
	m.Calls = append(m.Calls, snapshot)

	if m.next >= len(m.Responses) {
		return &Completion{
			Message:      session.Message{Role: "assistant", Content: "(mock: no scripted response left)"},
			FinishReason: "stop",
		}, nil
	}
	resp := m.Responses[m.next]
	m.next++
	return resp, nil
}
