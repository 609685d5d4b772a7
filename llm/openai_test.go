package llm

import (
	"testing"

	"github.com/clai-dev/clai/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertMessagesToOpenAI(t *testing.T) {
	messages := []session.Message{
		{Role: "system", Content: "be helpful"},
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "checking", ToolCalls: []session.ToolCall{
			{ID: "call_1", Name: "read_file", Arguments: `{"path":"a.go"}`},
		}},
		{Role: "tool", Content: "package a", ToolCallID: "call_1"},
		{Role: "assistant", Content: "done"},
	}

	out := convertMessagesToOpenAI(messages)
	require.Len(t, out, 5)
	assert.NotNil(t, out[0].OfSystem)
	assert.NotNil(t, out[1].OfUser)
	assert.NotNil(t, out[2].OfAssistant)
	require.NotNil(t, out[3].OfTool)
	assert.NotNil(t, out[4].OfAssistant)
}

func TestConvertToolsToOpenAIEmpty(t *testing.T) {
	assert.Nil(t, convertToolsToOpenAI(nil))
}
