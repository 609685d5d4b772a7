package llm

import (
	"encoding/json"
	"testing"

	"github.com/clai-dev/clai/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertMessagesToBedrock(t *testing.T) {
	messages := []session.Message{
		{Role: "system", Content: "You are a helpful assistant."},
		{Role: "user", Content: "List the files."},
		{Role: "assistant", ToolCalls: []session.ToolCall{
			{ID: "call_1", Name: "glob_files", Arguments: `{"pattern":"*"}`},
		}},
		{Role: "tool", Content: "main.go", ToolCallID: "call_1"},
	}

	out, systemPrompt := convertMessagesToBedrock(messages)
	assert.Equal(t, "You are a helpful assistant.", systemPrompt)
	require.Len(t, out, 3)

	assert.Equal(t, "user", out[0]["role"])
	assert.Equal(t, "assistant", out[1]["role"])

	blocks := out[1]["content"].([]map[string]interface{})
	require.Len(t, blocks, 1)
	assert.Equal(t, "tool_use", blocks[0]["type"])
	assert.Equal(t, "call_1", blocks[0]["id"])
	assert.Equal(t, map[string]interface{}{"pattern": "*"}, blocks[0]["input"])

	// Tool results travel as user messages.
	assert.Equal(t, "user", out[2]["role"])
	resultBlocks := out[2]["content"].([]map[string]interface{})
	assert.Equal(t, "tool_result", resultBlocks[0]["type"])
	assert.Equal(t, "call_1", resultBlocks[0]["tool_use_id"])
}

func TestCreateBedrockRequest(t *testing.T) {
	messages, _ := convertMessagesToBedrock([]session.Message{
		{Role: "user", Content: "hello"},
	})

	body, err := createBedrockRequest(messages, "system prompt", nil)
	require.NoError(t, err)

	var request map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &request))
	assert.Equal(t, "bedrock-2023-05-31", request["anthropic_version"])
	assert.Equal(t, "system prompt", request["system"])
	assert.NotContains(t, request, "tools")
}

func TestProcessBedrockResponse(t *testing.T) {
	body := []byte(`{
		"content": [
			{"type": "text", "text": "Checking the file."},
			{"type": "tool_use", "id": "toolu_1", "name": "read_file", "input": {"path": "go.mod"}}
		],
		"stop_reason": "tool_use",
		"usage": {"input_tokens": 10, "output_tokens": 5}
	}`)

	completion, err := processBedrockResponse(body)
	require.NoError(t, err)
	assert.Equal(t, "Checking the file.", completion.Message.Content)
	require.Len(t, completion.Message.ToolCalls, 1)
	assert.Equal(t, "toolu_1", completion.Message.ToolCalls[0].ID)
	assert.Equal(t, "read_file", completion.Message.ToolCalls[0].Name)
	assert.JSONEq(t, `{"path":"go.mod"}`, completion.Message.ToolCalls[0].Arguments)
	assert.Equal(t, "tool_use", completion.FinishReason)
	assert.Equal(t, 15, completion.Usage.TotalTokens)
}

func TestProcessBedrockResponseError(t *testing.T) {
	_, err := processBedrockResponse([]byte(`{"error": "model not found"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not found")
}
