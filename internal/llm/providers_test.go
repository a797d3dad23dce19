package llm

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/agenthands/truthseeker/internal/config"
	"github.com/google/generative-ai-go/genai"
	"github.com/liushuangls/go-anthropic/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func conversation() []Message {
	return []Message{
		{Role: RoleSystem, Content: "be precise"},
		{Role: RoleUser, Content: "check this"},
		{Role: RoleAssistant, Content: "looking", ToolCalls: []ToolCall{
			{ID: "a", Name: "brave_search", Arguments: `{"query":"one"}`},
			{ID: "b", Name: "brave_search", Arguments: `not json`},
		}},
		{Role: RoleTool, ToolCallID: "a", Name: "brave_search", Content: "first"},
		{Role: RoleTool, ToolCallID: "b", Name: "brave_search", Content: "Error: boom"},
	}
}

func TestToClaudeMessages(t *testing.T) {
	system, msgs := toClaudeMessages(conversation(), false)

	assert.Equal(t, "be precise", system)
	require.Len(t, msgs, 3)

	assert.Equal(t, anthropic.RoleUser, msgs[0].Role)

	assert.Equal(t, anthropic.RoleAssistant, msgs[1].Role)
	require.Len(t, msgs[1].Content, 3)
	assert.Equal(t, anthropic.MessagesContentTypeToolUse, msgs[1].Content[1].Type)
	assert.Equal(t, "a", msgs[1].Content[1].MessageContentToolUse.ID)
	assert.JSONEq(t, `{}`, string(msgs[1].Content[2].MessageContentToolUse.Input))

	assert.Equal(t, anthropic.RoleUser, msgs[2].Role)
	require.Len(t, msgs[2].Content, 2, "consecutive tool results share one user turn")
	assert.Equal(t, anthropic.MessagesContentTypeToolResult, msgs[2].Content[0].Type)
}

func TestToClaudeMessagesWithoutTools(t *testing.T) {
	history := append(conversation(),
		Message{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "c", Name: "brave_search", Arguments: `{"query":"two"}`}}},
		Message{Role: RoleTool, ToolCallID: "c", Name: "brave_search", Content: "second"},
	)

	_, msgs := toClaudeMessages(history, true)
	require.Len(t, msgs, 5)

	for i, m := range msgs {
		for _, c := range m.Content {
			assert.Equal(t, anthropic.MessagesContentTypeText, c.Type, "message %d", i)
		}
	}
	assert.Equal(t, `[Called brave_search with {"query":"one"}]`, *msgs[1].Content[1].Text)
	require.Len(t, msgs[2].Content, 2, "consecutive results still share one user turn")
	assert.Equal(t, "[Result of brave_search]\nfirst", *msgs[2].Content[0].Text)
	assert.Equal(t, anthropic.RoleAssistant, msgs[3].Role)
	assert.Equal(t, anthropic.RoleUser, msgs[4].Role)

	raw, err := json.Marshal(msgs)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "tool_use")
	assert.NotContains(t, string(raw), "tool_result")
}

func TestToGeminiContents(t *testing.T) {
	system, contents := toGeminiContents(conversation())

	assert.Equal(t, "be precise", system)
	require.Len(t, contents, 3)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "model", contents[1].Role)
	require.Len(t, contents[1].Parts, 3)

	call, ok := contents[1].Parts[1].(genai.FunctionCall)
	require.True(t, ok)
	assert.Equal(t, "one", call.Args["query"])

	require.Len(t, contents[2].Parts, 2)
	resp, ok := contents[2].Parts[1].(genai.FunctionResponse)
	require.True(t, ok)
	assert.Equal(t, "brave_search", resp.Name)
	assert.Equal(t, "Error: boom", resp.Response["content"])
}

func TestToGeminiSchema(t *testing.T) {
	s := toGeminiSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string", "description": "q"},
			"count": map[string]any{"type": "integer"},
		},
		"required": []any{"query"},
	})

	assert.Equal(t, genai.TypeObject, s.Type)
	assert.Equal(t, genai.TypeString, s.Properties["query"].Type)
	assert.Equal(t, "q", s.Properties["query"].Description)
	assert.Equal(t, genai.TypeInteger, s.Properties["count"].Type)
	assert.Equal(t, []string{"query"}, s.Required)
	assert.Nil(t, toGeminiSchema(nil))
}

func TestNewChatModelProviders(t *testing.T) {
	ctx := context.Background()

	for _, p := range []string{"deepseek", "openai", "ollama"} {
		m, err := NewChatModel(ctx, config.LLMConfig{Provider: p, Model: "m"}, nil, nil)
		require.NoError(t, err, p)
		_, streams := m.(StreamingChatModel)
		assert.True(t, streams, p)
	}

	m, err := NewChatModel(ctx, config.LLMConfig{Provider: "Claude", Model: "claude-3-5-haiku-latest"}, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &ClaudeClient{}, m)

	_, err = NewChatModel(ctx, config.LLMConfig{Provider: "mystery"}, nil, nil)
	assert.ErrorContains(t, err, "unsupported llm provider")
}
