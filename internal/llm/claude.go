package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"
)

type ClaudeClient struct {
	client    *anthropic.Client
	model     string
	maxTokens int
}

func NewClaudeClient(apiKey string, model string, baseURL string, maxTokens int) *ClaudeClient {
	var opts []anthropic.ClientOption
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	client := anthropic.NewClient(apiKey, opts...)

	return &ClaudeClient{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
	}
}

func (c *ClaudeClient) Complete(ctx context.Context, messages []Message, tools []ToolSpec) (*Completion, error) {
	// Tool blocks are only accepted alongside tool definitions.
	system, msgs := toClaudeMessages(messages, len(tools) == 0)

	req := anthropic.MessagesRequest{
		Model:     anthropic.Model(c.model),
		System:    system,
		Messages:  msgs,
		MaxTokens: c.maxTokens,
	}
	for _, t := range tools {
		req.Tools = append(req.Tools, anthropic.ToolDefinition{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.Parameters,
		})
	}

	resp, err := c.client.CreateMessages(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Content) == 0 {
		return nil, fmt.Errorf("no response content")
	}

	out := &Completion{}
	var text strings.Builder
	for _, part := range resp.Content {
		switch part.Type {
		case anthropic.MessagesContentTypeText:
			if part.Text != nil {
				text.WriteString(*part.Text)
			}
		case anthropic.MessagesContentTypeToolUse:
			if part.MessageContentToolUse != nil {
				out.ToolCalls = append(out.ToolCalls, ToolCall{
					ID:        part.MessageContentToolUse.ID,
					Name:      part.MessageContentToolUse.Name,
					Arguments: string(part.MessageContentToolUse.Input),
				})
			}
		}
	}
	out.Content = text.String()
	return out, nil
}

// toClaudeMessages lifts system prompts into the request field and folds consecutive tool
// results into one user turn. With flatten set, tool calls and results become plain text.
func toClaudeMessages(messages []Message, flatten bool) (string, []anthropic.Message) {
	var system []string
	var out []anthropic.Message

	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)

		case RoleAssistant:
			var content []anthropic.MessageContent
			if m.Content != "" {
				content = append(content, anthropic.NewTextMessageContent(m.Content))
			}
			for _, tc := range m.ToolCalls {
				if flatten {
					content = append(content, anthropic.NewTextMessageContent(
						fmt.Sprintf("[Called %s with %s]", tc.Name, tc.Arguments)))
					continue
				}
				input := json.RawMessage(tc.Arguments)
				if !json.Valid(input) {
					input = json.RawMessage("{}")
				}
				content = append(content, anthropic.MessageContent{
					Type: anthropic.MessagesContentTypeToolUse,
					MessageContentToolUse: &anthropic.MessageContentToolUse{
						ID:    tc.ID,
						Name:  tc.Name,
						Input: input,
					},
				})
			}
			if len(content) > 0 {
				out = append(out, anthropic.Message{Role: anthropic.RoleAssistant, Content: content})
			}

		case RoleTool:
			result := anthropic.NewToolResultMessageContent(m.ToolCallID, m.Content, strings.HasPrefix(m.Content, "Error:"))
			if flatten {
				result = anthropic.NewTextMessageContent(fmt.Sprintf("[Result of %s]\n%s", m.Name, m.Content))
			}
			if n := len(out); n > 0 && out[n-1].Role == anthropic.RoleUser && isToolResultTurn(out[n-1], flatten) {
				out[n-1].Content = append(out[n-1].Content, result)
				continue
			}
			out = append(out, anthropic.Message{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{result}})

		default:
			out = append(out, anthropic.Message{
				Role:    anthropic.RoleUser,
				Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(m.Content)},
			})
		}
	}
	return strings.Join(system, "\n\n"), out
}

func isToolResultTurn(m anthropic.Message, flatten bool) bool {
	for _, c := range m.Content {
		if flatten {
			if c.Type != anthropic.MessagesContentTypeText || c.Text == nil || !strings.HasPrefix(*c.Text, "[Result of ") {
				return false
			}
			continue
		}
		if c.Type != anthropic.MessagesContentTypeToolResult {
			return false
		}
	}
	return len(m.Content) > 0
}
