package llm

import (
	"context"
	"errors"
)

var ErrNoChoices = errors.New("no response choices")

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is one function invocation requested by the model. Arguments is the raw JSON text.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Message is a provider-neutral conversation turn. Tool messages set ToolCallID and Name.
type Message struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
	Name       string
}

// ToolSpec describes a callable function. Parameters is a JSON schema object.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

type Completion struct {
	Content   string
	ToolCalls []ToolCall
}

// ChatModel is a tool-calling chat completion endpoint. A nil or empty tools slice asks for a
// plain text answer.
type ChatModel interface {
	Complete(ctx context.Context, messages []Message, tools []ToolSpec) (*Completion, error)
}

// ToolCallDelta is a fragment of a streamed tool call. Fragments sharing an Index belong to the
// same call and are concatenated in arrival order.
type ToolCallDelta struct {
	Index     int
	ID        string
	Name      string
	Arguments string
}

type Delta struct {
	Content   string
	ToolCalls []ToolCallDelta
}

// ChatStream yields deltas until Recv returns io.EOF.
type ChatStream interface {
	Recv() (Delta, error)
	Close() error
}

// StreamingChatModel is implemented by providers that can stream partial output.
type StreamingChatModel interface {
	ChatModel
	Stream(ctx context.Context, messages []Message, tools []ToolSpec) (ChatStream, error)
}
