package agent

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/agenthands/truthseeker/internal/llm"
)

type call struct {
	messages []llm.Message
	tools    []llm.ToolSpec
}

// scriptedModel replays canned completions in order and records what it was sent.
type scriptedModel struct {
	mu        sync.Mutex
	responses []*llm.Completion
	errs      []error
	calls     []call
}

func (m *scriptedModel) Complete(_ context.Context, messages []llm.Message, tools []llm.ToolSpec) (*llm.Completion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := len(m.calls)
	m.calls = append(m.calls, call{
		messages: append([]llm.Message(nil), messages...),
		tools:    tools,
	})
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	if i >= len(m.responses) {
		return nil, errors.New("scriptedModel: no more responses")
	}
	return m.responses[i], nil
}

func (m *scriptedModel) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// streamingModel replays one slice of deltas per Stream call.
type streamingModel struct {
	scriptedModel
	turns [][]llm.Delta
	sent  int
}

func (m *streamingModel) Stream(_ context.Context, messages []llm.Message, tools []llm.ToolSpec) (llm.ChatStream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, call{messages: append([]llm.Message(nil), messages...), tools: tools})
	if m.sent >= len(m.turns) {
		return nil, errors.New("streamingModel: no more turns")
	}
	deltas := m.turns[m.sent]
	m.sent++
	return &sliceStream{deltas: deltas}, nil
}

type sliceStream struct {
	deltas []llm.Delta
	pos    int
	closed bool
}

func (s *sliceStream) Recv() (llm.Delta, error) {
	if s.pos >= len(s.deltas) {
		return llm.Delta{}, io.EOF
	}
	d := s.deltas[s.pos]
	s.pos++
	return d, nil
}

func (s *sliceStream) Close() error {
	s.closed = true
	return nil
}

func toolCall(id, name, args string) llm.ToolCall {
	return llm.ToolCall{ID: id, Name: name, Arguments: args}
}
