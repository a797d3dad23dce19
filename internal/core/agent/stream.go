package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/agenthands/truthseeker/internal/llm"
)

const (
	StatusAnalyzing = "Analyzing..."
	StatusSearching = "Searching for evidence..."
)

// StatusSink receives coarse progress strings. It is called from the producing goroutine.
type StatusSink func(status string)

type EventKind int

const (
	EventTextChunk EventKind = iota
	EventDone
)

// Event is one message of the incremental protocol. Metadata is set only on EventDone.
type Event struct {
	Kind     EventKind
	Text     string
	Metadata *Metadata
	Err      error
}

// Stream is the incremental mode. The returned channel carries TextChunk events in generation
// order followed by exactly one Done event, then it is closed. Done.Text is empty when the answer
// was already streamed and holds the whole answer when the iteration budget forced a final call.
// Callers must drain the channel until it is closed.
func (o *Orchestrator) Stream(ctx context.Context, messages []llm.Message, status StatusSink) <-chan Event {
	out := make(chan Event, o.eventBuffer)
	if status == nil {
		status = func(string) {}
	}

	go func() {
		defer close(out)

		var (
			text string
			meta Metadata
			err  error
		)
		func() {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("stream panicked: %v", r)
				}
			}()
			text, meta, err = o.stream(ctx, messages, status, func(chunk string) {
				out <- Event{Kind: EventTextChunk, Text: chunk}
			})
		}()

		out <- Event{Kind: EventDone, Text: text, Metadata: &meta, Err: err}
	}()

	return out
}

func (o *Orchestrator) stream(ctx context.Context, messages []llm.Message, status StatusSink, emit func(string)) (string, Metadata, error) {
	history := append([]llm.Message(nil), messages...)
	specs := o.tools.Specs()
	var meta Metadata

	for i := 0; i < o.maxIterations; i++ {
		status(StatusAnalyzing)

		completion, err := o.streamTurn(ctx, history, specs, emit)
		if err != nil {
			o.metrics.ModelCall("stream", "error")
			return "", meta, fmt.Errorf("model call: %w", err)
		}
		o.metrics.ModelCall("stream", "ok")

		if len(completion.ToolCalls) == 0 {
			return "", meta, nil
		}

		history = append(history, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   completion.Content,
			ToolCalls: completion.ToolCalls,
		})

		status(StatusSearching)
		history = o.executeTools(ctx, history, completion.ToolCalls, &meta)
	}

	text, err := o.finalCall(ctx, history)
	return text, meta, err
}

// streamTurn performs one model call, forwarding content as it arrives. Providers without
// streaming support are called in buffered mode and their text is forwarded as one chunk.
func (o *Orchestrator) streamTurn(ctx context.Context, history []llm.Message, specs []llm.ToolSpec, emit func(string)) (*llm.Completion, error) {
	streamer, ok := o.model.(llm.StreamingChatModel)
	if !ok {
		completion, err := o.model.Complete(ctx, history, specs)
		if err != nil {
			return nil, err
		}
		if completion.Content != "" {
			emit(completion.Content)
		}
		return completion, nil
	}

	stream, err := streamer.Stream(ctx, history, specs)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	var content strings.Builder
	var calls callAssembler
	for {
		delta, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if delta.Content != "" {
			content.WriteString(delta.Content)
			emit(delta.Content)
		}
		for _, d := range delta.ToolCalls {
			calls.add(d)
		}
	}

	return &llm.Completion{Content: content.String(), ToolCalls: calls.complete()}, nil
}

// callAssembler rebuilds tool calls from streamed fragments keyed by index.
type callAssembler struct {
	calls []llm.ToolCall
}

func (a *callAssembler) add(d llm.ToolCallDelta) {
	if d.Index < 0 {
		return
	}
	for len(a.calls) <= d.Index {
		a.calls = append(a.calls, llm.ToolCall{})
	}
	c := &a.calls[d.Index]
	if d.ID != "" {
		c.ID = d.ID
	}
	if d.Name != "" {
		c.Name = d.Name
	}
	c.Arguments += d.Arguments
}

// complete drops calls that never received an id or a name.
func (a *callAssembler) complete() []llm.ToolCall {
	var out []llm.ToolCall
	for _, c := range a.calls {
		if c.ID != "" && c.Name != "" {
			out = append(out, c)
		}
	}
	return out
}
