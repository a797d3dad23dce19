package agent

import (
	"context"
	"fmt"

	"github.com/agenthands/truthseeker/internal/llm"
	"github.com/agenthands/truthseeker/internal/logging"
	"github.com/agenthands/truthseeker/internal/metrics"
	"github.com/sirupsen/logrus"
)

const DefaultMaxIterations = 5

// Metadata is accumulated while tools run. SearchTime sums the search_time reported by tool
// results, in seconds.
type Metadata struct {
	SearchTime float64
}

type Options struct {
	MaxIterations int
	// EventBuffer is the capacity of the channel returned by Stream.
	EventBuffer int
	Logger      logrus.FieldLogger
	Metrics     *metrics.Metrics
}

// Orchestrator drives the model through a bounded tool-use loop. It holds no per-run state and
// can serve concurrent runs; each run owns its own copy of the conversation.
type Orchestrator struct {
	model         llm.ChatModel
	tools         Tools
	maxIterations int
	eventBuffer   int
	log           logrus.FieldLogger
	metrics       *metrics.Metrics
}

func New(model llm.ChatModel, tools Tools, opts Options) *Orchestrator {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 16
	}
	return &Orchestrator{
		model:         model,
		tools:         tools,
		maxIterations: opts.MaxIterations,
		eventBuffer:   opts.EventBuffer,
		log:           logging.Component(opts.Logger, "agent"),
		metrics:       opts.Metrics,
	}
}

// Run is the buffered mode: it returns once the model answers without tool calls, or after the
// forced final call when the iteration budget is spent. At most MaxIterations+1 model calls are
// made.
func (o *Orchestrator) Run(ctx context.Context, messages []llm.Message) (string, Metadata, error) {
	history := append([]llm.Message(nil), messages...)
	specs := o.tools.Specs()
	var meta Metadata

	for i := 0; i < o.maxIterations; i++ {
		completion, err := o.model.Complete(ctx, history, specs)
		if err != nil {
			o.metrics.ModelCall("buffered", "error")
			return "", meta, fmt.Errorf("model call: %w", err)
		}
		o.metrics.ModelCall("buffered", "ok")

		if len(completion.ToolCalls) == 0 {
			return completion.Content, meta, nil
		}

		history = append(history, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   completion.Content,
			ToolCalls: completion.ToolCalls,
		})
		history = o.executeTools(ctx, history, completion.ToolCalls, &meta)
	}

	text, err := o.finalCall(ctx, history)
	return text, meta, err
}

func (o *Orchestrator) finalCall(ctx context.Context, history []llm.Message) (string, error) {
	o.log.WithField("max_iterations", o.maxIterations).Warn("Max tool call iterations reached")

	completion, err := o.model.Complete(ctx, history, nil)
	if err != nil {
		o.metrics.ModelCall("final", "error")
		return "", fmt.Errorf("final model call: %w", err)
	}
	o.metrics.ModelCall("final", "ok")
	return completion.Content, nil
}

// executeTools runs calls in the order the model emitted them and appends one tool message per
// call. Failures become tool messages so the model can react to them.
func (o *Orchestrator) executeTools(ctx context.Context, history []llm.Message, calls []llm.ToolCall, meta *Metadata) []llm.Message {
	for _, call := range calls {
		history = append(history, llm.Message{
			Role:       llm.RoleTool,
			ToolCallID: call.ID,
			Name:       call.Name,
			Content:    o.invoke(ctx, call, meta),
		})
	}
	return history
}

func (o *Orchestrator) invoke(ctx context.Context, call llm.ToolCall, meta *Metadata) string {
	log := o.log.WithFields(logrus.Fields{"tool": call.Name, "call_id": call.ID})

	if o.tools.kind(call.Name) == ToolUnsupported {
		log.Warn("Unknown tool function, skipping")
		o.metrics.ToolCall("unsupported", "error")
		return "Error: " + (&UnsupportedToolError{Name: call.Name}).Error()
	}

	result, err := o.safeExecute(ctx, call)
	if err != nil {
		log.WithError(err).Error("Error executing tool function")
		o.metrics.ToolCall(call.Name, "error")
		return "Error: " + err.Error()
	}
	o.metrics.ToolCall(call.Name, "ok")

	if t, ok := searchTime(result); ok {
		meta.SearchTime += t
	}
	return result
}

func (o *Orchestrator) safeExecute(ctx context.Context, call llm.ToolCall) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool %s panicked: %v", call.Name, r)
		}
	}()
	return o.tools.execute(ctx, call)
}
