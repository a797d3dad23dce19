package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/agenthands/truthseeker/internal/llm"
	"github.com/spf13/cast"
	"github.com/tidwall/gjson"
)

const (
	WebSearchToolName = "brave_search"

	defaultSearchCount = 5
	maxSearchCount     = 10
)

// ToolKind is the closed set of tools a run can execute.
type ToolKind int

const (
	ToolUnsupported ToolKind = iota
	ToolWebSearch
)

func ResolveTool(name string) ToolKind {
	switch name {
	case WebSearchToolName:
		return ToolWebSearch
	default:
		return ToolUnsupported
	}
}

func (k ToolKind) String() string {
	switch k {
	case ToolWebSearch:
		return WebSearchToolName
	default:
		return "unsupported"
	}
}

type UnsupportedToolError struct {
	Name string
}

func (e *UnsupportedToolError) Error() string {
	return "Unknown function " + e.Name
}

type WebSearchArgs struct {
	Query string
	Count int
}

type WebSearchFunc func(ctx context.Context, args WebSearchArgs) (string, error)

// Tools binds handlers to the supported tool kinds. A nil handler means the tool is not offered
// to the model and calls to it are treated as unsupported.
type Tools struct {
	WebSearch     WebSearchFunc
	WebSearchSpec llm.ToolSpec
}

func (t Tools) Specs() []llm.ToolSpec {
	var specs []llm.ToolSpec
	if t.WebSearch != nil {
		specs = append(specs, t.WebSearchSpec)
	}
	return specs
}

func (t Tools) kind(name string) ToolKind {
	switch k := ResolveTool(name); k {
	case ToolWebSearch:
		if t.WebSearch == nil {
			return ToolUnsupported
		}
		return k
	default:
		return ToolUnsupported
	}
}

func (t Tools) execute(ctx context.Context, call llm.ToolCall) (string, error) {
	switch t.kind(call.Name) {
	case ToolWebSearch:
		args, err := parseWebSearchArgs(call.Arguments)
		if err != nil {
			return "", err
		}
		return t.WebSearch(ctx, args)
	default:
		return "", &UnsupportedToolError{Name: call.Name}
	}
}

// decodeArguments accepts an object, an empty payload, or an object that was JSON-encoded twice.
func decodeArguments(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}

	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("invalid tool arguments: %w", err)
	}
	if s, ok := v.(string); ok {
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return nil, fmt.Errorf("invalid tool arguments: %w", err)
		}
	}

	args, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New("invalid tool arguments: expected a JSON object")
	}
	return args, nil
}

func parseWebSearchArgs(raw string) (WebSearchArgs, error) {
	args, err := decodeArguments(raw)
	if err != nil {
		return WebSearchArgs{}, err
	}

	query := strings.TrimSpace(cast.ToString(args["query"]))
	if query == "" {
		return WebSearchArgs{}, errors.New("missing required argument: query")
	}

	count := defaultSearchCount
	if v, ok := args["count"]; ok && v != nil {
		if n, err := cast.ToIntE(v); err == nil {
			count = n
		}
	}
	count = max(1, min(count, maxSearchCount))

	return WebSearchArgs{Query: query, Count: count}, nil
}

// searchTime reads a numeric top-level search_time from a tool result, if there is one.
func searchTime(result string) (float64, bool) {
	if !gjson.Valid(result) {
		return 0, false
	}
	parsed := gjson.Parse(result)
	if !parsed.IsObject() {
		return 0, false
	}
	v := parsed.Get("search_time")
	if !v.Exists() {
		return 0, false
	}
	f, err := cast.ToFloat64E(v.Value())
	if err != nil || f < 0 {
		return 0, false
	}
	return f, true
}
