package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTool(t *testing.T) {
	assert.Equal(t, ToolWebSearch, ResolveTool("brave_search"))
	assert.Equal(t, ToolUnsupported, ResolveTool("Brave_Search"))
	assert.Equal(t, ToolUnsupported, ResolveTool(""))
	assert.Equal(t, "brave_search", ToolWebSearch.String())
	assert.Equal(t, "unsupported", ToolUnsupported.String())
}

func TestParseWebSearchArgs(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want WebSearchArgs
	}{
		{"plain", `{"query":"moon landing"}`, WebSearchArgs{Query: "moon landing", Count: 5}},
		{"count", `{"query":"q","count":7}`, WebSearchArgs{Query: "q", Count: 7}},
		{"string count", `{"query":"q","count":"2"}`, WebSearchArgs{Query: "q", Count: 2}},
		{"float count", `{"query":"q","count":3.0}`, WebSearchArgs{Query: "q", Count: 3}},
		{"clamped high", `{"query":"q","count":50}`, WebSearchArgs{Query: "q", Count: 10}},
		{"clamped low", `{"query":"q","count":0}`, WebSearchArgs{Query: "q", Count: 1}},
		{"garbage count", `{"query":"q","count":"many"}`, WebSearchArgs{Query: "q", Count: 5}},
		{"double encoded", `"{\"query\":\"q\"}"`, WebSearchArgs{Query: "q", Count: 5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseWebSearchArgs(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseWebSearchArgsErrors(t *testing.T) {
	for _, raw := range []string{"", "{}", `{"query":"  "}`, "not json", `[1,2]`} {
		_, err := parseWebSearchArgs(raw)
		assert.Error(t, err, raw)
	}
}

func TestSearchTime(t *testing.T) {
	v, ok := searchTime(`{"search_time":0.42}`)
	assert.True(t, ok)
	assert.InDelta(t, 0.42, v, 1e-9)

	v, ok = searchTime(`{"search_time":"1.5"}`)
	assert.True(t, ok)
	assert.InDelta(t, 1.5, v, 1e-9)

	for _, s := range []string{"", "plain text", `[1]`, `{"other":1}`, `{"search_time":"soon"}`, `{"search_time":-1}`} {
		_, ok := searchTime(s)
		assert.False(t, ok, s)
	}
}

func TestCallAssembler(t *testing.T) {
	var a callAssembler
	a.add(llmDelta(0, "c0", "brave_search", `{"que`))
	a.add(llmDelta(1, "", "", `{}`))
	a.add(llmDelta(0, "", "", `ry":"x"}`))
	a.add(llmDelta(2, "c2", "brave_search", ``))
	a.add(llmDelta(-1, "bad", "bad", ``))

	calls := a.complete()
	require.Len(t, calls, 2, "index 1 never got an id or a name")
	assert.Equal(t, toolCall("c0", "brave_search", `{"query":"x"}`), calls[0])
	assert.Equal(t, toolCall("c2", "brave_search", ``), calls[1])
}
