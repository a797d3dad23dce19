package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/agenthands/truthseeker/internal/core/agent"
	"github.com/agenthands/truthseeker/internal/core/factcheck"
	"github.com/agenthands/truthseeker/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChecker struct {
	mu       sync.Mutex
	inFlight int32
	peak     int32
	seen     []string
	progress []*factcheck.Progress
}

func (s *stubChecker) Check(_ context.Context, statement string, progress *factcheck.Progress) model.AnalysisResult {
	n := atomic.AddInt32(&s.inFlight, 1)
	for {
		p := atomic.LoadInt32(&s.peak)
		if n <= p || atomic.CompareAndSwapInt32(&s.peak, p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	atomic.AddInt32(&s.inFlight, -1)

	s.mu.Lock()
	s.seen = append(s.seen, statement)
	s.progress = append(s.progress, progress)
	s.mu.Unlock()

	ctx := "checked: " + statement
	return model.AnalysisResult{
		Verdict:      model.VerdictMostlyTrue,
		Explanation:  "Because " + statement,
		Context:      &ctx,
		References:   []model.Reference{{Title: "Source", URL: "https://example.org/a?b=1&c=2"}},
		SearchTime:   1,
		AnalysisTime: 0.5,
	}
}

func TestReadStatements(t *testing.T) {
	got, err := readStatements(strings.NewReader("# claims\nThe sky is blue.\n\n   Water boils at 100C.  \n#skip\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"The sky is blue.", "Water boils at 100C."}, got)
}

func TestCollectStatements(t *testing.T) {
	got, err := collectStatements(checkFlags{test: true}, []string{"ignored"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{testStatement}, got)

	got, err = collectStatements(checkFlags{}, []string{"Paris", "is", "in", "France"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Paris is in France"}, got)

	got, err = collectStatements(checkFlags{file: "-"}, nil, strings.NewReader("a\nb\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)

	_, err = collectStatements(checkFlags{}, nil, nil)
	assert.Error(t, err)

	_, err = collectStatements(checkFlags{file: "-"}, nil, strings.NewReader("# only comments\n"))
	assert.Error(t, err)
}

func TestCheckAllKeepsOrderAndLimit(t *testing.T) {
	c := &stubChecker{}
	statements := []string{"a", "b", "c", "d", "e", "f"}

	results, err := checkAll(context.Background(), c, statements, 2)
	require.NoError(t, err)
	require.Len(t, results, len(statements))
	for i, r := range results {
		assert.Equal(t, "Because "+statements[i], r.Explanation)
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&c.peak), int32(2))
}

func TestCheckAllStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := checkAll(ctx, &stubChecker{}, []string{"a", "b"}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunCheckJSON(t *testing.T) {
	var out, errOut bytes.Buffer
	c := &stubChecker{}

	err := runCheck(context.Background(), c, []string{"x"}, checkFlags{json: true}, &out, &errOut)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "MOSTLY_TRUE", got["verdict"])
	assert.InDelta(t, 1.5, got["total_time"], 1e-9)
	assert.Contains(t, out.String(), "https://example.org/a?b=1&c=2")
	assert.Nil(t, c.progress[0])
}

func TestRunCheckBatchJSON(t *testing.T) {
	var out bytes.Buffer
	err := runCheck(context.Background(), &stubChecker{}, []string{"x", "y"}, checkFlags{json: true, concurrency: 2}, &out, &bytes.Buffer{})
	require.NoError(t, err)

	var got []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "Because y", got[1]["explanation"])
}

func TestRunCheckText(t *testing.T) {
	var out, errOut bytes.Buffer
	c := &stubChecker{}

	err := runCheck(context.Background(), c, []string{"The sky is blue."}, checkFlags{}, &out, &errOut)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "Fact-Checking Statement")
	assert.Contains(t, text, "[~] Mostly True")
	assert.Contains(t, text, "Because The sky is blue.")
	assert.Contains(t, text, "checked: The sky is blue.")
	assert.Contains(t, text, "https://example.org/a?b=1&c=2")
	assert.Contains(t, text, "Total 1.50s")
	assert.Empty(t, errOut.String(), "no status line when stderr is not a terminal")
	assert.Nil(t, c.progress[0])
}

func TestStatusLabels(t *testing.T) {
	var buf bytes.Buffer
	p := newStatusProgress(&buf)

	p.OnStatus(agent.StatusAnalyzing)
	assert.Contains(t, buf.String(), "Analyzing statement...")

	p.OnStatus(agent.StatusSearching)
	assert.Contains(t, buf.String(), "Searching the web for evidence...")

	p.OnStatus("Something else")
	assert.Contains(t, buf.String(), "Something else")
}

func TestVerdictStyles(t *testing.T) {
	icons := map[model.Verdict]string{
		model.VerdictTrue:          "[OK]",
		model.VerdictMostlyTrue:    "[~]",
		model.VerdictPartiallyTrue: "[=]",
		model.VerdictMostlyFalse:   "[~]",
		model.VerdictFalse:         "[X]",
		model.VerdictUnverifiable:  "[?]",
	}
	for v, icon := range icons {
		assert.Equal(t, icon, styleFor(v).icon, v)
	}
	assert.True(t, styleFor(model.VerdictUnverifiable).faint)
	assert.Equal(t, "[?]", styleFor(model.Verdict("BOGUS")).icon)
}

func TestCheckCommandRequiresStatement(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"check"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	assert.ErrorContains(t, root.Execute(), "a statement is required")
}
