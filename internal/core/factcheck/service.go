// Package factcheck wires search, the tool-use loop and the reconciler into a single operation
// that always produces a valid analysis result.
package factcheck

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/agenthands/truthseeker/internal/core/agent"
	"github.com/agenthands/truthseeker/internal/core/model"
	"github.com/agenthands/truthseeker/internal/core/reconcile"
	"github.com/agenthands/truthseeker/internal/llm"
	"github.com/agenthands/truthseeker/internal/logging"
	"github.com/agenthands/truthseeker/internal/metrics"
	"github.com/agenthands/truthseeker/internal/search"
	"github.com/sirupsen/logrus"
)

type Searcher interface {
	Search(ctx context.Context, query string, count int, lang string) ([]model.SearchResult, error)
}

// Progress switches Check into incremental mode. Both callbacks are optional and are called from
// the goroutine running Check.
type Progress struct {
	OnStatus func(status string)
	OnChunk  func(text string)
}

type Options struct {
	MaxIterations int
	// Lang is passed to the search gateway, "en" when empty.
	Lang    string
	Logger  logrus.FieldLogger
	Metrics *metrics.Metrics
	Now     func() time.Time
}

type Service struct {
	searcher Searcher
	agent    *agent.Orchestrator
	lang     string
	log      logrus.FieldLogger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewService(searcher Searcher, chat llm.ChatModel, opts Options) *Service {
	if opts.Lang == "" {
		opts.Lang = "en"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Service{
		searcher: searcher,
		lang:     opts.Lang,
		log:      logging.Component(opts.Logger, "factcheck"),
		metrics:  opts.Metrics,
		now:      opts.Now,
	}
	s.agent = agent.New(chat, agent.Tools{
		WebSearch:     s.webSearch,
		WebSearchSpec: searchToolSpec,
	}, agent.Options{
		MaxIterations: opts.MaxIterations,
		Logger:        opts.Logger,
		Metrics:       opts.Metrics,
	})
	return s
}

// Check fact-checks statement. It never fails: errors and panics become an UNVERIFIABLE result
// whose explanation starts with "Error during analysis:". Timings are measured here and replace
// whatever the model reported.
func (s *Service) Check(ctx context.Context, statement string, progress *Progress) (result model.AnalysisResult) {
	start := s.now()
	var meta agent.Metadata
	log := s.log.WithField("statement", truncate(statement, 120))

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("Fact check panicked")
			result = model.Unverifiable(fmt.Sprintf("Error during analysis: %v", r))
		}

		total := s.now().Sub(start).Seconds()
		result.SearchTime = max(0, meta.SearchTime)
		result.AnalysisTime = max(0, total-result.SearchTime)

		s.metrics.FactCheck(string(result.Verdict), s.now().Sub(start))
		log.WithFields(logrus.Fields{
			"verdict":       result.Verdict,
			"search_time":   result.SearchTime,
			"analysis_time": result.AnalysisTime,
		}).Info("Fact check complete")
	}()

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: userPrompt(statement)},
	}

	var (
		text string
		err  error
	)
	if progress == nil {
		text, meta, err = s.agent.Run(ctx, messages)
	} else {
		text, meta, err = s.stream(ctx, messages, progress)
	}
	if err != nil {
		log.WithError(err).Error("Error during LLM analysis")
		return model.Unverifiable("Error during analysis: " + err.Error())
	}

	result, diag := reconcile.ParseWithDiagnostics(text)
	entry := log.WithFields(logrus.Fields{"outcome": diag.Outcome.String(), "dropped_references": diag.DroppedReferences})
	if diag.Fallback != "" {
		entry.WithField("response", truncate(text, 1000)).Warn(diag.Fallback)
	} else {
		for field, status := range diag.Fields {
			entry = entry.WithField("field_"+field, string(status))
		}
		entry.Debug("Model output reconciled")
	}
	return result
}

// stream drains the orchestrator's event channel and rebuilds the full answer text.
func (s *Service) stream(ctx context.Context, messages []llm.Message, progress *Progress) (string, agent.Metadata, error) {
	var buf strings.Builder
	var meta agent.Metadata
	var err error

	for ev := range s.agent.Stream(ctx, messages, progress.OnStatus) {
		switch ev.Kind {
		case agent.EventTextChunk:
			buf.WriteString(ev.Text)
			if progress.OnChunk != nil {
				progress.OnChunk(ev.Text)
			}
		case agent.EventDone:
			buf.WriteString(ev.Text)
			if ev.Metadata != nil {
				meta = *ev.Metadata
			}
			err = ev.Err
		}
	}
	return buf.String(), meta, err
}

type toolResult struct {
	Formatted  string       `json:"formatted"`
	Results    []toolSource `json:"results"`
	SearchTime float64      `json:"search_time"`
}

type toolSource struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// webSearch is the brave_search handler. The wall-clock duration of the search is reported back
// as search_time so the orchestrator can account for it.
func (s *Service) webSearch(ctx context.Context, args agent.WebSearchArgs) (string, error) {
	query := search.SanitizeQuery(args.Query)
	if query == "" {
		return "", fmt.Errorf("query is empty after sanitization")
	}

	start := s.now()
	results, err := s.searcher.Search(ctx, query, args.Count, s.lang)
	if err != nil {
		return "", err
	}
	elapsed := s.now().Sub(start).Seconds()

	out := toolResult{
		Formatted:  formatResults(results),
		Results:    make([]toolSource, 0, len(results)),
		SearchTime: elapsed,
	}
	for _, r := range results {
		out.Results = append(out.Results, toolSource{Title: r.Title, URL: r.URL, Description: r.Description})
	}

	b, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("encode search results: %w", err)
	}
	return string(b), nil
}

func formatResults(results []model.SearchResult) string {
	blocks := make([]string, 0, len(results))
	for _, r := range results {
		blocks = append(blocks, fmt.Sprintf("[Source: %s]\nURL: %s\n%s\n", r.Title, r.URL, r.Description))
	}
	return strings.Join(blocks, "\n---\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
