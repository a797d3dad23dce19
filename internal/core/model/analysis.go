package model

import (
	"errors"
	"fmt"
	"strings"
)

var ErrEmptyExplanation = errors.New("explanation must not be empty")

type Reference struct {
	Title string `json:"title"`
	URL   string `json:"url" validate:"required,http_url"`
}

// NewReference rejects anything that is not an absolute http or https URL.
func NewReference(title, url string) (Reference, error) {
	r := Reference{Title: strings.TrimSpace(title), URL: strings.TrimSpace(url)}
	if err := validate.Struct(r); err != nil {
		return Reference{}, fmt.Errorf("invalid reference %q: %w", url, err)
	}
	return r, nil
}

type AnalysisResult struct {
	Verdict      Verdict     `json:"verdict"`
	Explanation  string      `json:"explanation"`
	Context      *string     `json:"context"`
	References   []Reference `json:"references"`
	SearchTime   float64     `json:"search_time"`
	AnalysisTime float64     `json:"analysis_time"`
}

// NewAnalysisResult enforces the invariants every result must satisfy. References are expected
// to come from NewReference.
func NewAnalysisResult(verdict Verdict, explanation string, context *string, refs []Reference, searchTime, analysisTime float64) (AnalysisResult, error) {
	if !verdict.Valid() {
		return AnalysisResult{}, fmt.Errorf("unknown verdict %q", verdict)
	}
	if strings.TrimSpace(explanation) == "" {
		return AnalysisResult{}, ErrEmptyExplanation
	}
	if searchTime < 0 || analysisTime < 0 {
		return AnalysisResult{}, fmt.Errorf("negative timing: search=%f analysis=%f", searchTime, analysisTime)
	}
	if refs == nil {
		refs = []Reference{}
	}
	return AnalysisResult{
		Verdict:      verdict,
		Explanation:  explanation,
		Context:      context,
		References:   refs,
		SearchTime:   searchTime,
		AnalysisTime: analysisTime,
	}, nil
}

// Unverifiable is the degraded result used whenever the pipeline cannot do better.
// An empty explanation is replaced so the result stays valid.
func Unverifiable(explanation string) AnalysisResult {
	if strings.TrimSpace(explanation) == "" {
		explanation = "No explanation provided by model."
	}
	return AnalysisResult{
		Verdict:     VerdictUnverifiable,
		Explanation: explanation,
		References:  []Reference{},
	}
}

func (r AnalysisResult) TotalTime() float64 {
	return r.SearchTime + r.AnalysisTime
}
