package reconcile

import (
	"math"
	"strings"

	"github.com/agenthands/truthseeker/internal/core/model"
	"github.com/spf13/cast"
)

const noExplanation = "No explanation provided by model."

// FieldStatus records what normalization did with one field of the model's object.
type FieldStatus string

const (
	FieldUsed      FieldStatus = "used"
	FieldDefaulted FieldStatus = "defaulted"
	FieldDropped   FieldStatus = "dropped"
)

// Fields is the normalized, not yet validated, content of a model answer.
type Fields struct {
	Verdict      model.Verdict
	Explanation  string
	Context      *string
	References   []model.Reference
	SearchTime   float64
	AnalysisTime float64
}

// Diagnostics explains how a model answer was turned into a result.
type Diagnostics struct {
	Outcome ExtractOutcome
	Fields  map[string]FieldStatus
	// DroppedReferences counts reference items that were malformed or had no valid URL.
	DroppedReferences int
	// Fallback is the explanation of the degraded result, empty when parsing succeeded.
	Fallback string
}

// Normalize maps the decoded object onto the result fields. It is pure and never fails:
// anything unusable is defaulted or dropped and recorded in the diagnostics.
func Normalize(obj map[string]any) (Fields, Diagnostics) {
	diag := Diagnostics{Fields: make(map[string]FieldStatus, 6)}
	var f Fields

	f.Verdict, diag.Fields["verdict"] = normalizeVerdict(obj["verdict"])
	f.Explanation, diag.Fields["explanation"] = normalizeExplanation(obj["explanation"])
	f.Context, diag.Fields["context"] = normalizeContext(obj["context"])
	f.References, diag.DroppedReferences, diag.Fields["references"] = normalizeReferences(obj["references"])
	f.SearchTime, diag.Fields["search_time"] = normalizeTiming(obj["search_time"])
	f.AnalysisTime, diag.Fields["analysis_time"] = normalizeTiming(obj["analysis_time"])

	return f, diag
}

func normalizeVerdict(v any) (model.Verdict, FieldStatus) {
	s, ok := v.(string)
	if !ok {
		return model.VerdictUnverifiable, FieldDefaulted
	}
	verdict, known := model.ParseVerdict(s)
	if !known {
		return model.VerdictUnverifiable, FieldDefaulted
	}
	return verdict, FieldUsed
}

func normalizeExplanation(v any) (string, FieldStatus) {
	if v == nil {
		return noExplanation, FieldDefaulted
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return noExplanation, FieldDefaulted
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return noExplanation, FieldDefaulted
	}
	return s, FieldUsed
}

func normalizeContext(v any) (*string, FieldStatus) {
	switch c := v.(type) {
	case nil:
		return nil, FieldDefaulted
	case string:
		return &c, FieldUsed
	case map[string]any, []any:
		return nil, FieldDropped
	default:
		s, err := cast.ToStringE(c)
		if err != nil {
			return nil, FieldDropped
		}
		return &s, FieldUsed
	}
}

// normalizeReferences accepts a list of objects or a newline separated string of "title - url"
// or "title | url" lines. Items that cannot become a valid reference are dropped one by one.
func normalizeReferences(v any) ([]model.Reference, int, FieldStatus) {
	var raw [][2]string
	dropped := 0

	switch r := v.(type) {
	case nil:
		return []model.Reference{}, 0, FieldDefaulted
	case string:
		for _, line := range strings.Split(r, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			raw = append(raw, splitReferenceLine(line))
		}
	case []any:
		for _, item := range r {
			m, ok := item.(map[string]any)
			if !ok {
				dropped++
				continue
			}
			raw = append(raw, [2]string{
				firstString(m, "title", "source", "name"),
				firstString(m, "url", "link"),
			})
		}
	default:
		return []model.Reference{}, 0, FieldDropped
	}

	refs := make([]model.Reference, 0, len(raw))
	for _, pair := range raw {
		ref, err := model.NewReference(pair[0], pair[1])
		if err != nil {
			dropped++
			continue
		}
		refs = append(refs, ref)
	}

	switch {
	case len(refs) == 0 && dropped > 0:
		return refs, dropped, FieldDropped
	case len(refs) == 0:
		return refs, 0, FieldDefaulted
	default:
		return refs, dropped, FieldUsed
	}
}

func splitReferenceLine(line string) [2]string {
	for _, sep := range []string{" - ", " | "} {
		if title, url, ok := strings.Cut(line, sep); ok {
			return [2]string{strings.TrimSpace(title), strings.TrimSpace(url)}
		}
	}
	return [2]string{line, ""}
}

// firstString returns the first non-empty string value among keys.
func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// normalizeTiming keeps finite non-negative numbers. Anything else becomes 0.
func normalizeTiming(v any) (float64, FieldStatus) {
	if v == nil {
		return 0, FieldDefaulted
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, FieldDefaulted
	}
	return f, FieldUsed
}
