// Package reconcile turns free-form model output into a validated analysis result. It never
// fails: every problem degrades to an UNVERIFIABLE result with a fixed explanation.
package reconcile

import (
	"github.com/agenthands/truthseeker/internal/core/model"
)

const (
	msgNoJSON      = "Could not parse model output into structured JSON. Raw output preserved."
	msgUndecodable = "Failed to decode JSON from model output."
	msgInvalid     = "Model output could not be validated into the required schema."
	msgParsePanic  = "Unexpected error while parsing model output."
)

func Parse(text string) model.AnalysisResult {
	result, _ := ParseWithDiagnostics(text)
	return result
}

func ParseWithDiagnostics(text string) (result model.AnalysisResult, diag Diagnostics) {
	defer func() {
		if r := recover(); r != nil {
			result = model.Unverifiable(msgParsePanic)
			diag.Fallback = msgParsePanic
		}
	}()

	obj, outcome := Extract(text)
	switch outcome {
	case NoObject:
		return fallback(outcome, msgNoJSON)
	case Undecodable:
		return fallback(outcome, msgUndecodable)
	}

	fields, diag := Normalize(obj)
	diag.Outcome = outcome

	result, err := model.NewAnalysisResult(
		fields.Verdict,
		fields.Explanation,
		fields.Context,
		fields.References,
		fields.SearchTime,
		fields.AnalysisTime,
	)
	if err != nil {
		diag.Fallback = msgInvalid
		return model.Unverifiable(msgInvalid), diag
	}
	return result, diag
}

func fallback(outcome ExtractOutcome, msg string) (model.AnalysisResult, Diagnostics) {
	return model.Unverifiable(msg), Diagnostics{Outcome: outcome, Fallback: msg}
}
