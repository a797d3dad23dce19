package reconcile

import (
	"encoding/json"
	"strings"
)

// ExtractOutcome describes how the first JSON object was recovered from model text.
type ExtractOutcome int

const (
	// Extracted means a candidate decoded as-is.
	Extracted ExtractOutcome = iota
	// Repaired means a candidate decoded only after single quotes were turned into double quotes.
	Repaired
	// NoObject means no JSON object could be found in the text.
	NoObject
	// Undecodable means the single-quote repair was attempted and still nothing decoded.
	Undecodable
)

func (o ExtractOutcome) String() string {
	switch o {
	case Extracted:
		return "extracted"
	case Repaired:
		return "repaired"
	case NoObject:
		return "no_object"
	default:
		return "undecodable"
	}
}

// Extract returns the first JSON object embedded in text. Prose before and after the object is
// ignored and braces inside JSON strings are handled by the decoder.
func Extract(text string) (map[string]any, ExtractOutcome) {
	if !strings.Contains(text, "{") {
		return nil, NoObject
	}
	if obj, ok := firstObject(text); ok {
		return obj, Extracted
	}
	if !strings.Contains(text, "'") {
		return nil, NoObject
	}
	if obj, ok := firstObject(strings.ReplaceAll(text, "'", `"`)); ok {
		return obj, Repaired
	}
	return nil, Undecodable
}

// firstObject tries each '{' in turn and decodes a single value starting there.
func firstObject(text string) (map[string]any, bool) {
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(text[i:]))
		var obj map[string]any
		if err := dec.Decode(&obj); err == nil && obj != nil {
			return obj, true
		}
	}
	return nil, false
}
