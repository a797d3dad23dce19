package model

import "strings"

type Verdict string

const (
	VerdictTrue          Verdict = "TRUE"
	VerdictMostlyTrue    Verdict = "MOSTLY_TRUE"
	VerdictPartiallyTrue Verdict = "PARTIALLY_TRUE"
	VerdictMostlyFalse   Verdict = "MOSTLY_FALSE"
	VerdictFalse         Verdict = "FALSE"
	VerdictUnverifiable  Verdict = "UNVERIFIABLE"
)

// Verdicts lists every valid verdict, most truthful first.
var Verdicts = []Verdict{
	VerdictTrue,
	VerdictMostlyTrue,
	VerdictPartiallyTrue,
	VerdictMostlyFalse,
	VerdictFalse,
	VerdictUnverifiable,
}

func (v Verdict) Valid() bool {
	for _, known := range Verdicts {
		if v == known {
			return true
		}
	}
	return false
}

// Label renders the verdict for humans, e.g. MOSTLY_TRUE -> "Mostly True".
func (v Verdict) Label() string {
	words := strings.Split(strings.ToLower(string(v)), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// ParseVerdict folds case and spacing variants ("mostly true", " False ") onto the enum.
// Unknown values map to VerdictUnverifiable with ok == false.
func ParseVerdict(s string) (Verdict, bool) {
	v := Verdict(strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), " ", "_"))
	if v.Valid() {
		return v, true
	}
	return VerdictUnverifiable, false
}
