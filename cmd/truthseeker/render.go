package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/agenthands/truthseeker/internal/core/model"
	"github.com/charmbracelet/lipgloss"
)

type verdictStyle struct {
	color lipgloss.TerminalColor
	icon  string
	faint bool
}

var verdictStyles = map[model.Verdict]verdictStyle{
	model.VerdictTrue:          {color: lipgloss.ANSIColor(2), icon: "[OK]"},
	model.VerdictMostlyTrue:    {color: lipgloss.ANSIColor(10), icon: "[~]"},
	model.VerdictPartiallyTrue: {color: lipgloss.ANSIColor(3), icon: "[=]"},
	model.VerdictMostlyFalse:   {color: lipgloss.ANSIColor(9), icon: "[~]"},
	model.VerdictFalse:         {color: lipgloss.ANSIColor(1), icon: "[X]"},
	model.VerdictUnverifiable:  {color: lipgloss.ANSIColor(7), icon: "[?]", faint: true},
}

func styleFor(v model.Verdict) verdictStyle {
	if s, ok := verdictStyles[v]; ok {
		return s
	}
	return verdictStyle{color: lipgloss.ANSIColor(7), icon: "[?]"}
}

func errorStyle(w io.Writer) lipgloss.Style {
	return lipgloss.NewRenderer(w).NewStyle().Foreground(lipgloss.ANSIColor(1)).Bold(true)
}

func statusStyle(w io.Writer) lipgloss.Style {
	return lipgloss.NewRenderer(w).NewStyle().Foreground(lipgloss.ANSIColor(6))
}

func renderHeader(w io.Writer, statement string) {
	r := lipgloss.NewRenderer(w)
	box := r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.ANSIColor(6)).
		Padding(0, 1)
	title := r.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(6)).Render("Fact-Checking Statement")
	fmt.Fprintln(w, box.Render(title+"\n"+statement))
}

// renderResult prints a human-readable report. A non-empty statement is shown first, as in
// batch mode.
func renderResult(w io.Writer, statement string, result model.AnalysisResult) {
	r := lipgloss.NewRenderer(w)
	vs := styleFor(result.Verdict)

	bold := r.NewStyle().Bold(true)
	dim := r.NewStyle().Faint(true)
	verdict := r.NewStyle().Bold(true).Foreground(vs.color).Faint(vs.faint)
	box := r.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(vs.color).Padding(0, 2)

	var b strings.Builder
	if statement != "" {
		b.WriteString(bold.Render("Statement: ") + statement + "\n")
	}
	b.WriteString(box.Render(verdict.Render(vs.icon+" "+result.Verdict.Label())) + "\n\n")

	b.WriteString(bold.Render("Explanation") + "\n" + result.Explanation + "\n\n")

	if result.Context != nil && strings.TrimSpace(*result.Context) != "" {
		b.WriteString(bold.Render("Additional Context") + "\n" + *result.Context + "\n\n")
	}

	if len(result.References) > 0 {
		b.WriteString(bold.Render("References") + "\n")
		for i, ref := range result.References {
			fmt.Fprintf(&b, "%s %s\n    %s\n", dim.Render(fmt.Sprintf("%2d.", i+1)), ref.Title, dim.Render(ref.URL))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "%s  Search %.2fs  Analysis %.2fs  %s\n",
		bold.Render("Performance"), result.SearchTime, result.AnalysisTime,
		bold.Render(fmt.Sprintf("Total %.2fs", result.TotalTime())))

	fmt.Fprintln(w, b.String())
}

type jsonResult struct {
	model.AnalysisResult
	TotalTime float64 `json:"total_time"`
}

func toJSONResult(r model.AnalysisResult) jsonResult {
	return jsonResult{AnalysisResult: r, TotalTime: r.TotalTime()}
}

// writeJSON prints a single result as an object and a batch as an array.
func writeJSON(w io.Writer, v any) error {
	switch r := v.(type) {
	case model.AnalysisResult:
		v = toJSONResult(r)
	case []model.AnalysisResult:
		out := make([]jsonResult, len(r))
		for i := range r {
			out[i] = toJSONResult(r[i])
		}
		v = out
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
