package factcheck

import (
	"github.com/agenthands/truthseeker/internal/core/agent"
	"github.com/agenthands/truthseeker/internal/llm"
)

const systemPrompt = `You are an expert fact-checker. Your task is to analyze statements and determine their truthfulness.

When a user provides a statement to fact-check:
1. Use the brave_search function to search for evidence and information about the statement
2. Analyze the search results carefully
3. Return a single valid JSON object (only JSON) that conforms to the following schema:

{
  "verdict": "TRUE|MOSTLY_TRUE|PARTIALLY_TRUE|MOSTLY_FALSE|FALSE|UNVERIFIABLE",
  "explanation": "A detailed explanation with inline citation markers like [1], [2], ... referencing the search results",
  "context": "Optional additional context or nuance",
  "references": [
    { "title": "Source title", "url": "https://..." },
    ...
  ],
  "search_time": 0.0,
  "analysis_time": 0.0
}

- Only return JSON (no surrounding text)
- Use standard HTTP/HTTPS URLs for references from the search results
- Base your verdict on the evidence found in the search results
- If insufficient evidence is found, use UNVERIFIABLE verdict
`

func userPrompt(statement string) string {
	return "Please fact-check this statement: " + statement
}

var searchToolSpec = llm.ToolSpec{
	Name: agent.WebSearchToolName,
	Description: "Search the web using Brave Search to find evidence and information about a statement or claim. " +
		"Use this when you need to fact-check a statement by finding relevant sources and evidence.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "The search query to find information about the statement. Include key facts or claims from the statement in the query.",
			},
			"count": map[string]any{
				"type":        "integer",
				"description": "Number of search results to return. Default is 5.",
				"default":     5,
				"minimum":     1,
				"maximum":     10,
			},
		},
		"required": []string{"query"},
	},
}
