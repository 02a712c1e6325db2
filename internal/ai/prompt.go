package ai

import (
	"encoding/json"
	"fmt"
)

const promptInstructions = "You are a data assistant that helps answer questions based on the system's data. " +
	"Produce a concise answer suitable for voice (1-2 sentences). If the question requires reasoning, " +
	"include a short explanation in the 'explanation' field. Return output as JSON with keys: " +
	"'answer' (string), 'explanation' (optional string), 'used_data' (optional summary)."

const promptExample = `Example JSON output: {"answer": "There are 12 active customers.", "explanation": "Counted active customers from CRM."}`

// BuildPrompt concatenates the fixed instruction block, the classified
// query facts, and the per-request data context snapshot.
func BuildPrompt(query, queryType string, confidence float64, params map[string]string, dataContext string) string {
	return fmt.Sprintf(`%s

User Query: %s

Extracted Parameters: %v
Query Type: %s
Confidence: %.2f

Data Context (summary):
%s

If you cannot answer from available data, say so and suggest which endpoints or filters to use.

%s

Provide only JSON in your final response when possible.
`, promptInstructions, query, params, queryType, confidence, dataContext, promptExample)
}

// Answer is the two-branch parse of a backend reply: structured JSON
// with answer/explanation/used_data, or the raw text as a whole.
type Answer struct {
	Structured  bool
	Text        string
	Explanation string
	UsedData    any
}

// ParseAnswer tries the structured branch first; anything that is not a
// JSON object falls back to raw text.
func ParseAnswer(response string) Answer {
	var parsed map[string]any
	if err := json.Unmarshal([]byte(response), &parsed); err != nil || parsed == nil {
		return Answer{Text: response}
	}

	a := Answer{Structured: true, Text: response}
	if s, ok := parsed["answer"].(string); ok && s != "" {
		a.Text = s
	} else if s, ok := parsed["message"].(string); ok && s != "" {
		a.Text = s
	}
	if s, ok := parsed["explanation"].(string); ok {
		a.Explanation = s
	}
	a.UsedData = parsed["used_data"]
	return a
}
