package query

import (
	"fmt"

	"github.com/universal-data-connector/backend/internal/ai"
	"github.com/universal-data-connector/backend/internal/models"
)

// The three builders produce one shared envelope. Classification facts
// (query, query_type, complexity, confidence) are populated on every
// path so callers can introspect them even on failure.

func buildSuccess(q ParsedQuery, data []any, message string) models.ExecutionResult {
	return models.ExecutionResult{
		Status:       models.ResultSuccess,
		Query:        q.RawText,
		QueryType:    string(q.Type),
		Complexity:   string(q.Complexity),
		Message:      message,
		ResponseType: "simple",
		UsedLLM:      false,
		Data:         data,
		Count:        len(data),
		Confidence:   q.Confidence,
		Metadata: map[string]any{
			"extracted_params": q.Parameters.Map(),
			"query_limit":      q.Limit,
		},
	}
}

func buildError(q ParsedQuery, message string) models.ExecutionResult {
	return models.ExecutionResult{
		Status:       models.ResultError,
		Query:        q.RawText,
		QueryType:    string(q.Type),
		Complexity:   string(q.Complexity),
		Message:      message,
		ResponseType: "error",
		UsedLLM:      false,
		Data:         []any{},
		Count:        0,
		Confidence:   q.Confidence,
		Fallback: &models.FallbackInfo{
			Action: "ROUTE_TO_LLM",
			Reason: "Could not execute with built-in functions",
		},
	}
}

func buildLLMSuccess(q ParsedQuery, answer ai.Answer, rec ai.CallRecord) models.ExecutionResult {
	return models.ExecutionResult{
		Status:       models.ResultSuccess,
		Query:        q.RawText,
		QueryType:    string(q.Type),
		Complexity:   string(q.Complexity),
		Message:      answer.Text,
		ResponseType: "llm_analysis",
		UsedLLM:      true,
		Data: []any{map[string]any{
			"analysis":    answer.Text,
			"explanation": answer.Explanation,
			"used_data":   answer.UsedData,
		}},
		Count:      1,
		Confidence: q.Confidence,
		Metadata: map[string]any{
			"llm_model":   rec.Model,
			"tokens_used": rec.Tokens.Total,
			"cost":        rec.Costs.TotalCost,
		},
	}
}

func buildLLMFailure(q ParsedQuery, rec ai.CallRecord) models.ExecutionResult {
	return models.ExecutionResult{
		Status:       models.ResultError,
		Query:        q.RawText,
		QueryType:    string(q.Type),
		Complexity:   string(q.Complexity),
		Message:      fmt.Sprintf("LLM error: %s", rec.Message),
		ResponseType: "error",
		UsedLLM:      true,
		Data:         []any{},
		Count:        0,
		Confidence:   q.Confidence,
		Fallback: &models.FallbackInfo{
			Action: "TRY_AGAIN_LATER",
			Reason: rec.Message,
		},
	}
}

func buildFallbackToManual(q ParsedQuery) models.ExecutionResult {
	return models.ExecutionResult{
		Status:       models.ResultFallbackToManual,
		Query:        q.RawText,
		QueryType:    string(q.Type),
		Complexity:   string(q.Complexity),
		Message:      "Complex query detected but no LLM backend is configured. Set LLM_BASE_URL in .env",
		ResponseType: "error",
		UsedLLM:      false,
		Data:         []any{},
		Count:        0,
		Confidence:   q.Confidence,
		Instructions: &models.InstructionsInfo{
			Action: "CONFIGURE_LLM",
			Steps: []string{
				"1. Point LLM_BASE_URL at an OpenAI-compatible endpoint",
				"2. Add to .env: LLM_API_KEY=your-key-here",
				"3. Restart the application",
				"4. Try the query again",
			},
		},
	}
}
