package ai

import (
	"context"
	"sync"
	"time"
)

// Gateway is the generative backend behind complex queries. Query never
// returns a Go error: failures resolve to an error CallRecord so callers
// always get a well-formed envelope.
type Gateway interface {
	Query(ctx context.Context, prompt string) CallRecord
	ModelName() string
	UsageStats() UsageStats
}

const (
	CallSuccess = "success"
	CallError   = "error"
)

type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Total  int `json:"total"`
}

type CostBreakdown struct {
	InputCost  float64 `json:"input_cost"`
	OutputCost float64 `json:"output_cost"`
	TotalCost  float64 `json:"total_cost"`
}

// CallRecord is one entry of the call-history log.
type CallRecord struct {
	Status    string        `json:"status"`
	Response  string        `json:"response,omitempty"`
	Model     string        `json:"model"`
	Tokens    TokenUsage    `json:"tokens"`
	Costs     CostBreakdown `json:"costs"`
	Message   string        `json:"message,omitempty"`
	ErrorType string        `json:"error_type,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

type UsageStats struct {
	TotalCalls           int          `json:"total_calls"`
	Model                string       `json:"model"`
	TotalTokens          int          `json:"total_tokens"`
	TotalCost            float64      `json:"total_cost"`
	Currency             string       `json:"currency"`
	AverageTokensPerCall float64      `json:"average_tokens_per_call"`
	Calls                []CallRecord `json:"calls"`
}

// History is the append-only call log. Appends are safe for concurrent
// use; entries are never mutated or pruned within the process lifetime.
type History struct {
	mu    sync.Mutex
	calls []CallRecord
}

func (h *History) Append(r CallRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, r)
}

func (h *History) Stats(model string) UsageStats {
	h.mu.Lock()
	calls := make([]CallRecord, len(h.calls))
	copy(calls, h.calls)
	h.mu.Unlock()

	totalTokens := 0
	totalCost := 0.0
	for _, c := range calls {
		totalTokens += c.Tokens.Total
		totalCost += c.Costs.TotalCost
	}
	stats := UsageStats{
		TotalCalls:  len(calls),
		Model:       model,
		TotalTokens: totalTokens,
		TotalCost:   totalCost,
		Currency:    "USD",
		Calls:       calls,
	}
	if len(calls) > 0 {
		stats.AverageTokensPerCall = float64(totalTokens) / float64(len(calls))
	}
	return stats
}

// estimateTokens approximates token usage from word counts when the
// backend reports no usage metadata.
func estimateTokens(text string, factor float64) int {
	words := 0
	inWord := false
	for _, r := range text {
		if r == ' ' || r == '\n' || r == '\t' {
			inWord = false
			continue
		}
		if !inWord {
			words++
			inWord = true
		}
	}
	return int(float64(words) * factor)
}
