package models

// Customer is a CRM record. Dates are kept as ISO-8601 strings so
// newest-first ordering is a plain lexicographic sort, matching the
// stored JSON.
type Customer struct {
	CustomerID int     `json:"customer_id"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	CreatedAt  string  `json:"created_at"`
	Status     string  `json:"status"`
	Tier       string  `json:"tier,omitempty"`
	TotalSpent float64 `json:"total_spent,omitempty"`
}

// Ticket is a support ticket. CustomerID is the foreign key used by the
// relationship join.
type Ticket struct {
	TicketID   int    `json:"ticket_id"`
	CustomerID int    `json:"customer_id"`
	Subject    string `json:"subject"`
	Priority   string `json:"priority"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at"`
	ResolvedAt string `json:"resolved_at,omitempty"`
}

// MetricPoint is one time-series sample.
type MetricPoint struct {
	Metric string  `json:"metric"`
	Date   string  `json:"date"`
	Value  float64 `json:"value"`
}

// ExecutionResult is the uniform envelope returned for every query,
// whichever path (local, LLM, degraded) produced it.
type ExecutionResult struct {
	Status       string            `json:"status"`
	Query        string            `json:"query"`
	QueryType    string            `json:"query_type"`
	Complexity   string            `json:"complexity"`
	Message      string            `json:"message"`
	ResponseType string            `json:"response_type"`
	UsedLLM      bool              `json:"used_llm"`
	Data         []any             `json:"data"`
	Count        int               `json:"count"`
	Confidence   float64           `json:"confidence"`
	Metadata     map[string]any    `json:"metadata,omitempty"`
	Fallback     *FallbackInfo     `json:"fallback,omitempty"`
	Instructions *InstructionsInfo `json:"instructions,omitempty"`
}

const (
	ResultSuccess          = "success"
	ResultError            = "error"
	ResultFallbackToManual = "fallback_to_manual"
)

// FallbackInfo tells the caller what to do when local execution failed.
type FallbackInfo struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

// InstructionsInfo carries remediation steps when the LLM path was needed
// but no backend is configured.
type InstructionsInfo struct {
	Action string   `json:"action"`
	Steps  []string `json:"steps"`
}
