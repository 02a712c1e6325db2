// Package query implements the natural-language decision pipeline:
// intent classification, complexity scoring, local resolution with a
// cross-domain relationship join, and fallback orchestration to a
// generative backend.
package query

import (
	"regexp"
	"strconv"
	"strings"
)

// QueryType is the closed set of classified intents.
type QueryType string

const (
	ListCustomers   QueryType = "list_customers"
	ListTickets     QueryType = "list_tickets"
	ListMetrics     QueryType = "list_metrics"
	CustomerCount   QueryType = "customer_count"
	TicketCount     QueryType = "ticket_count"
	TicketSummary   QueryType = "ticket_summary"
	CustomerSummary QueryType = "customer_summary"
	MetricTrend     QueryType = "metric_trend"
	ComplexAnalysis QueryType = "complex_analysis"
	Unknown         QueryType = "unknown"
)

// AllQueryTypes enumerates the closed set so dispatch totality can be
// checked in tests.
var AllQueryTypes = []QueryType{
	ListCustomers, ListTickets, ListMetrics,
	CustomerCount, TicketCount,
	TicketSummary, CustomerSummary,
	MetricTrend, ComplexAnalysis, Unknown,
}

// Complexity decides local-vs-LLM routing.
type Complexity string

const (
	Simple   Complexity = "simple"
	Moderate Complexity = "moderate"
	Complex  Complexity = "complex"
)

// Parameters are the typed per-domain filters extracted from the query
// text. Customer and ticket statuses come from separate tables so a
// query naming both ("active customers with open tickets") keeps both.
type Parameters struct {
	CustomerStatus string `json:"customer_status,omitempty"`
	TicketStatus   string `json:"ticket_status,omitempty"`
	Priority       string `json:"priority,omitempty"`
	Metric         string `json:"metric,omitempty"`
}

// Map flattens the parameters for result metadata and prompt context.
// "status" carries the customer status when one was extracted, else the
// ticket status; when both are present the ticket status is also kept
// under its own key.
func (p Parameters) Map() map[string]string {
	m := map[string]string{}
	switch {
	case p.CustomerStatus != "":
		m["status"] = p.CustomerStatus
		if p.TicketStatus != "" {
			m["ticket_status"] = p.TicketStatus
		}
	case p.TicketStatus != "":
		m["status"] = p.TicketStatus
	}
	if p.Priority != "" {
		m["priority"] = p.Priority
	}
	if p.Metric != "" {
		m["metric"] = p.Metric
	}
	return m
}

// ParsedQuery is the immutable classification result consumed by the
// executor.
type ParsedQuery struct {
	RawText        string
	NormalizedText string
	Type           QueryType
	Complexity     Complexity
	Parameters     Parameters
	Limit          int
	RequiresLLM    bool
	Confidence     float64
}

// DefaultLimit applies when the text carries no explicit result count.
const DefaultLimit = 10

// Keyword tables. Membership is substring membership over the normalized
// text, and table order is the documented precedence: domains are tested
// customers, then tickets, then metrics; within the ordered value tables,
// the first match wins. This first-match precedence is the contract —
// e.g. "inactive" matches the "active" status entry first — and must be
// preserved, not fixed.
var (
	customerKeywords = []string{"customer", "client", "account", "user", "users"}
	ticketKeywords   = []string{"ticket", "issue", "problem", "support", "help"}
	metricKeywords   = []string{"metric", "analytics", "data", "active", "performance", "trend"}

	countPhrases = []string{"count", "how many", "no. of", "no of", "number of"}

	relationshipMarkers = []string{"whose", "that have", "having", "with", "which have", "who have"}

	conversationalMarkers = []string{
		"how are you", "hello", "hi ", "bye", "thanks", "help with",
		"what is", "who is", "explain", "tell me about", "general",
		"best practice", "advice", "opinion", "recommend",
	}
)

type keywordMapping struct {
	keyword   string
	canonical string
}

var customerStatusTable = []keywordMapping{
	{"active", "active"},
	{"inactive", "inactive"},
}

var ticketStatusTable = []keywordMapping{
	{"open", "open"},
	{"closed", "closed"},
}

var priorityTable = []keywordMapping{
	{"high", "high"},
	{"critical", "high"},
	{"urgent", "high"},
	{"medium", "medium"},
	{"low", "low"},
	{"minor", "low"},
}

var numberWords = []keywordMapping{
	{"one", "1"},
	{"two", "2"},
	{"three", "3"},
	{"four", "4"},
	{"five", "5"},
	{"ten", "10"},
	{"few", "5"},
	{"several", "5"},
}

var limitPattern = regexp.MustCompile(`(?:top|first|show me|give me|list)\s+(\d+)`)

// Classify maps raw text to a ParsedQuery. It is deterministic and has
// no side effects: the same text always yields the same result.
func Classify(text string) ParsedQuery {
	norm := strings.ToLower(strings.TrimSpace(text))

	qt := detectType(norm)
	params := extractParameters(norm)
	limit := extractLimit(norm)
	cx := determineComplexity(qt, norm)

	// Ticket-level priority plus an open/closed ticket status signals a
	// cross-entity filter.
	if params.Priority != "" && params.TicketStatus != "" {
		cx = Complex
	}

	// Two or more domains plus relationship wording needs reasoning
	// across sources.
	if domainHits(norm) >= 2 && containsAny(norm, relationshipMarkers) {
		cx = Complex
	}

	return ParsedQuery{
		RawText:        text,
		NormalizedText: norm,
		Type:           qt,
		Complexity:     cx,
		Parameters:     params,
		Limit:          limit,
		RequiresLLM:    cx == Complex,
		Confidence:     confidenceFor(qt),
	}
}

func detectType(norm string) QueryType {
	if containsAny(norm, customerKeywords) {
		if containsAny(norm, countPhrases) {
			return CustomerCount
		}
		if strings.Contains(norm, "summary") || strings.Contains(norm, "overview") {
			return CustomerSummary
		}
		return ListCustomers
	}

	if containsAny(norm, ticketKeywords) {
		if containsAny(norm, countPhrases) {
			return TicketCount
		}
		if strings.Contains(norm, "summary") || strings.Contains(norm, "overview") || strings.Contains(norm, "breakdown") {
			return TicketSummary
		}
		return ListTickets
	}

	if containsAny(norm, metricKeywords) {
		if strings.Contains(norm, "trend") || strings.Contains(norm, "change") || strings.Contains(norm, "growth") {
			return MetricTrend
		}
		return ListMetrics
	}

	return Unknown
}

func extractParameters(norm string) Parameters {
	var p Parameters
	for _, kv := range customerStatusTable {
		if strings.Contains(norm, kv.keyword) {
			p.CustomerStatus = kv.canonical
			break
		}
	}
	for _, kv := range ticketStatusTable {
		if strings.Contains(norm, kv.keyword) {
			p.TicketStatus = kv.canonical
			break
		}
	}
	for _, kv := range priorityTable {
		if strings.Contains(norm, kv.keyword) {
			p.Priority = kv.canonical
			break
		}
	}
	if strings.Contains(norm, "daily") && strings.Contains(norm, "user") {
		p.Metric = "daily_active_users"
	}
	return p
}

func extractLimit(norm string) int {
	if m := limitPattern.FindStringSubmatch(norm); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	for _, kv := range numberWords {
		if strings.Contains(norm, kv.keyword) {
			n, _ := strconv.Atoi(kv.canonical)
			return n
		}
	}
	return DefaultLimit
}

func determineComplexity(qt QueryType, norm string) Complexity {
	switch qt {
	case ListCustomers, ListTickets, ListMetrics, CustomerCount, TicketCount:
		return Simple
	case CustomerSummary, TicketSummary, MetricTrend:
		return Moderate
	case ComplexAnalysis:
		return Complex
	case Unknown:
		// Conversational questions go straight to the LLM; anything
		// else gets a local attempt first.
		if containsAny(norm, conversationalMarkers) {
			return Complex
		}
		return Moderate
	}
	return Simple
}

func confidenceFor(qt QueryType) float64 {
	switch qt {
	case Unknown:
		return 0.3
	case ListCustomers, ListTickets, ListMetrics:
		return 0.9
	default:
		return 0.7
	}
}

func domainHits(norm string) int {
	hits := 0
	for _, set := range [][]string{customerKeywords, ticketKeywords, metricKeywords} {
		if containsAny(norm, set) {
			hits++
		}
	}
	return hits
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
