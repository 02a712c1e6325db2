package query

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"github.com/universal-data-connector/backend/internal/ai"
	"github.com/universal-data-connector/backend/internal/connector"
	"github.com/universal-data-connector/backend/internal/models"
	"github.com/universal-data-connector/backend/internal/voice"
)

const defaultTrendMetric = "daily_active_users"

// Executor routes a classified query to a local handler or the LLM path.
// All collaborators are injected; the zero value is not usable.
type Executor struct {
	Customers connector.CustomerProvider
	Tickets   connector.TicketProvider
	Metrics   connector.MetricProvider
	Gateway   ai.Gateway // nil when the LLM path is disabled
	Logger    zerolog.Logger
}

// Execute classifies text and resolves it to an ExecutionResult. It never
// returns an error: every failure path yields a well-formed envelope.
//
// Decision table, top-down:
//  1. customer-list query carrying both ticket filters -> relationship
//     join, resolved locally regardless of tier
//  2. requires_llm and complex     -> LLM path
//  3. simple or moderate           -> local handler
//  4. otherwise (defensive)        -> local first; on zero records retry
//     via LLM when a backend is configured
func (e *Executor) Execute(ctx context.Context, text string) models.ExecutionResult {
	q := Classify(text)
	e.Logger.Debug().
		Str("query_type", string(q.Type)).
		Str("complexity", string(q.Complexity)).
		Bool("requires_llm", q.RequiresLLM).
		Msg("query classified")

	switch {
	case q.Type == ListCustomers && q.Parameters.Priority != "" && q.Parameters.TicketStatus != "":
		return e.joinCustomersByTickets(ctx, q)
	case q.RequiresLLM && q.Complexity == Complex:
		return e.executeComplex(ctx, q)
	case q.Complexity == Simple || q.Complexity == Moderate:
		return e.executeLocal(ctx, q)
	default:
		result := e.executeLocal(ctx, q)
		if result.Count == 0 && e.Gateway != nil {
			e.Logger.Debug().Msg("no local data, retrying via llm")
			return e.executeComplex(ctx, q)
		}
		return result
	}
}

// executeLocal dispatches over the closed QueryType set. Every variant
// has an explicit arm; the totality of this switch is asserted in tests.
func (e *Executor) executeLocal(ctx context.Context, q ParsedQuery) models.ExecutionResult {
	switch q.Type {
	case ListCustomers:
		return e.listCustomers(ctx, q)
	case CustomerCount:
		return e.customerCount(ctx, q)
	case CustomerSummary:
		return e.customerSummary(ctx, q)
	case ListTickets:
		return e.listTickets(ctx, q)
	case TicketCount:
		return e.ticketCount(ctx, q)
	case TicketSummary:
		return e.ticketSummary(ctx, q)
	case ListMetrics:
		return e.listMetrics(ctx, q)
	case MetricTrend:
		return e.metricTrend(ctx, q)
	case ComplexAnalysis, Unknown:
		return buildError(q, "Could not understand query type")
	}
	return buildError(q, "Could not understand query type")
}

func (e *Executor) listCustomers(ctx context.Context, q ParsedQuery) models.ExecutionResult {
	// Relationship query: customers filtered by ticket attributes,
	// resolved via equi-join on the customer foreign key.
	if q.Parameters.Priority != "" && q.Parameters.TicketStatus != "" {
		return e.joinCustomersByTickets(ctx, q)
	}

	filters := connector.Filters{}
	if q.Parameters.CustomerStatus != "" {
		filters["status"] = q.Parameters.CustomerStatus
	}
	customers, err := e.Customers.FetchCustomers(ctx, filters, q.Limit)
	if err != nil {
		return e.providerError(q, err)
	}
	return buildSuccess(q, toAny(customers), fmt.Sprintf("Found %d customer(s)", len(customers)))
}

// joinCustomersByTickets resolves "customers with <priority> <status>
// tickets": fetch qualifying tickets, collect the distinct customer keys,
// intersect with the full customer set, then apply the requested limit.
// O(n+m); the two snapshots are not transactionally consistent.
func (e *Executor) joinCustomersByTickets(ctx context.Context, q ParsedQuery) models.ExecutionResult {
	tickets, err := e.Tickets.FetchTickets(ctx, connector.Filters{
		"status":   q.Parameters.TicketStatus,
		"priority": q.Parameters.Priority,
	}, connector.AllRecords)
	if err != nil {
		return e.providerError(q, err)
	}

	customerIDs := make(map[int]struct{}, len(tickets))
	for _, t := range tickets {
		customerIDs[t.CustomerID] = struct{}{}
	}
	if len(customerIDs) == 0 {
		return buildSuccess(q, []any{}, "Found 0 customers matching the ticket filters")
	}

	customers, err := e.Customers.FetchCustomers(ctx, connector.Filters{}, connector.AllRecords)
	if err != nil {
		return e.providerError(q, err)
	}

	matched := make([]models.Customer, 0, len(customerIDs))
	for _, c := range customers {
		if _, ok := customerIDs[c.CustomerID]; ok {
			matched = append(matched, c)
		}
	}
	if len(matched) == 0 {
		return buildSuccess(q, []any{}, "Found 0 customers matching the ticket filters")
	}

	// The limit applies to the intersection, not to either input.
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return buildSuccess(q, toAny(matched), fmt.Sprintf("Found %d customer(s) matching ticket filters", len(matched)))
}

func (e *Executor) customerCount(ctx context.Context, q ParsedQuery) models.ExecutionResult {
	customers, err := e.Customers.FetchCustomers(ctx, connector.Filters{}, connector.AllRecords)
	if err != nil {
		return e.providerError(q, err)
	}
	if status := q.Parameters.CustomerStatus; status != "" {
		count := 0
		for _, c := range customers {
			if strings.EqualFold(c.Status, status) {
				count++
			}
		}
		return buildSuccess(q,
			[]any{map[string]any{"count": count, "status": status}},
			fmt.Sprintf("Total %s customers: %d", status, count))
	}
	return buildSuccess(q,
		[]any{map[string]any{"count": len(customers)}},
		fmt.Sprintf("Total customers: %d", len(customers)))
}

func (e *Executor) customerSummary(ctx context.Context, q ParsedQuery) models.ExecutionResult {
	customers, err := e.Customers.FetchCustomers(ctx, connector.Filters{}, connector.AllRecords)
	if err != nil {
		return e.providerError(q, err)
	}
	breakdown := voice.StatusBreakdown(customers)
	active, inactive := breakdown["active"], breakdown["inactive"]
	activePct := 0.0
	if len(customers) > 0 {
		activePct = math.Round(float64(active)/float64(len(customers))*1000) / 10
	}
	return buildSuccess(q,
		[]any{map[string]any{
			"total":             len(customers),
			"active":            active,
			"inactive":          inactive,
			"active_percentage": activePct,
		}},
		fmt.Sprintf("Customer Summary: %d active, %d inactive", active, inactive))
}

func (e *Executor) listTickets(ctx context.Context, q ParsedQuery) models.ExecutionResult {
	filters := connector.Filters{}
	if q.Parameters.TicketStatus != "" {
		filters["status"] = q.Parameters.TicketStatus
	}
	if q.Parameters.Priority != "" {
		filters["priority"] = q.Parameters.Priority
	}
	tickets, err := e.Tickets.FetchTickets(ctx, filters, q.Limit)
	if err != nil {
		return e.providerError(q, err)
	}
	return buildSuccess(q, toAny(tickets), fmt.Sprintf("Found %d ticket(s)", len(tickets)))
}

func (e *Executor) ticketCount(ctx context.Context, q ParsedQuery) models.ExecutionResult {
	tickets, err := e.Tickets.FetchTickets(ctx, connector.Filters{}, connector.AllRecords)
	if err != nil {
		return e.providerError(q, err)
	}
	if status := q.Parameters.TicketStatus; status != "" {
		count := 0
		for _, t := range tickets {
			if strings.EqualFold(t.Status, status) {
				count++
			}
		}
		return buildSuccess(q,
			[]any{map[string]any{"count": count, "status": status}},
			fmt.Sprintf("Total %s tickets: %d", status, count))
	}
	return buildSuccess(q,
		[]any{map[string]any{"count": len(tickets)}},
		fmt.Sprintf("Total tickets: %d", len(tickets)))
}

func (e *Executor) ticketSummary(ctx context.Context, q ParsedQuery) models.ExecutionResult {
	tickets, err := e.Tickets.FetchTickets(ctx, connector.Filters{}, connector.AllRecords)
	if err != nil {
		return e.providerError(q, err)
	}
	open, closed := 0, 0
	for _, t := range tickets {
		switch t.Status {
		case "open":
			open++
		case "closed":
			closed++
		}
	}
	return buildSuccess(q,
		[]any{map[string]any{
			"total":              len(tickets),
			"open":               open,
			"closed":             closed,
			"priority_breakdown": voice.PriorityBreakdown(tickets),
		}},
		fmt.Sprintf("Ticket Summary: %d open, %d closed", open, closed))
}

func (e *Executor) listMetrics(ctx context.Context, q ParsedQuery) models.ExecutionResult {
	filters := connector.Filters{}
	if q.Parameters.Metric != "" {
		filters["metric"] = q.Parameters.Metric
	}
	points, err := e.Metrics.FetchMetrics(ctx, filters, q.Limit)
	if err != nil {
		return e.providerError(q, err)
	}
	return buildSuccess(q, toAny(points), fmt.Sprintf("Found %d metric(s)", len(points)))
}

func (e *Executor) metricTrend(ctx context.Context, q ParsedQuery) models.ExecutionResult {
	metric := q.Parameters.Metric
	if metric == "" {
		metric = defaultTrendMetric
	}
	points, err := e.Metrics.FetchMetrics(ctx, connector.Filters{"metric": metric}, 7)
	if err != nil {
		return e.providerError(q, err)
	}
	if len(points) < 2 {
		// Insufficient data is absence of a trend, not an error.
		return buildSuccess(q, toAny(points), "Not enough data for trend analysis")
	}

	trend := voice.Trend(points)
	latest := points[0]
	row := map[string]any{
		"metric":       latest.Metric,
		"latest_value": latest.Value,
		"latest_date":  latest.Date,
		"data_points":  len(points),
	}
	if trend != "" {
		row["trend"] = trend
	}
	return buildSuccess(q, []any{row},
		fmt.Sprintf("Metric: %s - Latest: %v - Trend: %s", latest.Metric, latest.Value, trend))
}

func (e *Executor) executeComplex(ctx context.Context, q ParsedQuery) models.ExecutionResult {
	if e.Gateway == nil {
		e.Logger.Warn().Msg("llm path needed but no backend configured")
		return buildFallbackToManual(q)
	}

	dataContext := e.buildDataContext(ctx)
	prompt := ai.BuildPrompt(q.RawText, string(q.Type), q.Confidence, q.Parameters.Map(), dataContext)

	rec := e.Gateway.Query(ctx, prompt)
	if rec.Status != ai.CallSuccess {
		return buildLLMFailure(q, rec)
	}

	answer := ai.ParseAnswer(rec.Response)
	e.Logger.Info().Int("tokens", rec.Tokens.Total).Str("model", rec.Model).Msg("llm analysis successful")
	return buildLLMSuccess(q, answer, rec)
}

// buildDataContext aggregates counts and breakdowns across all three
// domains into the textual snapshot the prompt carries. Computed fresh
// per complex-path request.
func (e *Executor) buildDataContext(ctx context.Context) string {
	customers, errC := e.Customers.FetchCustomers(ctx, connector.Filters{}, connector.AllRecords)
	tickets, errT := e.Tickets.FetchTickets(ctx, connector.Filters{}, connector.AllRecords)
	points, errM := e.Metrics.FetchMetrics(ctx, connector.Filters{}, connector.AllRecords)
	if errC != nil || errT != nil || errM != nil {
		e.Logger.Warn().Msg("could not build data context")
		return "Data unavailable"
	}

	statusCounts := voice.StatusBreakdown(customers)
	priorityCounts := voice.PriorityBreakdown(tickets)
	open, closed := 0, 0
	for _, t := range tickets {
		switch t.Status {
		case "open":
			open++
		case "closed":
			closed++
		}
	}

	samples := make([]string, 0, 3)
	for i, c := range customers {
		if i == 3 {
			break
		}
		samples = append(samples, fmt.Sprintf("%d (%s)", c.CustomerID, c.Status))
	}

	latest := "No data"
	trend := "N/A"
	if len(points) > 0 {
		latest = fmt.Sprintf("%s=%v on %s", points[0].Metric, points[0].Value, points[0].Date)
		if t := voice.Trend(points); t != "" {
			trend = t
		}
	}

	return fmt.Sprintf(`** CUSTOMERS **
Total: %d
- Active: %d
- Inactive: %d
Sample: %s

** SUPPORT TICKETS **
Total: %d
- Open: %d
- Closed: %d
Priority: High=%d, Medium=%d, Low=%d

** ANALYTICS **
Latest: %s
Trend: %s
`,
		len(customers), statusCounts["active"], statusCounts["inactive"], strings.Join(samples, ", "),
		len(tickets), open, closed,
		priorityCounts["high"], priorityCounts["medium"], priorityCounts["low"],
		latest, trend)
}

func (e *Executor) providerError(q ParsedQuery, err error) models.ExecutionResult {
	e.Logger.Error().Err(err).Str("query_type", string(q.Type)).Msg("local handler failed")
	return buildError(q, err.Error())
}

func toAny[T any](items []T) []any {
	out := make([]any, 0, len(items))
	for _, item := range items {
		out = append(out, item)
	}
	return out
}
