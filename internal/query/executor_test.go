package query

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/universal-data-connector/backend/internal/ai"
	"github.com/universal-data-connector/backend/internal/connector"
	"github.com/universal-data-connector/backend/internal/models"
)

// fakeStore backs all three provider interfaces and applies filters the
// way a real provider would.
type fakeStore struct {
	customers []models.Customer
	tickets   []models.Ticket
	metrics   []models.MetricPoint
	err       error
}

func (f *fakeStore) FetchCustomers(_ context.Context, filters connector.Filters, limit int) ([]models.Customer, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []models.Customer{}
	for _, c := range f.customers {
		if s, ok := filters["status"]; ok && !strings.EqualFold(c.Status, s) {
			continue
		}
		out = append(out, c)
	}
	return applyFakeLimit(out, limit), nil
}

func (f *fakeStore) FetchTickets(_ context.Context, filters connector.Filters, limit int) ([]models.Ticket, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []models.Ticket{}
	for _, t := range f.tickets {
		if s, ok := filters["status"]; ok && !strings.EqualFold(t.Status, s) {
			continue
		}
		if p, ok := filters["priority"]; ok && !strings.EqualFold(t.Priority, p) {
			continue
		}
		out = append(out, t)
	}
	return applyFakeLimit(out, limit), nil
}

func (f *fakeStore) FetchMetrics(_ context.Context, filters connector.Filters, limit int) ([]models.MetricPoint, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []models.MetricPoint{}
	for _, m := range f.metrics {
		if name, ok := filters["metric"]; ok && !strings.EqualFold(m.Metric, name) {
			continue
		}
		out = append(out, m)
	}
	return applyFakeLimit(out, limit), nil
}

func applyFakeLimit[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

// forbiddenGateway fails the test on any call.
type forbiddenGateway struct {
	t *testing.T
}

func (g forbiddenGateway) Query(context.Context, string) ai.CallRecord {
	g.t.Fatalf("LLM gateway invoked for a locally resolvable query")
	return ai.CallRecord{}
}

func (g forbiddenGateway) ModelName() string         { return "forbidden" }
func (g forbiddenGateway) UsageStats() ai.UsageStats { return ai.UsageStats{} }

// stubGateway returns a fixed record and counts calls.
type stubGateway struct {
	record ai.CallRecord
	calls  int
}

func (g *stubGateway) Query(context.Context, string) ai.CallRecord {
	g.calls++
	return g.record
}

func (g *stubGateway) ModelName() string         { return g.record.Model }
func (g *stubGateway) UsageStats() ai.UsageStats { return ai.UsageStats{} }

func newExecutor(store *fakeStore, gw ai.Gateway) *Executor {
	return &Executor{
		Customers: store,
		Tickets:   store,
		Metrics:   store,
		Gateway:   gw,
		Logger:    zerolog.Nop(),
	}
}

func TestExecuteRelationshipJoin(t *testing.T) {
	store := &fakeStore{
		customers: []models.Customer{
			{CustomerID: 1, Name: "Acme", Status: "active"},
			{CustomerID: 2, Name: "Globex", Status: "active"},
		},
		tickets: []models.Ticket{
			{TicketID: 10, CustomerID: 1, Status: "open", Priority: "high"},
			{TicketID: 11, CustomerID: 2, Status: "closed", Priority: "high"},
		},
	}
	e := newExecutor(store, forbiddenGateway{t})

	result := e.Execute(context.Background(), "active customers with open high priority tickets")
	if result.Status != models.ResultSuccess {
		t.Fatalf("expected success, got %s (%s)", result.Status, result.Message)
	}
	if result.UsedLLM {
		t.Fatalf("join must resolve locally")
	}
	if result.Count != 1 {
		t.Fatalf("expected 1 customer, got %d", result.Count)
	}
	c, ok := result.Data[0].(models.Customer)
	if !ok {
		t.Fatalf("expected a customer record, got %T", result.Data[0])
	}
	if c.CustomerID != 1 {
		t.Fatalf("expected customer_id 1, got %d", c.CustomerID)
	}
}

func TestExecuteRelationshipJoinEmptyIntersection(t *testing.T) {
	store := &fakeStore{
		customers: []models.Customer{{CustomerID: 1, Status: "active"}},
		tickets:   []models.Ticket{{TicketID: 10, CustomerID: 1, Status: "closed", Priority: "low"}},
	}
	e := newExecutor(store, nil)

	result := e.Execute(context.Background(), "customers with open high priority tickets")
	if result.Status != models.ResultSuccess {
		t.Fatalf("expected success, got %s", result.Status)
	}
	if result.Count != 0 {
		t.Fatalf("expected 0 customers, got %d", result.Count)
	}
	if result.Message != "Found 0 customers matching the ticket filters" {
		t.Fatalf("unexpected message: %q", result.Message)
	}
}

func TestExecuteRelationshipJoinLimitAfterIntersection(t *testing.T) {
	store := &fakeStore{
		customers: []models.Customer{
			{CustomerID: 1, Status: "active"},
			{CustomerID: 2, Status: "active"},
			{CustomerID: 3, Status: "inactive"},
		},
		tickets: []models.Ticket{
			{TicketID: 10, CustomerID: 1, Status: "open", Priority: "high"},
			{TicketID: 11, CustomerID: 2, Status: "open", Priority: "high"},
			{TicketID: 12, CustomerID: 3, Status: "open", Priority: "high"},
		},
	}
	e := newExecutor(store, nil)

	result := e.Execute(context.Background(), "top 2 customers with open high priority tickets")
	if result.Status != models.ResultSuccess {
		t.Fatalf("expected success, got %s", result.Status)
	}
	if result.Count != 2 {
		t.Fatalf("expected limit applied to intersection, got %d records", result.Count)
	}
}

func TestExecuteNeverUsesLLMForSimpleOrModerate(t *testing.T) {
	store := &fakeStore{
		customers: []models.Customer{{CustomerID: 1, Status: "active"}},
		tickets:   []models.Ticket{{TicketID: 10, CustomerID: 1, Status: "open", Priority: "low"}},
		metrics:   []models.MetricPoint{{Metric: "daily_active_users", Date: "2026-08-01", Value: 10}},
	}
	e := newExecutor(store, forbiddenGateway{t})

	queries := []string{
		"show me active customers",
		"how many open tickets",
		"customer summary",
		"ticket breakdown",
		"show analytics trend",
	}
	for _, text := range queries {
		result := e.Execute(context.Background(), text)
		if result.UsedLLM {
			t.Fatalf("%q: used_llm must be false, got result %+v", text, result)
		}
	}
}

func TestExecuteComplexWithoutGatewayFallsBackToManual(t *testing.T) {
	e := newExecutor(&fakeStore{}, nil)

	result := e.Execute(context.Background(), "hello, can you recommend something?")
	if result.Status != models.ResultFallbackToManual {
		t.Fatalf("expected %s, got %s", models.ResultFallbackToManual, result.Status)
	}
	if result.UsedLLM {
		t.Fatalf("expected used_llm=false")
	}
	if result.Instructions == nil || len(result.Instructions.Steps) == 0 {
		t.Fatalf("expected remediation steps, got %+v", result.Instructions)
	}
	if result.Instructions.Action != "CONFIGURE_LLM" {
		t.Fatalf("expected action CONFIGURE_LLM, got %q", result.Instructions.Action)
	}
}

func TestExecuteComplexViaGateway(t *testing.T) {
	gw := &stubGateway{record: ai.CallRecord{
		Status:   ai.CallSuccess,
		Response: `{"answer": "All good", "explanation": "checked the data", "used_data": true}`,
		Model:    "stub-model",
		Tokens:   ai.TokenUsage{Input: 10, Output: 5, Total: 15},
	}}
	e := newExecutor(&fakeStore{}, gw)

	result := e.Execute(context.Background(), "hello, can you recommend something?")
	if result.Status != models.ResultSuccess {
		t.Fatalf("expected success, got %s (%s)", result.Status, result.Message)
	}
	if !result.UsedLLM {
		t.Fatalf("expected used_llm=true")
	}
	if result.ResponseType != "llm_analysis" {
		t.Fatalf("expected response_type llm_analysis, got %q", result.ResponseType)
	}
	if result.Message != "All good" {
		t.Fatalf("expected parsed answer, got %q", result.Message)
	}
	if gw.calls != 1 {
		t.Fatalf("expected 1 gateway call, got %d", gw.calls)
	}
	if result.Metadata["llm_model"] != "stub-model" {
		t.Fatalf("expected llm_model in metadata, got %v", result.Metadata)
	}
}

func TestExecuteComplexGatewayFailure(t *testing.T) {
	gw := &stubGateway{record: ai.CallRecord{
		Status:  ai.CallError,
		Model:   "stub-model",
		Message: "backend timeout",
	}}
	e := newExecutor(&fakeStore{}, gw)

	result := e.Execute(context.Background(), "hello, can you recommend something?")
	if result.Status != models.ResultError {
		t.Fatalf("expected error, got %s", result.Status)
	}
	if !result.UsedLLM {
		t.Fatalf("expected used_llm=true on a failed LLM call")
	}
	if result.Fallback == nil || result.Fallback.Action != "TRY_AGAIN_LATER" {
		t.Fatalf("expected TRY_AGAIN_LATER fallback, got %+v", result.Fallback)
	}
	if !strings.Contains(result.Message, "backend timeout") {
		t.Fatalf("expected reason in message, got %q", result.Message)
	}
}

func TestExecuteUnknownQueryType(t *testing.T) {
	e := newExecutor(&fakeStore{}, nil)

	result := e.Execute(context.Background(), "frobnicate the widgets")
	if result.Status != models.ResultError {
		t.Fatalf("expected error, got %s", result.Status)
	}
	if result.Message != "Could not understand query type" {
		t.Fatalf("unexpected message: %q", result.Message)
	}
	if result.Fallback == nil || result.Fallback.Action != "ROUTE_TO_LLM" {
		t.Fatalf("expected ROUTE_TO_LLM fallback, got %+v", result.Fallback)
	}
	if result.Confidence != 0.3 {
		t.Fatalf("classification facts must survive failure, got confidence %v", result.Confidence)
	}
}

func TestExecuteProviderError(t *testing.T) {
	e := newExecutor(&fakeStore{err: errors.New("connection refused")}, nil)

	result := e.Execute(context.Background(), "show me active customers")
	if result.Status != models.ResultError {
		t.Fatalf("expected error, got %s", result.Status)
	}
	if result.Fallback == nil || result.Fallback.Action != "ROUTE_TO_LLM" {
		t.Fatalf("expected ROUTE_TO_LLM fallback, got %+v", result.Fallback)
	}
	if result.QueryType != string(ListCustomers) {
		t.Fatalf("classification facts must survive failure, got %q", result.QueryType)
	}
}

func TestExecuteMetricTrendUp(t *testing.T) {
	store := &fakeStore{metrics: []models.MetricPoint{
		{Metric: "daily_active_users", Date: "2026-08-03", Value: 120},
		{Metric: "daily_active_users", Date: "2026-08-02", Value: 110},
		{Metric: "daily_active_users", Date: "2026-08-01", Value: 100},
	}}
	e := newExecutor(store, nil)

	result := e.Execute(context.Background(), "show analytics trend")
	if result.Status != models.ResultSuccess {
		t.Fatalf("expected success, got %s (%s)", result.Status, result.Message)
	}
	row, ok := result.Data[0].(map[string]any)
	if !ok {
		t.Fatalf("expected a summary row, got %T", result.Data[0])
	}
	if row["trend"] != "Up 20.0%" {
		t.Fatalf("expected trend Up 20.0%%, got %v", row["trend"])
	}
	if row["latest_value"] != 120.0 {
		t.Fatalf("expected latest value 120, got %v", row["latest_value"])
	}
}

func TestExecuteMetricTrendInsufficientData(t *testing.T) {
	store := &fakeStore{metrics: []models.MetricPoint{
		{Metric: "daily_active_users", Date: "2026-08-01", Value: 100},
	}}
	e := newExecutor(store, nil)

	result := e.Execute(context.Background(), "show analytics trend")
	if result.Status != models.ResultSuccess {
		t.Fatalf("insufficient data is not an error, got %s", result.Status)
	}
	if result.Message != "Not enough data for trend analysis" {
		t.Fatalf("unexpected message: %q", result.Message)
	}
}

func TestExecuteCustomerSummaryPercentage(t *testing.T) {
	store := &fakeStore{customers: []models.Customer{
		{CustomerID: 1, Status: "active"},
		{CustomerID: 2, Status: "active"},
		{CustomerID: 3, Status: "inactive"},
	}}
	e := newExecutor(store, nil)

	result := e.Execute(context.Background(), "customer summary")
	if result.Status != models.ResultSuccess {
		t.Fatalf("expected success, got %s", result.Status)
	}
	row := result.Data[0].(map[string]any)
	if row["active"] != 2 || row["inactive"] != 1 {
		t.Fatalf("unexpected breakdown: %v", row)
	}
	if row["active_percentage"] != 66.7 {
		t.Fatalf("expected active_percentage 66.7, got %v", row["active_percentage"])
	}
}

func TestExecuteTicketCountWithStatus(t *testing.T) {
	store := &fakeStore{tickets: []models.Ticket{
		{TicketID: 1, Status: "open"},
		{TicketID: 2, Status: "open"},
		{TicketID: 3, Status: "closed"},
	}}
	e := newExecutor(store, nil)

	result := e.Execute(context.Background(), "how many open tickets")
	if result.Status != models.ResultSuccess {
		t.Fatalf("expected success, got %s", result.Status)
	}
	row := result.Data[0].(map[string]any)
	if row["count"] != 2 {
		t.Fatalf("expected 2 open tickets, got %v", row["count"])
	}
}

// Every QueryType variant must have an explicit local handler arm.
func TestLocalDispatchTotality(t *testing.T) {
	store := &fakeStore{
		customers: []models.Customer{{CustomerID: 1, Status: "active"}},
		tickets:   []models.Ticket{{TicketID: 1, CustomerID: 1, Status: "open", Priority: "low"}},
		metrics:   []models.MetricPoint{{Metric: "daily_active_users", Date: "2026-08-01", Value: 1}},
	}
	e := newExecutor(store, nil)

	for _, qt := range AllQueryTypes {
		q := ParsedQuery{Type: qt, Complexity: Simple, Limit: DefaultLimit}
		result := e.executeLocal(context.Background(), q)
		if result.Status == "" {
			t.Fatalf("%s: no handler produced a result", qt)
		}
		if result.QueryType != string(qt) {
			t.Fatalf("%s: envelope reports query_type %q", qt, result.QueryType)
		}
	}
}
