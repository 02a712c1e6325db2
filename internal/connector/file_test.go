package connector

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
}

func TestFileStoreFetchCustomersFilterAndOrder(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, customersFile, `[
		{"customer_id": 1, "name": "Old", "status": "active", "created_at": "2025-01-01T00:00:00Z"},
		{"customer_id": 2, "name": "New", "status": "active", "created_at": "2026-05-01T00:00:00Z"},
		{"customer_id": 3, "name": "Gone", "status": "inactive", "created_at": "2026-01-01T00:00:00Z"}
	]`)
	store := NewFileStore(dir, 100, zerolog.Nop())

	customers, err := store.FetchCustomers(context.Background(), Filters{"status": "Active"}, AllRecords)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(customers) != 2 {
		t.Fatalf("expected 2 active customers, got %d", len(customers))
	}
	if customers[0].CustomerID != 2 {
		t.Fatalf("expected newest first, got customer %d", customers[0].CustomerID)
	}
}

func TestFileStoreFetchTicketsCombinedFilters(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, ticketsFile, `[
		{"ticket_id": 1, "customer_id": 1, "status": "open", "priority": "high", "created_at": "2026-08-01T00:00:00Z"},
		{"ticket_id": 2, "customer_id": 1, "status": "open", "priority": "low", "created_at": "2026-08-02T00:00:00Z"},
		{"ticket_id": 3, "customer_id": 2, "status": "closed", "priority": "high", "created_at": "2026-08-03T00:00:00Z"}
	]`)
	store := NewFileStore(dir, 100, zerolog.Nop())

	tickets, err := store.FetchTickets(context.Background(), Filters{"status": "open", "priority": "high"}, AllRecords)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(tickets) != 1 || tickets[0].TicketID != 1 {
		t.Fatalf("expected only ticket 1, got %+v", tickets)
	}
}

func TestFileStoreMissingFileIsEmpty(t *testing.T) {
	store := NewFileStore(t.TempDir(), 100, zerolog.Nop())

	customers, err := store.FetchCustomers(context.Background(), Filters{}, AllRecords)
	if err != nil {
		t.Fatalf("missing file must not error: %v", err)
	}
	if len(customers) != 0 {
		t.Fatalf("expected empty set, got %d", len(customers))
	}
}

func TestFileStoreMalformedFileErrors(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, metricsFile, `{"not": "a list"`)
	store := NewFileStore(dir, 100, zerolog.Nop())

	if _, err := store.FetchMetrics(context.Background(), Filters{}, AllRecords); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestFileStoreLimitAndCap(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, metricsFile, `[
		{"metric": "daily_active_users", "date": "2026-08-01", "value": 1},
		{"metric": "daily_active_users", "date": "2026-08-02", "value": 2},
		{"metric": "daily_active_users", "date": "2026-08-03", "value": 3},
		{"metric": "daily_active_users", "date": "2026-08-04", "value": 4}
	]`)
	store := NewFileStore(dir, 3, zerolog.Nop())

	points, err := store.FetchMetrics(context.Background(), Filters{}, 2)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected limit 2, got %d", len(points))
	}
	if points[0].Date != "2026-08-04" {
		t.Fatalf("expected newest first, got %s", points[0].Date)
	}

	// MaxResults caps explicit limits, never AllRecords.
	points, err = store.FetchMetrics(context.Background(), Filters{}, 10)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("expected MaxResults cap 3, got %d", len(points))
	}

	points, err = store.FetchMetrics(context.Background(), Filters{}, AllRecords)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(points) != 4 {
		t.Fatalf("expected all records, got %d", len(points))
	}
}

func TestWriteSampleDataRoundTrip(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	if err := WriteSampleData(dir, now); err != nil {
		t.Fatalf("write sample data: %v", err)
	}
	store := NewFileStore(dir, 0, zerolog.Nop())

	customers, err := store.FetchCustomers(context.Background(), Filters{}, AllRecords)
	if err != nil {
		t.Fatalf("fetch customers: %v", err)
	}
	if len(customers) == 0 {
		t.Fatalf("expected sample customers")
	}
	tickets, err := store.FetchTickets(context.Background(), Filters{}, AllRecords)
	if err != nil {
		t.Fatalf("fetch tickets: %v", err)
	}
	if len(tickets) == 0 {
		t.Fatalf("expected sample tickets")
	}
	points, err := store.FetchMetrics(context.Background(), Filters{}, AllRecords)
	if err != nil {
		t.Fatalf("fetch metrics: %v", err)
	}
	if len(points) == 0 {
		t.Fatalf("expected sample metrics")
	}
}
