package connector

import (
	"context"
	"sort"

	"github.com/universal-data-connector/backend/internal/models"
)

// Filters is the filter bag applied server-side by a provider. Keys are
// domain-specific: "status" and "priority" for tickets, "status" for
// customers, "metric" for metrics.
type Filters map[string]string

// AllRecords as a limit means "no limit".
const AllRecords = 0

type CustomerProvider interface {
	FetchCustomers(ctx context.Context, f Filters, limit int) ([]models.Customer, error)
}

type TicketProvider interface {
	FetchTickets(ctx context.Context, f Filters, limit int) ([]models.Ticket, error)
}

type MetricProvider interface {
	FetchMetrics(ctx context.Context, f Filters, limit int) ([]models.MetricPoint, error)
}

func capLimit(limit, max int) int {
	if limit <= AllRecords {
		return AllRecords
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

func applyLimit[T any](data []T, limit int) []T {
	if limit <= AllRecords || limit >= len(data) {
		return data
	}
	return data[:limit]
}

// priorityRank orders high before medium before low; unknown values sink.
func priorityRank(p string) int {
	switch p {
	case "high":
		return 0
	case "medium":
		return 1
	case "low":
		return 2
	}
	return 3
}

func sortCustomersNewestFirst(customers []models.Customer) {
	sort.SliceStable(customers, func(i, j int) bool {
		return customers[i].CreatedAt > customers[j].CreatedAt
	})
}

func sortTicketsNewestFirst(tickets []models.Ticket) {
	sort.SliceStable(tickets, func(i, j int) bool {
		if tickets[i].CreatedAt != tickets[j].CreatedAt {
			return tickets[i].CreatedAt > tickets[j].CreatedAt
		}
		return priorityRank(tickets[i].Priority) < priorityRank(tickets[j].Priority)
	})
}

func sortMetricsNewestFirst(points []models.MetricPoint) {
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Date > points[j].Date
	})
}
