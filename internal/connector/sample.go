package connector

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/universal-data-connector/backend/internal/models"
	"github.com/universal-data-connector/backend/internal/utils"
)

func sampleHash(kind string, i int) uint64 {
	return utils.HashStringToUint64(fmt.Sprintf("%s-%d", kind, i))
}

// SampleCustomers generates deterministic CRM records for dev bootstrap.
// Records derive from a hash of their identifier so repeated runs produce
// identical files.
func SampleCustomers(count int, now time.Time) []models.Customer {
	statuses := []string{"active", "inactive"}
	tiers := []string{"free", "standard", "premium"}
	customers := make([]models.Customer, 0, count)
	for i := 1; i <= count; i++ {
		h := sampleHash("customer", i)
		customers = append(customers, models.Customer{
			CustomerID: i,
			Name:       fmt.Sprintf("Customer %d", i),
			Email:      fmt.Sprintf("user%d@example.com", i),
			CreatedAt:  now.AddDate(0, 0, -int(h%365)-1).Format(time.RFC3339),
			Status:     statuses[h%2],
			Tier:       tiers[(h/3)%3],
			TotalSpent: float64((h % 9000) + 100),
		})
	}
	return customers
}

func SampleTickets(count, customerCount int, now time.Time) []models.Ticket {
	statuses := []string{"open", "closed"}
	priorities := []string{"low", "medium", "high"}
	subjects := []string{"Login failure", "Billing question", "Feature request", "Data sync issue", "Password reset"}
	tickets := make([]models.Ticket, 0, count)
	for i := 1; i <= count; i++ {
		h := sampleHash("ticket", i)
		tickets = append(tickets, models.Ticket{
			TicketID:   i,
			CustomerID: int(h%uint64(customerCount)) + 1,
			Subject:    subjects[(h/5)%uint64(len(subjects))],
			Priority:   priorities[(h/7)%3],
			Status:     statuses[(h/11)%2],
			CreatedAt:  now.AddDate(0, 0, -int(h%30)-1).Format(time.RFC3339),
		})
	}
	return tickets
}

func SampleMetrics(days int, now time.Time) []models.MetricPoint {
	points := make([]models.MetricPoint, 0, days)
	for i := 0; i < days; i++ {
		h := sampleHash("metric", i)
		points = append(points, models.MetricPoint{
			Metric: "daily_active_users",
			Date:   now.AddDate(0, 0, -i).Format("2006-01-02"),
			Value:  float64(800 + h%400),
		})
	}
	return points
}

// WriteSampleData writes the three JSON data files under dir.
func WriteSampleData(dir string, now time.Time) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	customers := SampleCustomers(50, now)
	files := map[string]any{
		customersFile: customers,
		ticketsFile:   SampleTickets(100, len(customers), now),
		metricsFile:   SampleMetrics(30, now),
	}
	for name, data := range files {
		b, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, name), b, 0o644); err != nil {
			return err
		}
	}
	return nil
}
