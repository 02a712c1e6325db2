package connector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/universal-data-connector/backend/internal/models"
)

const (
	customersFile = "customers.json"
	ticketsFile   = "support_tickets.json"
	metricsFile   = "analytics.json"
)

// FileStore serves the three domains from JSON files under a data
// directory. A missing file is an empty data set, not an error.
type FileStore struct {
	Dir        string
	MaxResults int
	Logger     zerolog.Logger
}

func NewFileStore(dir string, maxResults int, logger zerolog.Logger) *FileStore {
	return &FileStore{Dir: dir, MaxResults: maxResults, Logger: logger}
}

func (s *FileStore) FetchCustomers(ctx context.Context, f Filters, limit int) ([]models.Customer, error) {
	var customers []models.Customer
	if err := s.load(customersFile, &customers); err != nil {
		return nil, err
	}
	if status := normalizeFilter(f["status"]); status != "" {
		kept := customers[:0]
		for _, c := range customers {
			if strings.ToLower(c.Status) == status {
				kept = append(kept, c)
			}
		}
		customers = kept
	}
	sortCustomersNewestFirst(customers)
	return applyLimit(customers, capLimit(limit, s.MaxResults)), nil
}

func (s *FileStore) FetchTickets(ctx context.Context, f Filters, limit int) ([]models.Ticket, error) {
	var tickets []models.Ticket
	if err := s.load(ticketsFile, &tickets); err != nil {
		return nil, err
	}
	status := normalizeFilter(f["status"])
	priority := normalizeFilter(f["priority"])
	if status != "" || priority != "" {
		kept := tickets[:0]
		for _, t := range tickets {
			if status != "" && strings.ToLower(t.Status) != status {
				continue
			}
			if priority != "" && strings.ToLower(t.Priority) != priority {
				continue
			}
			kept = append(kept, t)
		}
		tickets = kept
	}
	sortTicketsNewestFirst(tickets)
	return applyLimit(tickets, capLimit(limit, s.MaxResults)), nil
}

func (s *FileStore) FetchMetrics(ctx context.Context, f Filters, limit int) ([]models.MetricPoint, error) {
	var points []models.MetricPoint
	if err := s.load(metricsFile, &points); err != nil {
		return nil, err
	}
	if metric := normalizeFilter(f["metric"]); metric != "" {
		kept := points[:0]
		for _, p := range points {
			if strings.ToLower(p.Metric) == metric {
				kept = append(kept, p)
			}
		}
		points = kept
	}
	sortMetricsNewestFirst(points)
	return applyLimit(points, capLimit(limit, s.MaxResults)), nil
}

func (s *FileStore) load(name string, out any) error {
	path := filepath.Join(s.Dir, name)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.Logger.Warn().Str("path", path).Msg("data file not found, treating as empty")
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func normalizeFilter(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
