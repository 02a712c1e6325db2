package connector

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/universal-data-connector/backend/internal/models"
)

// PostgresStore serves the three domains from Postgres tables mirroring
// the JSON record shapes.
type PostgresStore struct {
	Pool       *pgxpool.Pool
	MaxResults int
}

func NewPostgresStore(ctx context.Context, databaseURL string, maxResults int) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{Pool: pool, MaxResults: maxResults}, nil
}

func (s *PostgresStore) Close() {
	s.Pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *PostgresStore) FetchCustomers(ctx context.Context, f Filters, limit int) ([]models.Customer, error) {
	query := `SELECT customer_id, name, email, created_at, status, tier, total_spent FROM customers`
	args := []any{}
	if status := normalizeFilter(f["status"]); status != "" {
		query += ` WHERE lower(status) = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC` + limitClause(capLimit(limit, s.MaxResults))

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []models.Customer
	for rows.Next() {
		var c models.Customer
		if err := rows.Scan(&c.CustomerID, &c.Name, &c.Email, &c.CreatedAt, &c.Status, &c.Tier, &c.TotalSpent); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (s *PostgresStore) FetchTickets(ctx context.Context, f Filters, limit int) ([]models.Ticket, error) {
	query := `SELECT ticket_id, customer_id, subject, priority, status, created_at, coalesce(resolved_at, '') FROM support_tickets`
	var (
		conds []string
		args  []any
	)
	if status := normalizeFilter(f["status"]); status != "" {
		args = append(args, status)
		conds = append(conds, fmt.Sprintf("lower(status) = $%d", len(args)))
	}
	if priority := normalizeFilter(f["priority"]); priority != "" {
		args = append(args, priority)
		conds = append(conds, fmt.Sprintf("lower(priority) = $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at DESC,
		CASE priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 WHEN 'low' THEN 2 ELSE 3 END` +
		limitClause(capLimit(limit, s.MaxResults))

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		var t models.Ticket
		if err := rows.Scan(&t.TicketID, &t.CustomerID, &t.Subject, &t.Priority, &t.Status, &t.CreatedAt, &t.ResolvedAt); err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

func (s *PostgresStore) FetchMetrics(ctx context.Context, f Filters, limit int) ([]models.MetricPoint, error) {
	query := `SELECT metric, date, value FROM analytics`
	args := []any{}
	if metric := normalizeFilter(f["metric"]); metric != "" {
		query += ` WHERE lower(metric) = $1`
		args = append(args, metric)
	}
	query += ` ORDER BY date DESC` + limitClause(capLimit(limit, s.MaxResults))

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []models.MetricPoint
	for rows.Next() {
		var p models.MetricPoint
		if err := rows.Scan(&p.Metric, &p.Date, &p.Value); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// Seed replaces the three tables with the given records in one transaction.
func (s *PostgresStore) Seed(ctx context.Context, customers []models.Customer, tickets []models.Ticket, points []models.MetricPoint) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `TRUNCATE customers, support_tickets, analytics`); err != nil {
			return err
		}

		customerRows := make([][]any, 0, len(customers))
		for _, c := range customers {
			customerRows = append(customerRows, []any{c.CustomerID, c.Name, c.Email, c.CreatedAt, c.Status, c.Tier, c.TotalSpent})
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"customers"},
			[]string{"customer_id", "name", "email", "created_at", "status", "tier", "total_spent"},
			pgx.CopyFromRows(customerRows)); err != nil {
			return err
		}

		ticketRows := make([][]any, 0, len(tickets))
		for _, t := range tickets {
			ticketRows = append(ticketRows, []any{t.TicketID, t.CustomerID, t.Subject, t.Priority, t.Status, t.CreatedAt})
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"support_tickets"},
			[]string{"ticket_id", "customer_id", "subject", "priority", "status", "created_at"},
			pgx.CopyFromRows(ticketRows)); err != nil {
			return err
		}

		metricRows := make([][]any, 0, len(points))
		for _, p := range points {
			metricRows = append(metricRows, []any{p.Metric, p.Date, p.Value})
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"analytics"},
			[]string{"metric", "date", "value"},
			pgx.CopyFromRows(metricRows)); err != nil {
			return err
		}
		return nil
	})
}

func (s *PostgresStore) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func limitClause(limit int) string {
	if limit <= AllRecords {
		return ""
	}
	return fmt.Sprintf(" LIMIT %d", limit)
}
