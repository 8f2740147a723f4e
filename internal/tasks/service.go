// Package tasks reads the chores domain's task store and correlates
// completed-task counts with finance categories. The task lifecycle is owned
// elsewhere; this package only queries and aggregates.
package tasks

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"hearth/internal/core"
	"hearth/internal/storage"
)

// StatusCompleted is the filter default and the pinned status for stats.
const StatusCompleted = "completed"

// Querier is the parameterized query capability the service reads through.
// *sql.DB satisfies it.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Task is a read-only value object projected from the task store.
type Task struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	AssignedTo  string  `json:"assignedTo,omitempty"`
	CompletedAt *string `json:"completedAt"`
	Status      string  `json:"status"`
	CategoryID  string  `json:"categoryId,omitempty"`
}

// Filters narrows a task read. Zero values mean "no filter"; Status empty
// defaults to completed.
type Filters struct {
	MemberID string
	From     time.Time
	To       time.Time
	Status   string
}

// CategoryCount is one row of the per-category completion aggregate.
type CategoryCount struct {
	CategoryID string `json:"categoryId"`
	Count      int    `json:"count"`
}

// Stats is the derived completion aggregate. TotalCompleted always equals the
// sum of the ByCategory counts.
type Stats struct {
	TotalCompleted int             `json:"totalCompleted"`
	ByCategory     []CategoryCount `json:"byCategory"`
}

// Service correlates task completions with finance categories.
type Service struct {
	db     Querier
	driver string
}

// NewService wires the service to a task store. The driver name selects the
// placeholder dialect for parameterized queries.
func NewService(db Querier, driver string) *Service {
	return &Service{db: db, driver: driver}
}

// memberDatePredicate appends conditions only for filters that are present.
func memberDatePredicate(f Filters) ([]string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.MemberID != "" {
		conds = append(conds, "assigned_to = ?")
		args = append(args, f.MemberID)
	}
	if !f.From.IsZero() {
		conds = append(conds, "completed_at >= ?")
		args = append(args, f.From.UTC())
	}
	if !f.To.IsZero() {
		conds = append(conds, "completed_at <= ?")
		args = append(args, f.To.UTC())
	}
	return conds, args
}

// TasksByMember returns tasks matching the filters, most recently completed
// first. Status defaults to completed when unspecified.
func (s *Service) TasksByMember(ctx context.Context, f Filters) ([]Task, error) {
	conds, args := memberDatePredicate(f)

	status := f.Status
	if status == "" {
		status = StatusCompleted
	}
	conds = append(conds, "status = ?")
	args = append(args, status)

	q := `SELECT id, title, description, assigned_to, completed_at, status, category_id FROM tasks` +
		" WHERE " + strings.Join(conds, " AND ") +
		" ORDER BY completed_at DESC"

	rows, err := s.db.QueryContext(ctx, storage.Rebind(s.driver, q), args...)
	if err != nil {
		return nil, &core.InfrastructureError{Op: "query tasks", Err: err}
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		var (
			t           Task
			description sql.NullString
			assignedTo  sql.NullString
			completedAt sql.NullTime
			categoryID  sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.Title, &description, &assignedTo, &completedAt, &t.Status, &categoryID); err != nil {
			return nil, &core.InfrastructureError{Op: "scan task", Err: err}
		}
		t.Description = description.String
		t.AssignedTo = assignedTo.String
		t.CategoryID = categoryID.String
		if completedAt.Valid {
			iso := completedAt.Time.UTC().Format(time.RFC3339)
			t.CompletedAt = &iso
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.InfrastructureError{Op: "query tasks", Err: err}
	}
	return out, nil
}

// TaskStats aggregates completed-task counts per category. The status is
// pinned to completed regardless of the filter value; ties in the count
// ordering keep the store's natural order.
func (s *Service) TaskStats(ctx context.Context, f Filters) (Stats, error) {
	conds, args := memberDatePredicate(f)
	conds = append(conds, "status = ?")
	args = append(args, StatusCompleted)

	q := `SELECT category_id, COUNT(*) AS completed FROM tasks` +
		" WHERE " + strings.Join(conds, " AND ") +
		" GROUP BY category_id ORDER BY completed DESC"

	rows, err := s.db.QueryContext(ctx, storage.Rebind(s.driver, q), args...)
	if err != nil {
		return Stats{}, &core.InfrastructureError{Op: "query task stats", Err: err}
	}
	defer rows.Close()

	stats := Stats{ByCategory: []CategoryCount{}}
	for rows.Next() {
		var (
			categoryID sql.NullString
			count      int
		)
		if err := rows.Scan(&categoryID, &count); err != nil {
			return Stats{}, &core.InfrastructureError{Op: "scan task stats", Err: err}
		}
		stats.ByCategory = append(stats.ByCategory, CategoryCount{
			CategoryID: categoryID.String,
			Count:      count,
		})
		stats.TotalCompleted += count
	}
	if err := rows.Err(); err != nil {
		return Stats{}, &core.InfrastructureError{Op: "query task stats", Err: err}
	}
	return stats, nil
}
