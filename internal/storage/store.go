package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"hearth/internal/core"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store persists finance records and exposes the parameterized query
// capability the task-correlation service reads through. Every statement is
// parameterized; untrusted values never reach query text.
type Store struct {
	db     *sql.DB
	driver string
}

// Open connects, pings and migrates the database. For SQLite the parent
// directory is created first, matching how the service is deployed.
func Open(driver, dsn string) (*Store, error) {
	if driver == DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(driver, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db, driver: driver}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DB exposes the underlying pool for read-only collaborators.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Driver() string {
	return s.driver
}

// Rebind translates `?` placeholders into the dialect's positional form.
// SQLite takes them as-is; Postgres wants $1..$n.
func Rebind(driver, query string) string {
	if driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) rebind(query string) string {
	return Rebind(s.driver, query)
}

func infraErr(op string, err error) error {
	return &core.InfrastructureError{Op: op, Err: err}
}

// CreateExpense inserts a built expense record, assigning its identifier.
func (s *Store) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	const q = `INSERT INTO expenses (id, amount, currency, category_id, member_id, recorded_at, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, s.rebind(q),
		e.ID, e.Amount, e.Currency, e.CategoryID,
		nullString(e.MemberID), e.Date.UTC(), nullString(e.Notes))
	if err != nil {
		return core.Expense{}, infraErr("create expense", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", e.ID,
		"category_id", e.CategoryID,
		"amount", e.Amount,
		"currency", e.Currency)

	return e, nil
}

// CreateIncome inserts a built income record, assigning its identifier.
func (s *Store) CreateIncome(ctx context.Context, in core.Income) (core.Income, error) {
	if in.ID == "" {
		in.ID = uuid.NewString()
	}

	const q = `INSERT INTO incomes (id, amount, currency, source, member_id, recorded_at, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, s.rebind(q),
		in.ID, in.Amount, in.Currency, in.Source,
		nullString(in.MemberID), in.Date.UTC(), nullString(in.Notes))
	if err != nil {
		return core.Income{}, infraErr("create income", err)
	}

	slog.InfoContext(ctx, "Income saved",
		"id", in.ID,
		"source", in.Source,
		"amount", in.Amount,
		"currency", in.Currency)

	return in, nil
}

// GetExpense retrieves a single expense by ID.
func (s *Store) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	const q = `SELECT id, amount, currency, category_id, member_id, recorded_at, notes
		FROM expenses WHERE id = ?`
	row := s.db.QueryRowContext(ctx, s.rebind(q), id)

	var (
		e      core.Expense
		member sql.NullString
		notes  sql.NullString
	)
	if err := row.Scan(&e.ID, &e.Amount, &e.Currency, &e.CategoryID, &member, &e.Date, &notes); err != nil {
		return core.Expense{}, infraErr("get expense", err)
	}
	e.MemberID = member.String
	e.Notes = notes.String
	e.Date = e.Date.UTC()
	return e, nil
}

// GetIncome retrieves a single income by ID.
func (s *Store) GetIncome(ctx context.Context, id string) (core.Income, error) {
	const q = `SELECT id, amount, currency, source, member_id, recorded_at, notes
		FROM incomes WHERE id = ?`
	row := s.db.QueryRowContext(ctx, s.rebind(q), id)

	var (
		in     core.Income
		member sql.NullString
		notes  sql.NullString
	)
	if err := row.Scan(&in.ID, &in.Amount, &in.Currency, &in.Source, &member, &in.Date, &notes); err != nil {
		return core.Income{}, infraErr("get income", err)
	}
	in.MemberID = member.String
	in.Notes = notes.String
	in.Date = in.Date.UTC()
	return in, nil
}

// RangeFilter bounds a read aggregation. Zero times are open bounds; an empty
// member list means all members.
type RangeFilter struct {
	From      time.Time
	To        time.Time
	MemberIDs []string
}

func (f RangeFilter) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	if !f.From.IsZero() {
		conds = append(conds, "recorded_at >= ?")
		args = append(args, f.From.UTC())
	}
	if !f.To.IsZero() {
		conds = append(conds, "recorded_at <= ?")
		args = append(args, f.To.UTC())
	}
	if len(f.MemberIDs) > 0 {
		placeholders := strings.Repeat("?, ", len(f.MemberIDs))
		conds = append(conds, "member_id IN ("+placeholders[:len(placeholders)-2]+")")
		for _, id := range f.MemberIDs {
			args = append(args, id)
		}
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ExpensesInRange returns the expenses inside the filter window, oldest first.
func (s *Store) ExpensesInRange(ctx context.Context, f RangeFilter) ([]core.Expense, error) {
	where, args := f.where()
	q := `SELECT id, amount, currency, category_id, member_id, recorded_at, notes FROM expenses` +
		where + ` ORDER BY recorded_at ASC`

	rows, err := s.db.QueryContext(ctx, s.rebind(q), args...)
	if err != nil {
		return nil, infraErr("list expenses", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var (
			e      core.Expense
			member sql.NullString
			notes  sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Amount, &e.Currency, &e.CategoryID, &member, &e.Date, &notes); err != nil {
			return nil, infraErr("scan expense", err)
		}
		e.MemberID = member.String
		e.Notes = notes.String
		e.Date = e.Date.UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, infraErr("list expenses", err)
	}
	return out, nil
}

// IncomesInRange returns the incomes inside the filter window, oldest first.
func (s *Store) IncomesInRange(ctx context.Context, f RangeFilter) ([]core.Income, error) {
	where, args := f.where()
	q := `SELECT id, amount, currency, source, member_id, recorded_at, notes FROM incomes` +
		where + ` ORDER BY recorded_at ASC`

	rows, err := s.db.QueryContext(ctx, s.rebind(q), args...)
	if err != nil {
		return nil, infraErr("list incomes", err)
	}
	defer rows.Close()

	var out []core.Income
	for rows.Next() {
		var (
			in     core.Income
			member sql.NullString
			notes  sql.NullString
		)
		if err := rows.Scan(&in.ID, &in.Amount, &in.Currency, &in.Source, &member, &in.Date, &notes); err != nil {
			return nil, infraErr("scan income", err)
		}
		in.MemberID = member.String
		in.Notes = notes.String
		in.Date = in.Date.UTC()
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, infraErr("list incomes", err)
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
