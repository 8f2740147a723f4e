package http

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hearth/internal/amqp"
	"hearth/internal/core"
	"hearth/internal/reports"
	"hearth/internal/tasks"
)

type fakeStore struct {
	expenses map[string]core.Expense
	incomes  map[string]core.Income
	err      error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		expenses: map[string]core.Expense{},
		incomes:  map[string]core.Income{},
	}
}

func (f *fakeStore) CreateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	if f.err != nil {
		return core.Expense{}, f.err
	}
	e.ID = "exp-1"
	f.expenses[e.ID] = e
	return e, nil
}

func (f *fakeStore) CreateIncome(_ context.Context, in core.Income) (core.Income, error) {
	if f.err != nil {
		return core.Income{}, f.err
	}
	in.ID = "inc-1"
	f.incomes[in.ID] = in
	return in, nil
}

func (f *fakeStore) GetExpense(_ context.Context, id string) (core.Expense, error) {
	e, ok := f.expenses[id]
	if !ok {
		return core.Expense{}, &core.InfrastructureError{Op: "get expense", Err: sql.ErrNoRows}
	}
	return e, nil
}

func (f *fakeStore) GetIncome(_ context.Context, id string) (core.Income, error) {
	in, ok := f.incomes[id]
	if !ok {
		return core.Income{}, &core.InfrastructureError{Op: "get income", Err: sql.ErrNoRows}
	}
	return in, nil
}

type fakeReports struct {
	lastSummaryQuery core.ReportQuery
	lastMetricsQuery core.MetricsQuery
	invalidations    int
}

func (f *fakeReports) Summary(_ context.Context, q core.ReportQuery) (reports.Summary, error) {
	f.lastSummaryQuery = q
	return reports.Summary{Query: q}, nil
}

func (f *fakeReports) Metrics(_ context.Context, q core.MetricsQuery) (reports.MetricsReport, error) {
	f.lastMetricsQuery = q
	return reports.MetricsReport{Query: q}, nil
}

func (f *fakeReports) Invalidate() { f.invalidations++ }

type fakeTasks struct {
	list  []tasks.Task
	stats tasks.Stats
	err   error
}

func (f *fakeTasks) TasksByMember(_ context.Context, _ tasks.Filters) ([]tasks.Task, error) {
	return f.list, f.err
}

func (f *fakeTasks) TaskStats(_ context.Context, _ tasks.Filters) (tasks.Stats, error) {
	return f.stats, f.err
}

type fakePublisher struct {
	events []amqp.RecordEventMessage
	err    error
}

func (f *fakePublisher) PublishRecordEvent(_ context.Context, msg amqp.RecordEventMessage) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, msg)
	return nil
}

type fixture struct {
	store     *fakeStore
	reports   *fakeReports
	tasks     *fakeTasks
	publisher *fakePublisher
	server    *Server
}

func newTestServer(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:     newFakeStore(),
		reports:   &fakeReports{},
		tasks:     &fakeTasks{},
		publisher: &fakePublisher{},
	}
	converter := core.NewConverter(core.DefaultRates(), slog.Default())
	f.server = NewServer(":0", f.store, f.reports, f.tasks, converter, f.publisher)
	t.Cleanup(func() { f.server.rateLimiter.stop() })
	return f
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	f.server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestCreateExpense(t *testing.T) {
	f := newTestServer(t)

	rec := f.do(t, http.MethodPost, "/api/expenses",
		`{"amount": 25.5, "categoryId": "groceries", "memberId": "m1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var got core.Expense
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "exp-1", got.ID)
	assert.Equal(t, 25.5, got.Amount)
	assert.Equal(t, "USD", got.Currency, "currency defaults to native")
	assert.False(t, got.Date.IsZero())

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, amqp.KindExpense, f.publisher.events[0].Kind)
	assert.Equal(t, amqp.ActionCreated, f.publisher.events[0].Action)
	assert.Equal(t, 1, f.reports.invalidations)
}

func TestCreateExpenseValidation(t *testing.T) {
	f := newTestServer(t)

	rec := f.do(t, http.MethodPost, "/api/expenses", `{"categoryId": "groceries"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "amount is required", resp["error"])
	assert.Equal(t, "amount", resp["field"])
	assert.Empty(t, f.publisher.events)
}

func TestCreateExpenseBadJSON(t *testing.T) {
	f := newTestServer(t)

	rec := f.do(t, http.MethodPost, "/api/expenses", `{"amount":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateIncome(t *testing.T) {
	f := newTestServer(t)

	rec := f.do(t, http.MethodPost, "/api/incomes",
		`{"amount": 3000, "source": "salary", "currency": "EUR"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var got core.Income
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "salary", got.Source)
	assert.Equal(t, "EUR", got.Currency)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, amqp.KindIncome, f.publisher.events[0].Kind)
}

func TestGetExpenseNotFound(t *testing.T) {
	f := newTestServer(t)

	rec := f.do(t, http.MethodGet, "/api/expenses/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetExpense(t *testing.T) {
	f := newTestServer(t)
	f.do(t, http.MethodPost, "/api/expenses", `{"amount": 10, "categoryId": "transport"}`)

	rec := f.do(t, http.MethodGet, "/api/expenses/exp-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got core.Expense
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "transport", got.CategoryID)
}

func TestPublisherFailureDoesNotFailWrite(t *testing.T) {
	f := newTestServer(t)
	f.publisher.err = fmt.Errorf("broker down")

	rec := f.do(t, http.MethodPost, "/api/expenses", `{"amount": 10, "categoryId": "x"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestReportSummaryDefaults(t *testing.T) {
	f := newTestServer(t)

	rec := f.do(t, http.MethodGet, "/api/reports/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)

	q := f.reports.lastSummaryQuery
	assert.Equal(t, "USD", q.Currency)
	assert.Equal(t, core.GroupByDate, q.GroupBy)
	assert.Equal(t, core.PeriodMonth, q.Period)
}

func TestReportSummaryParams(t *testing.T) {
	f := newTestServer(t)

	rec := f.do(t, http.MethodGet, "/api/reports/summary?groupBy=category&from=2025-04-01&currency=EUR", "")
	require.Equal(t, http.StatusOK, rec.Code)

	q := f.reports.lastSummaryQuery
	assert.Equal(t, core.GroupByCategory, q.GroupBy)
	assert.Equal(t, "EUR", q.Currency)
	assert.Empty(t, q.Period, "explicit bound suppresses the period default")
	assert.Equal(t, "2025-04-01T00:00:00Z", q.From)
}

func TestMetricsParams(t *testing.T) {
	f := newTestServer(t)

	rec := f.do(t, http.MethodGet, "/api/reports/metrics?memberIds=m1,m2&metrics=expenses,tasks&granularity=week", "")
	require.Equal(t, http.StatusOK, rec.Code)

	q := f.reports.lastMetricsQuery
	assert.Equal(t, []string{"m1", "m2"}, q.MemberIDs)
	assert.Equal(t, []string{core.MetricExpenses, core.MetricTasks}, q.Metrics)
	assert.Equal(t, core.PeriodWeek, q.Granularity)
}

func TestTasksEmptyList(t *testing.T) {
	f := newTestServer(t)

	rec := f.do(t, http.MethodGet, "/api/tasks?memberId=m1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestTaskStats(t *testing.T) {
	f := newTestServer(t)
	f.tasks.stats = tasks.Stats{
		TotalCompleted: 2,
		ByCategory:     []tasks.CategoryCount{{CategoryID: "cleaning", Count: 2}},
	}

	rec := f.do(t, http.MethodGet, "/api/tasks/stats?memberId=m1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got tasks.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 2, got.TotalCompleted)
}

func TestCurrencies(t *testing.T) {
	f := newTestServer(t)

	rec := f.do(t, http.MethodGet, "/api/currencies", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Native     string            `json:"native"`
		Currencies []string          `json:"currencies"`
		Rates      map[string]string `json:"rates"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "USD", resp.Native)
	assert.Contains(t, resp.Currencies, "USD")
}

func TestHealthEndpoints(t *testing.T) {
	f := newTestServer(t)

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/readyz", "").Code)
}

func TestRateLimitOnWrites(t *testing.T) {
	f := newTestServer(t)

	var last int
	for i := 0; i < 61; i++ {
		last = f.do(t, http.MethodPost, "/api/expenses", `{"amount": 1, "categoryId": "x"}`).Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}
