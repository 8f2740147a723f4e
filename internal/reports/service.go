// Package reports executes canonical report and metrics queries: it resolves
// the temporal window, pulls finance records and task-completion stats
// concurrently, converts every amount into the reporting currency and merges
// task counts into finance categories.
package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"hearth/internal/cache"
	"hearth/internal/core"
	"hearth/internal/storage"
	"hearth/internal/tasks"

	"github.com/shopspring/decimal"
)

// FinanceReader is the read side of the finance store.
type FinanceReader interface {
	ExpensesInRange(ctx context.Context, f storage.RangeFilter) ([]core.Expense, error)
	IncomesInRange(ctx context.Context, f storage.RangeFilter) ([]core.Income, error)
}

// TaskStatsReader provides completion aggregates from the chores domain.
type TaskStatsReader interface {
	TaskStats(ctx context.Context, f tasks.Filters) (tasks.Stats, error)
}

// Group is one aggregation bucket of a report summary.
type Group struct {
	Key            string  `json:"key"`
	Expenses       float64 `json:"expenses"`
	Income         float64 `json:"income"`
	Net            float64 `json:"net"`
	TasksCompleted int     `json:"tasksCompleted,omitempty"`
}

// Summary is the merged finance/task view for one report query.
type Summary struct {
	Query         core.ReportQuery `json:"query"`
	From          string           `json:"from,omitempty"`
	To            string           `json:"to,omitempty"`
	TotalExpenses float64          `json:"totalExpenses"`
	TotalIncome   float64          `json:"totalIncome"`
	Net           float64          `json:"net"`
	Groups        []Group          `json:"groups"`
	Tasks         tasks.Stats      `json:"tasks"`
}

// Point is one bucketed value of a metrics series.
type Point struct {
	Bucket string  `json:"bucket"`
	Value  float64 `json:"value"`
}

// MemberSeries carries the selected metric series for one household member.
type MemberSeries struct {
	MemberID string             `json:"memberId"`
	Series   map[string][]Point `json:"series"`
}

// MetricsReport answers a member-analytics query.
type MetricsReport struct {
	Query   core.MetricsQuery `json:"query"`
	Members []MemberSeries    `json:"members"`
}

// Service builds summaries and metrics reports. Summaries are cached until
// the next record write.
type Service struct {
	finance   FinanceReader
	tasks     TaskStatsReader
	converter *core.Converter
	cache     *cache.LRU[Summary]
	logger    *slog.Logger
}

func NewService(finance FinanceReader, taskStats TaskStatsReader, converter *core.Converter, c *cache.LRU[Summary], logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		finance:   finance,
		tasks:     taskStats,
		converter: converter,
		cache:     c,
		logger:    logger,
	}
}

// Invalidate drops cached summaries. Called after every record write.
func (s *Service) Invalidate() {
	if s.cache != nil {
		s.cache.Purge()
	}
}

// Summary executes a canonical report query.
func (s *Service) Summary(ctx context.Context, q core.ReportQuery) (Summary, error) {
	key := cacheKey(q)
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			return cached, nil
		}
	}

	from, to := s.resolveWindow(q, time.Now().UTC())

	var (
		expenses  []core.Expense
		incomes   []core.Income
		taskStats tasks.Stats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		expenses, err = s.finance.ExpensesInRange(gctx, storage.RangeFilter{From: from, To: to})
		return err
	})
	g.Go(func() error {
		var err error
		incomes, err = s.finance.IncomesInRange(gctx, storage.RangeFilter{From: from, To: to})
		return err
	})
	g.Go(func() error {
		var err error
		taskStats, err = s.tasks.TaskStats(gctx, tasks.Filters{From: from, To: to})
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	summary := s.aggregate(q, from, to, expenses, incomes, taskStats)
	if s.cache != nil {
		s.cache.Set(key, summary)
	}
	return summary, nil
}

func (s *Service) aggregate(q core.ReportQuery, from, to time.Time, expenses []core.Expense, incomes []core.Income, taskStats tasks.Stats) Summary {
	type acc struct {
		expenses decimal.Decimal
		income   decimal.Decimal
	}
	buckets := make(map[string]*acc)
	bucket := func(key string) *acc {
		a, ok := buckets[key]
		if !ok {
			a = &acc{}
			buckets[key] = a
		}
		return a
	}

	totalExp := decimal.Zero
	totalInc := decimal.Zero
	for _, e := range expenses {
		v := s.reportAmount(e.Amount, e.Currency, q.Currency)
		totalExp = totalExp.Add(v)
		a := bucket(groupKey(q.GroupBy, e.Date, e.CategoryID, e.MemberID))
		a.expenses = a.expenses.Add(v)
	}
	for _, in := range incomes {
		v := s.reportAmount(in.Amount, in.Currency, q.Currency)
		totalInc = totalInc.Add(v)
		a := bucket(groupKey(q.GroupBy, in.Date, in.Source, in.MemberID))
		a.income = a.income.Add(v)
	}

	taskCounts := make(map[string]int, len(taskStats.ByCategory))
	for _, cc := range taskStats.ByCategory {
		taskCounts[cc.CategoryID] = cc.Count
	}

	groups := make([]Group, 0, len(buckets))
	for key, a := range buckets {
		grp := Group{
			Key:      key,
			Expenses: round2(a.expenses),
			Income:   round2(a.income),
			Net:      round2(a.income.Sub(a.expenses)),
		}
		if q.GroupBy == core.GroupByCategory {
			grp.TasksCompleted = taskCounts[key]
		}
		groups = append(groups, grp)
	}
	sortGroups(q.GroupBy, groups)

	summary := Summary{
		Query:         q,
		TotalExpenses: round2(totalExp),
		TotalIncome:   round2(totalInc),
		Net:           round2(totalInc.Sub(totalExp)),
		Groups:        groups,
		Tasks:         taskStats,
	}
	if !from.IsZero() {
		summary.From = from.Format(time.RFC3339)
	}
	if !to.IsZero() {
		summary.To = to.Format(time.RFC3339)
	}
	return summary
}

// Metrics executes a canonical analytics query. Finance metrics are bucketed
// by granularity; the tasks metric is a single completed-count per member.
func (s *Service) Metrics(ctx context.Context, q core.MetricsQuery) (MetricsReport, error) {
	from := parseBound(q.From)
	to := parseBound(q.To)

	var (
		expenses []core.Expense
		incomes  []core.Income
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		expenses, err = s.finance.ExpensesInRange(gctx, storage.RangeFilter{From: from, To: to, MemberIDs: q.MemberIDs})
		return err
	})
	g.Go(func() error {
		var err error
		incomes, err = s.finance.IncomesInRange(gctx, storage.RangeFilter{From: from, To: to, MemberIDs: q.MemberIDs})
		return err
	})
	if err := g.Wait(); err != nil {
		return MetricsReport{}, err
	}

	selected := make(map[string]bool, len(q.Metrics))
	for _, m := range q.Metrics {
		selected[m] = true
	}

	type memberAcc map[string]decimal.Decimal // bucket → total
	perMember := make(map[string]map[string]memberAcc)
	touch := func(member, metric string) memberAcc {
		if member == "" {
			member = "unassigned"
		}
		metrics, ok := perMember[member]
		if !ok {
			metrics = make(map[string]memberAcc)
			perMember[member] = metrics
		}
		a, ok := metrics[metric]
		if !ok {
			a = make(memberAcc)
			metrics[metric] = a
		}
		return a
	}

	if selected[core.MetricExpenses] {
		for _, e := range expenses {
			a := touch(e.MemberID, core.MetricExpenses)
			b := bucketKey(e.Date, q.Granularity)
			a[b] = a[b].Add(s.reportAmount(e.Amount, e.Currency, core.NativeCurrency))
		}
	}
	if selected[core.MetricIncome] {
		for _, in := range incomes {
			a := touch(in.MemberID, core.MetricIncome)
			b := bucketKey(in.Date, q.Granularity)
			a[b] = a[b].Add(s.reportAmount(in.Amount, in.Currency, core.NativeCurrency))
		}
	}

	members := q.MemberIDs
	if len(members) == 0 {
		for member := range perMember {
			members = append(members, member)
		}
		sort.Strings(members)
	}

	report := MetricsReport{Query: q, Members: make([]MemberSeries, 0, len(members))}
	for _, member := range members {
		series := MemberSeries{MemberID: member, Series: make(map[string][]Point)}
		for metric, accs := range perMember[member] {
			points := make([]Point, 0, len(accs))
			for b, v := range accs {
				points = append(points, Point{Bucket: b, Value: round2(v)})
			}
			sort.Slice(points, func(i, j int) bool { return points[i].Bucket < points[j].Bucket })
			series.Series[metric] = points
		}
		if selected[core.MetricTasks] {
			stats, err := s.tasks.TaskStats(ctx, tasks.Filters{MemberID: member, From: from, To: to})
			if err != nil {
				return MetricsReport{}, err
			}
			series.Series[core.MetricTasks] = []Point{{Bucket: "total", Value: float64(stats.TotalCompleted)}}
		}
		report.Members = append(report.Members, series)
	}
	return report, nil
}

// reportAmount converts into the native currency, then re-denominates when
// the report asks for a different reporting currency.
func (s *Service) reportAmount(amount float64, from, reportCurrency string) decimal.Decimal {
	native := decimal.NewFromFloat(s.converter.Convert(amount, from))
	if reportCurrency == "" || reportCurrency == core.NativeCurrency {
		return native
	}
	return native.Div(s.converter.Rate(reportCurrency)).Round(4)
}

// resolveWindow turns the query's temporal scoping into concrete bounds.
// Explicit parseable bounds win; otherwise the symbolic period is a window
// ending now. Unparseable bounds are ignored as open.
func (s *Service) resolveWindow(q core.ReportQuery, now time.Time) (time.Time, time.Time) {
	from := parseBound(q.From)
	to := parseBound(q.To)
	if q.From != "" && from.IsZero() {
		s.logger.Warn("ignoring unparseable report bound", "from", q.From)
	}
	if q.To != "" && to.IsZero() {
		s.logger.Warn("ignoring unparseable report bound", "to", q.To)
	}
	if !from.IsZero() || !to.IsZero() || q.Period == "" {
		return from, to
	}

	to = now
	switch q.Period {
	case core.PeriodDay:
		from = now.AddDate(0, 0, -1)
	case core.PeriodWeek:
		from = now.AddDate(0, 0, -7)
	case core.PeriodYear:
		from = now.AddDate(-1, 0, 0)
	default: // month, and anything unrecognized degrades to it
		from = now.AddDate(0, -1, 0)
	}
	return from, to
}

func parseBound(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := core.ParseTimestamp(v)
	if err != nil {
		return time.Time{}
	}
	return t
}

func groupKey(groupBy string, date time.Time, label, member string) string {
	switch groupBy {
	case core.GroupByCategory:
		return label
	case core.GroupByMember:
		if member == "" {
			return "unassigned"
		}
		return member
	default:
		return date.Format("2006-01-02")
	}
}

func bucketKey(date time.Time, granularity string) string {
	switch granularity {
	case core.PeriodDay:
		return date.Format("2006-01-02")
	case core.PeriodWeek:
		year, week := date.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case core.PeriodYear:
		return date.Format("2006")
	default:
		return date.Format("2006-01")
	}
}

func sortGroups(groupBy string, groups []Group) {
	if groupBy == core.GroupByDate || groupBy == "" {
		sort.Slice(groups, func(i, j int) bool { return groups[i].Key < groups[j].Key })
		return
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Expenses != groups[j].Expenses {
			return groups[i].Expenses > groups[j].Expenses
		}
		return groups[i].Key < groups[j].Key
	})
}

func round2(v decimal.Decimal) float64 {
	f, _ := v.Round(2).Float64()
	return f
}

func cacheKey(q core.ReportQuery) string {
	raw, _ := json.Marshal(q)
	return string(raw)
}
