package core

// Metric names selectable in an analytics query.
const (
	MetricExpenses = "expenses"
	MetricIncome   = "income"
	MetricTasks    = "tasks"
)

// MetricsQuery is the canonical form of a member-analytics request.
// After Build, Granularity and Metrics are always populated; an empty
// MemberIDs slice means all household members.
type MetricsQuery struct {
	MemberIDs   []string `json:"memberIds,omitempty"`
	Granularity string   `json:"granularity"`
	Metrics     []string `json:"metrics"`
	From        string   `json:"from,omitempty"`
	To          string   `json:"to,omitempty"`
}

// MetricsQueryBuilder applies the same store-if-provided normalization as
// ReportQueryBuilder to analytics parameters.
type MetricsQueryBuilder struct {
	q MetricsQuery
}

func NewMetricsQueryBuilder() *MetricsQueryBuilder {
	return &MetricsQueryBuilder{}
}

func (b *MetricsQueryBuilder) SetMemberIDs(ids []string) *MetricsQueryBuilder {
	if len(ids) > 0 {
		b.q.MemberIDs = ids
	}
	return b
}

func (b *MetricsQueryBuilder) SetGranularity(v string) *MetricsQueryBuilder {
	if v != "" {
		b.q.Granularity = v
	}
	return b
}

func (b *MetricsQueryBuilder) SetMetrics(metrics []string) *MetricsQueryBuilder {
	if len(metrics) > 0 {
		b.q.Metrics = metrics
	}
	return b
}

func (b *MetricsQueryBuilder) SetFrom(v string) *MetricsQueryBuilder {
	if v != "" {
		b.q.From = normalizeBound(v)
	}
	return b
}

func (b *MetricsQueryBuilder) SetTo(v string) *MetricsQueryBuilder {
	if v != "" {
		b.q.To = normalizeBound(v)
	}
	return b
}

func (b *MetricsQueryBuilder) Build() MetricsQuery {
	q := b.q
	if q.Granularity == "" {
		q.Granularity = PeriodMonth
	}
	if len(q.Metrics) == 0 {
		q.Metrics = []string{MetricExpenses, MetricIncome}
	}
	return q
}
