package core

import "time"

// Report periods and grouping dimensions accepted from query strings.
const (
	PeriodDay   = "day"
	PeriodWeek  = "week"
	PeriodMonth = "month"
	PeriodYear  = "year"

	GroupByDate     = "date"
	GroupByCategory = "category"
	GroupByMember   = "member"
)

// ReportQuery is the canonical form of a report request. After Build,
// Currency and GroupBy are always populated; Period is populated only when
// the caller supplied no temporal scoping at all.
type ReportQuery struct {
	Period   string `json:"period,omitempty"`
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
	GroupBy  string `json:"groupBy"`
	Currency string `json:"currency"`
}

// ReportQueryBuilder normalizes raw report parameters. Setters store only
// non-empty values and never reject: a malformed bound is kept as provided
// and resolved (or ignored) by the report executor.
type ReportQueryBuilder struct {
	q ReportQuery
}

func NewReportQueryBuilder() *ReportQueryBuilder {
	return &ReportQueryBuilder{}
}

func (b *ReportQueryBuilder) SetPeriod(v string) *ReportQueryBuilder {
	if v != "" {
		b.q.Period = v
	}
	return b
}

func (b *ReportQueryBuilder) SetFrom(v string) *ReportQueryBuilder {
	if v != "" {
		b.q.From = normalizeBound(v)
	}
	return b
}

func (b *ReportQueryBuilder) SetTo(v string) *ReportQueryBuilder {
	if v != "" {
		b.q.To = normalizeBound(v)
	}
	return b
}

func (b *ReportQueryBuilder) SetGroupBy(v string) *ReportQueryBuilder {
	if v != "" {
		b.q.GroupBy = v
	}
	return b
}

func (b *ReportQueryBuilder) SetCurrency(v string) *ReportQueryBuilder {
	if v != "" {
		b.q.Currency = v
	}
	return b
}

// Build resolves defaults in a fixed order. Rule 3 fires only when the
// caller supplied no temporal scoping at all; explicit bounds always win
// over a period and are never overwritten.
func (b *ReportQueryBuilder) Build() ReportQuery {
	q := b.q
	if q.Currency == "" {
		q.Currency = NativeCurrency
	}
	if q.GroupBy == "" {
		q.GroupBy = GroupByDate
	}
	if q.Period == "" && q.From == "" && q.To == "" {
		q.Period = PeriodMonth
	}
	return q
}

// normalizeBound coerces parseable bounds into RFC3339 form and leaves
// everything else untouched.
func normalizeBound(v string) string {
	t, err := ParseTimestamp(v)
	if err != nil {
		return v
	}
	return t.Format(time.RFC3339)
}
